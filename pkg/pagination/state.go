package pagination

// Limits imposed on query windows.
const (
	// MaxBatchSize is the largest window an exhaustive fetch requests per round.
	MaxBatchSize = 1000

	// DefaultObjectsPerPage is the page size used when none is configured.
	DefaultObjectsPerPage = 25
)

// State tracks the pagination position of a loader.
// It is owned and exclusively mutated by the lifecycle controller; fetch
// strategies only read it.
type State struct {
	// ObjectsPerPage is the configured page size (0 = pagination disabled,
	// a bounded fetch degrades to one unbounded call).
	ObjectsPerPage int

	// CurrentPage is the highest page index applied so far.
	CurrentPage int

	// PageToLoad is the page index the next bounded fetch targets.
	// Invariant: PageToLoad >= CurrentPage.
	PageToLoad int

	// HasNextPage reports whether the most recent applied fetch saw more
	// data beyond its page.
	HasNextPage bool
}

// NewState returns pagination state for the given page size.
func NewState(objectsPerPage int) *State {
	return &State{ObjectsPerPage: objectsPerPage}
}

// Apply folds a completed fetch into the state.
// Results for pages older than CurrentPage are ignored so that an overlapping
// request completing late cannot regress the position or the has-next flag.
// Returns true if the result was applied.
func (s *State) Apply(pageIndex int, hasNext bool) bool {
	if pageIndex < s.CurrentPage {
		return false
	}
	s.CurrentPage = pageIndex
	s.HasNextPage = hasNext
	if s.PageToLoad < s.CurrentPage {
		s.PageToLoad = s.CurrentPage
	}
	return true
}

// AdvancePage targets the page after CurrentPage for the next load.
func (s *State) AdvancePage() {
	s.PageToLoad = s.CurrentPage + 1
}

// Reset returns the state to its initial position, keeping the page size.
func (s *State) Reset() {
	s.CurrentPage = 0
	s.PageToLoad = 0
	s.HasNextPage = false
}
