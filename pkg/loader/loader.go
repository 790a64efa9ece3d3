package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/pagination"
	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

// Mode selects the fetch strategy of a loader.
// It is fixed once the first load runs; Reset unlocks it again.
type Mode int

const (
	// ModePaginated loads one bounded page per load with lookahead.
	ModePaginated Mode = iota

	// ModeExhaustive loads all pages of the query in one logical load.
	ModeExhaustive
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModePaginated:
		return "paginated"
	case ModeExhaustive:
		return "exhaustive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Phase represents the lifecycle phase of a loader.
type Phase int

const (
	// PhaseIdle is the phase before the first Start.
	PhaseIdle Phase = iota

	// PhaseLoading indicates a fetch is in flight for an active loader.
	PhaseLoading

	// PhaseStarted indicates the loader is active and delivering results.
	PhaseStarted

	// PhaseStopped indicates the loader is inactive; results are retained
	// but not delivered.
	PhaseStopped

	// PhaseReset indicates the loader was reset and holds no results.
	PhaseReset
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseStarted:
		return "started"
	case PhaseStopped:
		return "stopped"
	case PhaseReset:
		return "reset"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Observer bridges external change notifications into the loader.
// Register is invoked on Start with the loader's invalidation function;
// implementations call it whenever the underlying data changes. Unregister
// is invoked on Reset and must drop the registration.
type Observer interface {
	Register(invalidate func())
	Unregister()
}

// Config holds the loader configuration.
type Config[T any] struct {
	// ObjectsPerPage is the page size for paginated mode
	// (0 = pagination disabled, each load fetches everything in one call).
	ObjectsPerPage int

	// Mode selects the fetch strategy.
	Mode Mode

	// BatchSize is the window size used by exhaustive loads
	// (0 or out of range = pagination.MaxBatchSize).
	BatchSize int

	// OnResult receives the full accumulated result on every delivery.
	// The slice is an immutable snapshot; do not modify it. REQUIRED.
	OnResult func([]T)

	// OnError receives swallowed load failures. Deliveries still fail
	// closed to an empty page; this is for consumers that need visibility.
	OnError func(error)

	// Observer is registered on Start and unregistered on Reset.
	Observer Observer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig[T any](onResult func([]T)) Config[T] {
	return Config[T]{
		ObjectsPerPage: pagination.DefaultObjectsPerPage,
		Mode:           ModePaginated,
		OnResult:       onResult,
	}
}

// Loader is a lifecycle-bound paginated query loader.
// Public methods are intended to be called from one consumer goroutine;
// loads run on background goroutines dispatched by the loader.
type Loader[T any] struct {
	cfg    Config[T]
	logger zerolog.Logger

	mu             sync.Mutex
	source         query.Source[T]
	state          *pagination.State
	phase          Phase
	results        []T
	hasResult      bool
	contentChanged bool
	pendingReload  bool
	configLocked   bool
	observerBound  bool
	gen            uint64
	cancel         context.CancelFunc
	deliverQueue   [][]T

	loading    atomic.Bool
	delivering atomic.Bool
}

// New creates a new loader.
func New[T any](cfg Config[T]) (*Loader[T], error) {
	if cfg.OnResult == nil {
		return nil, fmt.Errorf("on-result callback is required")
	}

	if cfg.ObjectsPerPage < 0 {
		return nil, fmt.Errorf("objects per page must be >= 0 (got %d)", cfg.ObjectsPerPage)
	}

	logger := log.With().Str("component", "query-loader").Logger()

	return &Loader[T]{
		cfg:    cfg,
		logger: logger,
		state:  pagination.NewState(cfg.ObjectsPerPage),
		phase:  PhaseIdle,
	}, nil
}

// SetQuery sets the query source to load from.
// Must be called before the first load; changing it mid-flight only affects
// loads dispatched afterwards.
func (l *Loader[T]) SetQuery(src query.Source[T]) {
	l.mu.Lock()
	l.source = src
	l.mu.Unlock()
}

// SetObjectsPerPage changes the page size.
// Returns ErrConfigLocked once a load has run; Reset unlocks configuration.
func (l *Loader[T]) SetObjectsPerPage(n int) error {
	if n < 0 {
		return fmt.Errorf("objects per page must be >= 0 (got %d)", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.configLocked {
		return ErrConfigLocked
	}
	l.state.ObjectsPerPage = n
	return nil
}

// SetMode changes the fetch strategy.
// Returns ErrConfigLocked once a load has run; Reset unlocks configuration.
func (l *Loader[T]) SetMode(m Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.configLocked {
		return ErrConfigLocked
	}
	l.cfg.Mode = m
	return nil
}

// Start makes the loader active.
// A prior result is delivered immediately, before any new fetch. A new load
// begins if the content changed since the last load or no result exists yet.
func (l *Loader[T]) Start() {
	l.mu.Lock()

	if l.phase != PhaseLoading {
		l.phase = PhaseStarted
	}

	if l.hasResult {
		l.deliverQueue = append(l.deliverQueue, l.results)
	}

	bindObserver := !l.observerBound && l.cfg.Observer != nil
	if bindObserver {
		l.observerBound = true
	}

	needLoad := false
	if l.contentChanged {
		l.contentChanged = false
		if l.loading.Load() {
			l.pendingReload = true
		} else {
			needLoad = true
		}
	} else if !l.hasResult && !l.loading.Load() {
		needLoad = true
	}

	l.mu.Unlock()

	l.drainDeliveries()

	if bindObserver {
		l.cfg.Observer.Register(l.NotifyContentChanged)
	}

	if needLoad {
		l.beginLoad()
	}
}

// Stop makes the loader inactive and requests best-effort cancellation of any
// in-flight load. Accumulated results are retained; a completion arriving
// after Stop is merged but held undelivered until the next Start.
func (l *Loader[T]) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase == PhaseReset {
		return
	}

	if l.cancel != nil {
		l.cancel()
	}
	l.phase = PhaseStopped

	l.logger.Debug().Msg("Loader stopped")
}

// Reset stops the loader, discards the accumulated result entirely, and
// unregisters the observer. A fresh Start is required before the loader
// delivers again; configuration is unlocked.
func (l *Loader[T]) Reset() {
	l.mu.Lock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	// Any in-flight completion carries the old generation and is discarded.
	l.gen++
	l.results = nil
	l.hasResult = false
	l.deliverQueue = nil
	l.state.Reset()
	l.contentChanged = false
	l.pendingReload = false
	l.configLocked = false
	l.phase = PhaseReset

	unbind := l.observerBound && l.cfg.Observer != nil
	l.observerBound = false

	l.mu.Unlock()

	if unbind {
		l.cfg.Observer.Unregister()
	}

	l.logger.Debug().Msg("Loader reset")
}

// RequestNextPage schedules a load of the page after the current one.
// Returns ErrNoNextPage if HasNextPage is false.
func (l *Loader[T]) RequestNextPage() error {
	l.mu.Lock()
	if !l.hasNextLocked() {
		l.mu.Unlock()
		return ErrNoNextPage
	}
	l.state.AdvancePage()
	l.mu.Unlock()

	l.NotifyContentChanged()
	return nil
}

// HasNextPage reports whether a further page exists: a non-empty result has
// been loaded and the last applied fetch saw more data.
func (l *Loader[T]) HasNextPage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasNextLocked()
}

func (l *Loader[T]) hasNextLocked() bool {
	return l.hasResult && len(l.results) > 0 && l.state.HasNextPage
}

// NotifyContentChanged signals that the data behind the query changed.
// An active loader reloads immediately; an inactive one reloads on the next
// Start.
func (l *Loader[T]) NotifyContentChanged() {
	l.mu.Lock()
	active := l.phase == PhaseStarted || l.phase == PhaseLoading
	if !active {
		l.contentChanged = true
	}
	l.mu.Unlock()

	if active {
		l.beginLoad()
	}
}

// Results returns the current accumulated snapshot (nil before the first
// load and after Reset). The slice must be treated as immutable.
func (l *Loader[T]) Results() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results
}

// Phase returns the current lifecycle phase.
func (l *Loader[T]) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// beginLoad dispatches a fetch on a background goroutine.
// Only one fetch may be in flight; overlapping requests coalesce into a
// single pending reload executed after the current one completes.
func (l *Loader[T]) beginLoad() {
	if !l.loading.CompareAndSwap(false, true) {
		l.mu.Lock()
		l.pendingReload = true
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.configLocked = true
	if l.phase == PhaseStarted {
		l.phase = PhaseLoading
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	gen := l.gen
	src := l.source
	mode := l.cfg.Mode
	batchSize := l.cfg.BatchSize
	pageToLoad := l.state.PageToLoad
	objectsPerPage := l.state.ObjectsPerPage
	l.mu.Unlock()

	l.logger.Debug().
		Str("mode", mode.String()).
		Int("page", pageToLoad).
		Msg("Load dispatched")

	go l.load(ctx, gen, src, mode, batchSize, pageToLoad, objectsPerPage)
}

// load runs on the worker goroutine and must not touch loader state directly.
func (l *Loader[T]) load(ctx context.Context, gen uint64, src query.Source[T], mode Mode, batchSize, pageToLoad, objectsPerPage int) {
	var result pagination.PageResult[T]
	var err error

	switch {
	case src == nil:
		// No query configured: a load yields an empty page.
		result = pagination.PageResult[T]{PageIndex: pageToLoad}
	case mode == ModeExhaustive:
		result, err = pagination.FetchAll(ctx, src, batchSize)
	default:
		result, err = pagination.FetchPage(ctx, src, pageToLoad, objectsPerPage)
	}

	l.complete(gen, mode, result, err)
}

// complete applies a finished fetch against the current lifecycle phase.
func (l *Loader[T]) complete(gen uint64, mode Mode, result pagination.PageResult[T], err error) {
	l.mu.Lock()
	l.loading.Store(false)

	// A completion from before a Reset must never mutate results nor reach
	// the consumer.
	if gen != l.gen {
		discardedResultsTotal.Inc()
		loadsTotal.WithLabelValues(mode.String(), "discarded").Inc()
		l.logger.Debug().Msg("Discarding completion from before reset")
		l.finishLocked()
		return
	}

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// Cancelled by Stop: drop silently, nothing was applied. A reload
		// past the first result was serving a content change that never
		// landed, so remember it for the next Start.
		loadsTotal.WithLabelValues(mode.String(), "cancelled").Inc()
		l.logger.Debug().Msg("Load cancelled")
		if l.hasResult {
			l.contentChanged = true
		}
		l.finishLocked()
		return
	}

	var onError func(error)
	if err != nil {
		// Fail closed: the load behaves like an empty page. No pagination
		// state is touched, so a later content change or next-page request
		// retries from the same position.
		loadsTotal.WithLabelValues(mode.String(), "failure").Inc()
		l.logger.Warn().Err(err).Msg("Load failed, treating as empty page")
		onError = l.cfg.OnError
		result = pagination.PageResult[T]{PageIndex: result.PageIndex}
	} else {
		loadsTotal.WithLabelValues(mode.String(), "success").Inc()
		if result.Exhaustive {
			// Nothing is paginated further after an exhaustive load.
			l.state.HasNextPage = false
		} else if !l.state.Apply(result.PageIndex, result.HasNextPage) {
			staleCompletionsTotal.Inc()
			l.logger.Debug().
				Int("page", result.PageIndex).
				Int("current_page", l.state.CurrentPage).
				Msg("Stale completion, pagination state unchanged")
		}
	}

	// Ownership handoff: publish a fresh snapshot instead of mutating the
	// delivered slice under the consumer.
	merged := make([]T, 0, len(l.results)+len(result.Items))
	merged = append(merged, l.results...)
	merged = append(merged, result.Items...)
	l.results = merged
	l.hasResult = true

	switch l.phase {
	case PhaseLoading:
		l.phase = PhaseStarted
		l.deliverQueue = append(l.deliverQueue, merged)
	case PhaseStarted:
		l.deliverQueue = append(l.deliverQueue, merged)
	default:
		// Stopped: retain undelivered until the next Start.
	}
	l.mu.Unlock()

	if onError != nil {
		onError(err)
	}

	l.drainDeliveries()
	l.runPendingReload()
}

// finishLocked handles the shared tail of cancelled and discarded
// completions. If the loader was restarted while the doomed load was still in
// flight it has no result and nothing scheduled, so dispatch a fresh load.
// Called with l.mu held; releases it.
func (l *Loader[T]) finishLocked() {
	if l.phase == PhaseLoading {
		l.phase = PhaseStarted
	}
	redispatch := l.phase == PhaseStarted && !l.hasResult
	l.mu.Unlock()

	if redispatch {
		l.beginLoad()
		return
	}
	l.runPendingReload()
}

// runPendingReload dispatches a coalesced reload if the loader is active.
// On an inactive loader the invalidation is kept as a content change so the
// next Start still reloads.
func (l *Loader[T]) runPendingReload() {
	l.mu.Lock()
	pending := l.pendingReload
	l.pendingReload = false
	active := l.phase == PhaseStarted
	if pending && !active {
		l.contentChanged = true
	}
	l.mu.Unlock()

	if pending && active {
		l.beginLoad()
	}
}

// drainDeliveries hands queued snapshots to the consumer in publication order.
// A single drainer runs at a time, so a load completing while an earlier
// snapshot is still being delivered cannot overtake it.
func (l *Loader[T]) drainDeliveries() {
	if !l.delivering.CompareAndSwap(false, true) {
		return
	}

	for {
		l.mu.Lock()
		if len(l.deliverQueue) == 0 {
			l.delivering.Store(false)
			l.mu.Unlock()
			return
		}
		snapshot := l.deliverQueue[0]
		l.deliverQueue = l.deliverQueue[1:]
		l.mu.Unlock()

		l.deliver(snapshot)
	}
}

// deliver hands a snapshot to the consumer callback.
func (l *Loader[T]) deliver(snapshot []T) {
	deliveriesTotal.Inc()
	accumulatedItems.Observe(float64(len(snapshot)))

	l.logger.Debug().
		Int("items", len(snapshot)).
		Msg("Delivering accumulated result")

	l.cfg.OnResult(snapshot)
}
