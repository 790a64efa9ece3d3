// Package pagination implements the two fetch strategies of the query loader
// and the page-boundary state they feed.
//
// FetchPage loads one bounded page with a lookahead sentinel: it requests one
// item beyond the page size solely to detect whether more data exists, then
// trims it before the page is returned. FetchAll loads every page of a query
// in fixed-size batches and concatenates them into one result.
//
// Example usage:
//
//	result, err := pagination.FetchPage(ctx, source, state.PageToLoad, state.ObjectsPerPage)
//	if err == nil {
//		state.Apply(result.PageIndex, result.HasNextPage)
//	}
//
// Strategies never mutate State themselves. They produce an immutable
// PageResult; the caller owns the state and applies the result, which keeps
// stale completions from overwriting newer pages.
package pagination
