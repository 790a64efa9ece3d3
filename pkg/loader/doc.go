// Package loader provides a lifecycle-bound paginated query loader.
//
// A Loader fetches ordered pages from a query.Source on a background
// goroutine, accumulates them across loads, and delivers the full accumulated
// result to a consumer callback whenever the loader is active. Its lifecycle
// mirrors a host screen or view being visible: Start makes the loader active
// (delivering any prior result immediately), Stop cancels in-flight work
// without dropping results, and Reset discards everything.
//
// Example usage:
//
//	ldr, err := loader.New(loader.Config[Order]{
//		ObjectsPerPage: 25,
//		OnResult: func(orders []Order) {
//			render(orders)
//		},
//	})
//	ldr.SetQuery(source)
//	ldr.Start()
//	...
//	if ldr.HasNextPage() {
//		ldr.RequestNextPage()
//	}
//
// The loader:
//   - Runs at most one fetch at a time; overlapping requests coalesce into a
//     single pending reload
//   - Applies completions in dispatch order and ignores stale pages
//   - Swallows fetch failures as empty loads (fail closed), surfacing them
//     only through logs, metrics, and the optional OnError callback
//   - Delivers immutable snapshots, serialized in completion order; consumers
//     must not modify them
//
// All public methods are intended to be called from a single consumer
// goroutine. Fetches never block the caller.
package loader
