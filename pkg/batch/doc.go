// Package batch runs profile fetches for many identifiers in fixed-size
// windows.
//
// Identifiers are split into consecutive windows of at most ConcurrencyCap
// entries. All fetches of a window run concurrently and the window fully
// joins before the next one starts, with a short cooldown in between.
// Dispositions are reported in input order, not completion order.
//
// Example usage:
//
//	sched := batch.NewScheduler(orchestrator, batch.DefaultConfig(),
//		batch.WithCollector(aggregator))
//	run, err := sched.Run(ctx, []string{"alice", "bob"}, profile.AllCategorySet())
//
// The scheduler:
//   - Checks the context before each window (a started window always finishes)
//   - Recovers panics from a fetch into a failure for that identifier
//   - Stamps every event emitted during the run with completed/total counts
//   - Returns partial results plus the Pending identifiers on cancellation
package batch
