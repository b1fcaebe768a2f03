// Package resolver drives the name-collision workflow over a [queue.Queue].
//
// # State machine
//
// An [Engine] moves between three states:
//
//	AwaitingDecision -> Dispatching -> AwaitingDecision | Completed
//
// Completed is reached once the queue is empty and no dispatch is in flight.
//
// # Decisions
//
// A [Decision] applies a [models.Choice] either to the current item or to the rest of the queue.
// "Apply to rest" is kind-scoped: while both files and folders are pending it only covers the
// current kind, which is always files because they are queued first. Folders are then resolved
// one at a time or with a second "apply to rest".
//
// Rename needs a pre-computed target name on every affected item (see package naming).
// ReplaceUpdateMerge is only threaded through to the [Dispatcher]. Cancel never dispatches.
//
// # Errors
//
// Single dispatch failures are published and returned, and the cursor still advances. Batch
// failures are counted. Once a batch call returns, its scope is dequeued and recorded even when
// it failed. Hard errors (see [shared.IsHardError]) are published at once and returned so the
// caller can stop; items the gateway already applied stay in the totals.
//
// # Output ports
//
// The engine publishes the current item on a replaying [shared.State] and one-shot
// [Summary], [ErrorEvent] and resolution-list events on [shared.Events] ports.
package resolver
