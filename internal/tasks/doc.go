// package tasks drives resolution workflows without a terminal UI.
//
// [ResolutionTask] replays a collision manifest through a resolver engine, and [ExportHistory]
// writes stored resolution records to disk with a small worker pool. Both emit progress updates
// via channels for non-blocking status reporting to the CLI layer.
package tasks
