// Package models defines domain entities and persistence interfaces for the nodeq pending-item queue.
//
// The package contains two categories of types:
//
// 1. Queue entities: lightweight values flowing between the queue, the engines and the gateway
//   - [PendingItem] : One schedulable work unit (a collision or a playlist entry)
//   - [Collision] : Tagged variant describing where a name collision came from
//   - [Resolution] : Tagged variant holding either a collision [Choice] or a [PlaybackType]
//   - [RawItem] : Unnormalized input fetched from the storage API
//   - [BatchResult] : Aggregate outcome of a batched gateway call
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [ResolutionRecord] : Audit trail entry for every resolved item
//   - [Preferences] : Player preferences (shuffle, repeat, background play)
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
