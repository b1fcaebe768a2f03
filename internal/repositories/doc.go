// Package repositories implements SQLite persistence for resolution history and player preferences.
//
// Key Implementations:
//   - [ResolutionRepository] : Audit trail of resolved pending items, one row per item
//   - [PreferencesRepository] : Playback preferences keyed by profile name
//
// Resolution records support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
