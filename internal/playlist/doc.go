// Package playlist keeps a media playlist and derives its display order.
//
// [Derive] is a pure function from the canonical items, the playing item, the shuffle state and
// the search filter to a [View]. The [Player] owns the mutable state and recomputes the view after
// every change, publishing it on a replaying port.
//
// A view never owns data. Entries are copies re-tagged with a [models.PlaybackType]; mutations go
// through the Player and are followed by a fresh derivation.
package playlist
