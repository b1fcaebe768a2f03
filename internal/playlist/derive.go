package playlist

import (
	"strings"

	"github.com/desertthunder/nodeq/internal/models"
)

// NoScroll is the [View.ScrollTarget] when the caller should keep its scroll position.
const NoScroll = -1

// Entry is one row of a [View].
type Entry struct {
	Item          models.PendingItem // Copy of the playlist item, Resolution set to Type
	Type          models.PlaybackType
	HeaderVisible bool // First row of its section
	Selected      bool
}

// View is the derived display order of a playlist.
type View struct {
	Entries      []Entry
	PlayingIndex int // Index of the playing entry, -1 when filtered or empty
	ScrollTarget int // Index to scroll to, or NoScroll
	Shuffled     bool
	Filtered     bool
}

// Input is everything a [View] is derived from.
type Input struct {
	Items          []models.PendingItem
	PlayingID      string
	ShuffleEnabled bool
	Shuffle        ShuffleOrder
	Filter         string
	Scroll         bool
	Selected       map[string]bool
}

// Derive computes the view for in. It never modifies in and returns equal views for equal inputs.
//
// With shuffle enabled and an order matching the item count, the view is the shuffled previous
// chain, the playing item and the shuffled next chain. An order that is not a permutation of the
// items is ignored.
// A non-empty filter keeps the items whose label contains it, ignoring case, all tagged
// [models.TypePrevious]; it never moves the playing item.
func Derive(in Input) View {
	if len(in.Items) == 0 {
		return View{PlayingIndex: -1, ScrollTarget: NoScroll}
	}

	playing := indexOf(in.Items, in.PlayingID)
	if playing < 0 {
		playing = 0
	}

	if in.Filter != "" {
		return filtered(in)
	}

	ordered, pivot, shuffled := arrange(in, playing)

	v := View{
		Entries:      make([]Entry, len(ordered)),
		PlayingIndex: pivot,
		ScrollTarget: NoScroll,
		Shuffled:     shuffled,
	}
	for i, item := range ordered {
		t := models.TypeNext
		switch {
		case i < pivot:
			t = models.TypePrevious
		case i == pivot:
			t = models.TypePlaying
		}
		v.Entries[i] = entry(item, t, in.Selected)
	}

	if pivot > 0 {
		v.Entries[0].HeaderVisible = true
	}
	v.Entries[pivot].HeaderVisible = true
	if pivot+1 < len(v.Entries) {
		v.Entries[pivot+1].HeaderVisible = true
	}

	if in.Scroll {
		v.ScrollTarget = pivot
	}
	return v
}

// arrange returns the items in play order with the index of the playing item.
func arrange(in Input, playing int) ([]models.PendingItem, int, bool) {
	if !in.ShuffleEnabled || !Usable(in.Shuffle, len(in.Items)) {
		return in.Items, playing, false
	}

	var previous []models.PendingItem
	for i, n := in.Shuffle.Previous(playing), 0; i != Unset && n < len(in.Items); i, n = in.Shuffle.Previous(i), n+1 {
		previous = append(previous, in.Items[i])
	}

	ordered := make([]models.PendingItem, 0, len(in.Items))
	for i := len(previous) - 1; i >= 0; i-- {
		ordered = append(ordered, previous[i])
	}
	ordered = append(ordered, in.Items[playing])

	for i, n := in.Shuffle.Next(playing), 0; i != Unset && n < len(in.Items); i, n = in.Shuffle.Next(i), n+1 {
		ordered = append(ordered, in.Items[i])
	}

	return ordered, len(previous), true
}

func filtered(in Input) View {
	query := strings.ToLower(in.Filter)
	v := View{PlayingIndex: -1, ScrollTarget: NoScroll, Filtered: true}

	for _, item := range in.Items {
		if strings.Contains(strings.ToLower(item.DisplayLabel), query) {
			v.Entries = append(v.Entries, entry(item, models.TypePrevious, in.Selected))
		}
	}
	if in.Scroll && len(v.Entries) > 0 {
		v.ScrollTarget = 0
	}
	return v
}

func entry(item models.PendingItem, t models.PlaybackType, selected map[string]bool) Entry {
	item.Resolution = models.PlaybackResolution(t)
	return Entry{Item: item, Type: t, Selected: selected[item.ID]}
}

func indexOf(items []models.PendingItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
