package playlist

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

// DefaultMaxRetry is the number of playback errors tolerated before giving up on an item.
const DefaultMaxRetry = 6

// PreferencesStore loads and saves playback preferences.
//
// Implemented by repositories.PreferencesRepository.
type PreferencesStore interface {
	Load(profile string) (models.Preferences, error)
	Save(p models.Preferences) error
}

// Source lists the items a playlist is built from.
type Source interface {
	FetchSourceItems(ctx context.Context, c models.Criteria) ([]models.RawItem, error)
}

// Options configures a [Player].
type Options struct {
	Profile  string
	MaxRetry int
	Seed     uint64 // Shuffle seed, 0 picks a random one
	Store    PreferencesStore
	Logger   *log.Logger
}

// Player owns a playlist: its canonical order, the playing item, shuffle, search and
// selection state, and the playback preferences.
type Player struct {
	mu sync.Mutex

	items          []models.PendingItem
	playingID      string
	shuffle        ShuffleOrder
	filter         string
	selected       map[string]bool
	actionMode     bool
	reordered      bool
	retry          int
	maxRetry       int
	prefs          models.Preferences
	store          PreferencesStore
	rng            *rand.Rand
	logger         *log.Logger
	shuffleEnabled bool

	view    *shared.State[View]
	playing *shared.State[*models.PendingItem]
	errors  *shared.Events[error]
}

// NewPlayer creates an empty player and loads preferences from opts.Store.
// A failed load is logged and the defaults are used.
func NewPlayer(opts Options) *Player {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = DefaultMaxRetry
	}

	p := &Player{
		selected: make(map[string]bool),
		maxRetry: opts.MaxRetry,
		prefs:    models.DefaultPreferences(opts.Profile),
		store:    opts.Store,
		rng:      NewRand(opts.Seed),
		logger:   shared.WithLogger(logger, "component", "player"),
		view:     shared.NewState[View](),
		playing:  shared.NewState[*models.PendingItem](),
		errors:   shared.NewEvents[error](),
	}

	if p.store != nil {
		prefs, err := p.store.Load(opts.Profile)
		if err != nil {
			p.logger.Warn("failed to load preferences", "error", err)
		} else {
			p.prefs = prefs
		}
	}
	p.shuffleEnabled = p.prefs.ShuffleEnabled
	return p
}

// ViewState is the replaying port for the derived view.
func (p *Player) ViewState() *shared.State[View] { return p.view }

// PlayingState is the replaying port for the playing item.
func (p *Player) PlayingState() *shared.State[*models.PendingItem] { return p.playing }

// Errors is the port for playback errors.
func (p *Player) Errors() *shared.Events[error] { return p.errors }

// View derives the current view without publishing it.
func (p *Player) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Derive(p.input(false))
}

// Items returns the canonical order.
func (p *Player) Items() []models.PendingItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PendingItem, len(p.items))
	copy(out, p.items)
	return out
}

// Playing returns the playing item, or nil when the playlist is empty.
func (p *Player) Playing() *models.PendingItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playingItem()
}

// Preferences returns the current playback preferences.
func (p *Player) Preferences() models.Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs
}

// SetItems replaces the playlist. Duplicate ids keep their first occurrence. When playingID is
// not in items the first item plays.
func (p *Player) SetItems(items []models.PendingItem, playingID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(items))
	p.items = make([]models.PendingItem, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		p.items = append(p.items, item)
	}

	p.playingID = ""
	if indexOf(p.items, playingID) >= 0 {
		p.playingID = playingID
	} else if len(p.items) > 0 {
		p.playingID = p.items[0].ID
	}

	p.selected = make(map[string]bool)
	p.reordered = false
	p.retry = 0
	if p.shuffleEnabled {
		p.shuffle = RandomOrder(len(p.items), p.rng)
	}

	p.logger.Debug("playlist set", "items", len(p.items), "playing", p.playingID)
	p.publishPlaying()
	p.recompute(true)
}

// SetPlaying moves the cursor to id. Unknown ids are ignored.
func (p *Player) SetPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if indexOf(p.items, id) < 0 {
		return false
	}
	p.playingID = id
	p.retry = 0
	p.publishPlaying()
	p.recompute(true)
	return true
}

// Next moves to the item after the playing one in play order. With repeat-all it wraps around.
func (p *Player) Next(video bool) bool {
	return p.step(video, func(o ShuffleOrder, i int) int { return o.Next(i) }, func(o ShuffleOrder) int { return o.First() })
}

// Previous moves to the item before the playing one in play order. With repeat-all it wraps around.
func (p *Player) Previous(video bool) bool {
	return p.step(video, func(o ShuffleOrder, i int) int { return o.Previous(i) }, func(o ShuffleOrder) int { return o.Last() })
}

func (p *Player) step(video bool, move func(ShuffleOrder, int) int, wrap func(ShuffleOrder) int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return false
	}

	order := p.activeOrder()
	cur := indexOf(p.items, p.playingID)
	if p.repeatMode(video) == models.RepeatOne {
		return true
	}

	next := move(order, cur)
	if next == Unset {
		if p.repeatMode(video) != models.RepeatAll {
			return false
		}
		next = wrap(order)
	}

	if next < 0 || next >= len(p.items) {
		return false
	}

	p.playingID = p.items[next].ID
	p.retry = 0
	p.publishPlaying()
	p.recompute(true)
	return true
}

// Remove drops id from the playlist. Removing the playing item moves playback to the next item.
// Removing the last item publishes and returns [shared.ErrEmptyPlaylist].
func (p *Player) Remove(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.remove(id)
	if ok {
		p.recompute(false)
	}
	return ok, err
}

// ToggleSelected flips the selection of id and returns the number of selected items.
func (p *Player) ToggleSelected(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if indexOf(p.items, id) >= 0 {
		if p.selected[id] {
			delete(p.selected, id)
		} else {
			p.selected[id] = true
		}
		p.recompute(false)
	}
	return len(p.selected)
}

// ClearSelections deselects everything.
func (p *Player) ClearSelections() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.selected = make(map[string]bool)
	p.recompute(false)
}

// RemoveSelected removes every selected item and returns how many were removed.
func (p *Player) RemoveSelected() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		removed int
		lastErr error
	)
	for _, item := range append([]models.PendingItem(nil), p.items...) {
		if !p.selected[item.ID] {
			continue
		}
		ok, err := p.remove(item.ID)
		if ok {
			removed++
		}
		if err != nil {
			lastErr = err
		}
	}

	p.selected = make(map[string]bool)
	p.recompute(false)
	return removed, lastErr
}

// SetActionMode toggles selection mode. Leaving it clears the selection.
func (p *Player) SetActionMode(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.actionMode = on
	if !on {
		p.selected = make(map[string]bool)
	}
	p.recompute(false)
}

// ActionMode reports whether selection mode is on.
func (p *Player) ActionMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.actionMode
}

// Swap exchanges the canonical positions a and b. It is only allowed while the view shows the
// canonical order, i.e. without shuffle or filter.
func (p *Player) Swap(a, b int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a < 0 || b < 0 || a >= len(p.items) || b >= len(p.items) {
		return fmt.Errorf("%w: swap %d and %d in %d items", shared.ErrInvalidInput, a, b, len(p.items))
	}
	if p.filter != "" || p.shuffleEnabled {
		return fmt.Errorf("%w: cannot reorder a shuffled or filtered playlist", shared.ErrInvalidInput)
	}
	if a == b {
		return nil
	}

	p.items[a], p.items[b] = p.items[b], p.items[a]
	if o, ok := p.shuffle.(*Order); ok && o.Len() == len(p.items) {
		p.shuffle = o.Swapped(a, b)
	}
	p.reordered = true
	p.recompute(false)
	return nil
}

// CommitOrder returns the canonical order after a series of swaps so the caller can
// rebuild the play source. ok is false when nothing moved since the last commit.
func (p *Player) CommitOrder() (items []models.PendingItem, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.reordered {
		return nil, false
	}
	p.reordered = false

	items = make([]models.PendingItem, len(p.items))
	copy(items, p.items)
	p.logger.Debug("order committed", "items", len(items))
	return items, true
}

// Rename updates the display label of id.
func (p *Player) Rename(id, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%w: empty name", shared.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := indexOf(p.items, id)
	if i < 0 {
		return false, nil
	}
	p.items[i].DisplayLabel = name
	if id == p.playingID {
		p.publishPlaying()
	}
	p.recompute(false)
	return true, nil
}

// SetShuffleEnabled toggles shuffle, generating an order if none matches, and saves the preference.
func (p *Player) SetShuffleEnabled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shuffleEnabled = on
	if on && !Usable(p.shuffle, len(p.items)) {
		p.shuffle = RandomOrder(len(p.items), p.rng)
	}
	p.prefs.ShuffleEnabled = on
	p.savePrefs()
	p.recompute(true)
}

// NewShuffle regenerates the shuffle order.
func (p *Player) NewShuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shuffle = RandomOrder(len(p.items), p.rng)
	p.recompute(true)
}

// OnShuffleChanged accepts an order pushed by the external player. Orders that are not a
// permutation of the playlist are kept but ignored until they are.
func (p *Player) OnShuffleChanged(order ShuffleOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shuffle = order
	if !Usable(order, len(p.items)) {
		p.logger.Debug("shuffle order not usable", "items", len(p.items))
	}
	p.recompute(true)
}

// Search filters the view by query. An empty query restores the full view.
func (p *Player) Search(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter = strings.TrimSpace(query)
	p.recompute(false)
}

// ScrollToPlaying republishes the view with the playing item as scroll target.
func (p *Player) ScrollToPlaying() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recompute(true)
}

// OnPlayerError counts a playback failure and reports whether the item may be retried.
// Once the limit is passed the failure is published and the counter resets.
func (p *Player) OnPlayerError(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retry++
	if p.retry <= p.maxRetry {
		p.logger.Debug("retrying playback", "attempt", p.retry, "error", err)
		return true
	}

	p.logger.Error("playback failed", "item", p.playingID, "attempts", p.retry, "error", err)
	p.retry = 0
	p.errors.Publish(err)
	return false
}

// ResetRetry clears the playback error counter.
func (p *Player) ResetRetry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retry = 0
}

// Retries returns the number of consecutive playback errors.
func (p *Player) Retries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retry
}

// SetRepeatMode sets the repeat mode for audio or video and saves it.
func (p *Player) SetRepeatMode(video bool, mode models.RepeatMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if video {
		p.prefs.VideoRepeatMode = mode
	} else {
		p.prefs.AudioRepeatMode = mode
	}
	p.savePrefs()
}

// RepeatMode returns the repeat mode for audio or video.
func (p *Player) RepeatMode(video bool) models.RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeatMode(video)
}

// SetBackgroundPlay toggles playback in the background and saves it.
func (p *Player) SetBackgroundPlay(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prefs.BackgroundPlay = on
	p.savePrefs()
}

// Close releases every subscription.
func (p *Player) Close() {
	p.view.Close()
	p.playing.Close()
	p.errors.Close()
}

func (p *Player) remove(id string) (bool, error) {
	i := indexOf(p.items, id)
	if i < 0 {
		return false, nil
	}

	if id == p.playingID {
		switch {
		case i+1 < len(p.items):
			p.playingID = p.items[i+1].ID
		case i > 0:
			p.playingID = p.items[i-1].ID
		default:
			p.playingID = ""
		}
		p.retry = 0
	}

	p.items = append(p.items[:i], p.items[i+1:]...)
	delete(p.selected, id)
	if o, ok := p.shuffle.(*Order); ok && o.Len() == len(p.items)+1 {
		p.shuffle = o.Without(i)
	}
	p.publishPlaying()

	if len(p.items) == 0 {
		err := fmt.Errorf("%w: removed %s", shared.ErrEmptyPlaylist, id)
		p.errors.Publish(err)
		return true, err
	}
	return true, nil
}

func (p *Player) input(scroll bool) Input {
	selected := make(map[string]bool, len(p.selected))
	for id := range p.selected {
		selected[id] = true
	}
	return Input{
		Items:          p.items,
		PlayingID:      p.playingID,
		ShuffleEnabled: p.shuffleEnabled,
		Shuffle:        p.shuffle,
		Filter:         p.filter,
		Scroll:         scroll,
		Selected:       selected,
	}
}

func (p *Player) recompute(scroll bool) { p.view.Publish(Derive(p.input(scroll))) }

func (p *Player) publishPlaying() { p.playing.Publish(p.playingItem()) }

func (p *Player) playingItem() *models.PendingItem {
	i := indexOf(p.items, p.playingID)
	if i < 0 {
		return nil
	}
	item := p.items[i]
	return &item
}

// activeOrder is the shuffle order when usable, otherwise the canonical order.
func (p *Player) activeOrder() ShuffleOrder {
	if p.shuffleEnabled && Usable(p.shuffle, len(p.items)) {
		return p.shuffle
	}
	indices := make([]int, len(p.items))
	for i := range indices {
		indices[i] = i
	}
	o, _ := NewOrder(indices)
	return o
}

func (p *Player) repeatMode(video bool) models.RepeatMode {
	if video {
		return p.prefs.VideoRepeatMode
	}
	return p.prefs.AudioRepeatMode
}

func (p *Player) savePrefs() {
	if p.store == nil {
		return
	}
	if err := p.store.Save(p.prefs); err != nil {
		p.logger.Warn("failed to save preferences", "error", err)
	}
}
