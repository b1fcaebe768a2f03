// Package queue implements the canonical ordered collection of pending items.
//
// A [Queue] holds files before folders, keeps per-kind counters consistent with its contents
// and exposes the head of the sequence as the current item. Resolved items are moved to an
// audit list instead of being discarded.
//
// A Queue is not safe for concurrent use. Exactly one coordinator owns it; callbacks arriving
// from other goroutines must be marshaled onto that coordinator before they touch the queue.
package queue

import "github.com/desertthunder/nodeq/internal/models"

// NoCursor is the cursor index of an empty queue.
const NoCursor = -1

// Normalized is the result of [Normalize]: the canonical order plus per-kind counts.
type Normalized struct {
	Items       []models.PendingItem
	FileCount   int
	FolderCount int
}

// Normalize orders files before folders, preserving the relative input order within each kind.
//
// Items whose id was already seen are dropped so ids stay unique. Normalize does not modify raw
// and returns the same result for the same input.
func Normalize(raw []models.PendingItem) Normalized {
	seen := make(map[string]bool, len(raw))
	files := make([]models.PendingItem, 0, len(raw))
	var folders []models.PendingItem

	for _, item := range raw {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true

		if item.Kind == models.KindFile {
			files = append(files, item)
		} else {
			folders = append(folders, item)
		}
	}

	return Normalized{
		Items:       append(files, folders...),
		FileCount:   len(files),
		FolderCount: len(folders),
	}
}

// Queue is the ordered collection of pending items with the cursor at its head.
type Queue struct {
	items       []models.PendingItem
	fileCount   int
	folderCount int
	resolved    []models.PendingItem
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// SetAll replaces the queue contents with the normalized form of raw and clears the audit list.
func (q *Queue) SetAll(raw []models.PendingItem) Normalized {
	n := Normalize(raw)

	q.items = make([]models.PendingItem, len(n.Items))
	copy(q.items, n.Items)
	q.fileCount = n.FileCount
	q.folderCount = n.FolderCount
	q.resolved = nil

	return n
}

// Current returns a copy of the item at the cursor, or nil when the queue is empty.
// A nil result means there is no more work.
func (q *Queue) Current() *models.PendingItem {
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	return &item
}

// CursorIndex returns the index of the current item, or [NoCursor] when empty.
func (q *Queue) CursorIndex() int {
	if len(q.items) == 0 {
		return NoCursor
	}
	return 0
}

// DequeueAndAdvance records res on the current item, moves it to the audit list, decrements
// the matching counter and returns the new current item.
//
// On an empty queue it does nothing and returns nil.
func (q *Queue) DequeueAndAdvance(res models.Resolution) *models.PendingItem {
	if len(q.items) == 0 {
		return nil
	}

	q.resolveAt(0, res)
	return q.Current()
}

// DequeueKind resolves every pending item of kind with res, in canonical order,
// and returns them. Items of other kinds stay queued.
func (q *Queue) DequeueKind(kind models.Kind, res models.Resolution) []models.PendingItem {
	var taken []models.PendingItem
	for i := 0; i < len(q.items); {
		if q.items[i].Kind != kind {
			i++
			continue
		}
		taken = append(taken, q.resolveAt(i, res))
	}
	return taken
}

// DequeueAll resolves every pending item with res and returns them in canonical order.
func (q *Queue) DequeueAll(res models.Resolution) []models.PendingItem {
	var taken []models.PendingItem
	for len(q.items) > 0 {
		taken = append(taken, q.resolveAt(0, res))
	}
	return taken
}

// RemoveByID drops the item with id without resolving it. It reports whether an item was removed;
// unknown ids are a no-op.
func (q *Queue) RemoveByID(id string) bool {
	i := q.indexOf(id)
	if i < 0 {
		return false
	}

	q.decrement(q.items[i].Kind)
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

// SetRenameName stores the target name used when id is resolved with [models.ChoiceRename].
func (q *Queue) SetRenameName(id, name string) bool {
	i := q.indexOf(id)
	if i < 0 {
		return false
	}
	q.items[i].RenameName = name
	return true
}

// Contains reports whether id is still pending.
func (q *Queue) Contains(id string) bool {
	return q.indexOf(id) >= 0
}

// Pending returns the number of pending items of kind.
func (q *Queue) Pending(kind models.Kind) int {
	if kind == models.KindFile {
		return q.fileCount
	}
	return q.folderCount
}

// Len returns the number of pending items.
func (q *Queue) Len() int { return len(q.items) }

// IsEmpty reports whether nothing is pending.
func (q *Queue) IsEmpty() bool { return len(q.items) == 0 }

// Items returns a copy of the pending items in canonical order.
func (q *Queue) Items() []models.PendingItem {
	out := make([]models.PendingItem, len(q.items))
	copy(out, q.items)
	return out
}

// Resolved returns a copy of the audit list in resolution order.
func (q *Queue) Resolved() []models.PendingItem {
	out := make([]models.PendingItem, len(q.resolved))
	copy(out, q.resolved)
	return out
}

func (q *Queue) resolveAt(i int, res models.Resolution) models.PendingItem {
	item := q.items[i]
	item.Resolution = res

	q.decrement(item.Kind)
	q.items = append(q.items[:i], q.items[i+1:]...)
	q.resolved = append(q.resolved, item)

	return item
}

func (q *Queue) decrement(kind models.Kind) {
	if kind == models.KindFile {
		q.fileCount--
	} else {
		q.folderCount--
	}
}

func (q *Queue) indexOf(id string) int {
	for i := range q.items {
		if q.items[i].ID == id {
			return i
		}
	}
	return -1
}
