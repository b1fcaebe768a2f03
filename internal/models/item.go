package models

import "fmt"

// Kind classifies a pending item as a file or a folder.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return ""
	}
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(s string) (Kind, error) {
	switch s {
	case "file":
		return KindFile, nil
	case "folder":
		return KindFolder, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

// KindOf returns [KindFile] when isFile is set, [KindFolder] otherwise.
func KindOf(isFile bool) Kind {
	if isFile {
		return KindFile
	}
	return KindFolder
}

// PendingItem is one schedulable work unit owned by a queue.
type PendingItem struct {
	ID           string     // Unique within one queue: node handle, file hash or synthetic id
	Kind         Kind       // File or folder, scopes "apply to rest"
	SourceRef    any        // Reference to the entity in the external system
	Resolution   Resolution // Recorded decision, zero until resolved
	DisplayLabel string     // Name shown to the user, matched by search filters
	RenameName   string     // Pre-computed non-colliding name used by [ChoiceRename]
}

// IsFile reports whether the item is a file.
func (p PendingItem) IsFile() bool { return p.Kind == KindFile }

// Collision returns the [Collision] carried in SourceRef, if any.
func (p PendingItem) Collision() (Collision, bool) {
	c, ok := p.SourceRef.(Collision)
	return c, ok
}

// RawItem is an item as returned by the storage API before normalization.
type RawItem struct {
	ID     string `json:"id" toml:"id"`
	Name   string `json:"name" toml:"name"`
	IsFile bool   `json:"is_file" toml:"is_file"`
	Size   int64  `json:"size,omitempty" toml:"size"`
	Ref    any    `json:"-" toml:"-"`
}

// PendingItem converts a raw item into a queue entry carrying the raw item itself as source reference.
func (r RawItem) PendingItem() PendingItem {
	ref := r.Ref
	if ref == nil {
		ref = r
	}
	return PendingItem{
		ID:           r.ID,
		Kind:         KindOf(r.IsFile),
		SourceRef:    ref,
		DisplayLabel: r.Name,
	}
}

// BatchResult is the aggregate outcome of a batched gateway call.
type BatchResult struct {
	Count      int `json:"count"`
	ErrorCount int `json:"error_count"`
}

// Succeeded returns the number of items that did not fail.
func (b BatchResult) Succeeded() int { return b.Count - b.ErrorCount }

// Add folds other into b.
func (b *BatchResult) Add(other BatchResult) {
	b.Count += other.Count
	b.ErrorCount += other.ErrorCount
}

// Criteria selects the source items used to seed a playlist.
type Criteria struct {
	Parent string // Parent node handle whose children are listed
	Filter string // Optional case-insensitive name filter
}
