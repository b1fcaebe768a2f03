package models

import "fmt"

// Choice is the user's decision for a name collision.
type Choice int

const (
	ChoicePending Choice = iota
	ChoiceRename
	ChoiceReplaceUpdateMerge // Files: replace, or add a version when versioning is on. Folders: merge.
	ChoiceCancel
)

func (c Choice) String() string {
	switch c {
	case ChoicePending:
		return "pending"
	case ChoiceRename:
		return "rename"
	case ChoiceReplaceUpdateMerge:
		return "replace_update_merge"
	case ChoiceCancel:
		return "cancel"
	default:
		return ""
	}
}

// ParseChoice accepts the [Choice.String] forms plus the short CLI aliases.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "rename", "r":
		return ChoiceRename, nil
	case "replace_update_merge", "replace", "update", "merge", "o":
		return ChoiceReplaceUpdateMerge, nil
	case "cancel", "skip", "c":
		return ChoiceCancel, nil
	case "pending":
		return ChoicePending, nil
	default:
		return 0, fmt.Errorf("unknown choice %q", s)
	}
}

// PlaybackType tags a playlist entry relative to the playing item.
type PlaybackType int

const (
	TypeUnset PlaybackType = iota
	TypePrevious
	TypePlaying
	TypeNext
)

func (t PlaybackType) String() string {
	switch t {
	case TypePrevious:
		return "previous"
	case TypePlaying:
		return "playing"
	case TypeNext:
		return "next"
	default:
		return "unset"
	}
}

// Family identifies which variant of a [Resolution] is populated.
type Family int

const (
	FamilyNone Family = iota
	FamilyCollision
	FamilyPlayback
)

// Resolution holds either a collision [Choice] or a [PlaybackType].
// Only one family is active per queue instance.
type Resolution struct {
	family   Family
	choice   Choice
	playback PlaybackType
}

// CollisionResolution returns a collision-family resolution.
func CollisionResolution(c Choice) Resolution {
	return Resolution{family: FamilyCollision, choice: c}
}

// PlaybackResolution returns a playback-family resolution.
func PlaybackResolution(t PlaybackType) Resolution {
	return Resolution{family: FamilyPlayback, playback: t}
}

// Family returns the active variant.
func (r Resolution) Family() Family { return r.family }

// Choice returns the collision choice; ok is false for other families.
func (r Resolution) Choice() (c Choice, ok bool) {
	return r.choice, r.family == FamilyCollision
}

// Playback returns the playback type; ok is false for other families.
func (r Resolution) Playback() (t PlaybackType, ok bool) {
	return r.playback, r.family == FamilyPlayback
}

func (r Resolution) String() string {
	switch r.family {
	case FamilyCollision:
		return r.choice.String()
	case FamilyPlayback:
		return r.playback.String()
	default:
		return "none"
	}
}

// Operation is the kind of external action a collision belongs to.
type Operation int

const (
	OperationUpload Operation = iota
	OperationCopy
	OperationMove
)

func (o Operation) String() string {
	switch o {
	case OperationUpload:
		return "upload"
	case OperationCopy:
		return "copy"
	case OperationMove:
		return "move"
	default:
		return ""
	}
}

// ParseOperation is the inverse of [Operation.String].
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "upload":
		return OperationUpload, nil
	case "copy":
		return OperationCopy, nil
	case "move":
		return OperationMove, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", s)
	}
}
