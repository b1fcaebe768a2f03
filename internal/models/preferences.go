package models

import (
	"fmt"
	"time"
)

// RepeatMode is the player's repeat toggle.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatOne:
		return "one"
	default:
		return "all"
	}
}

// RepeatModeFromOrdinal maps unknown stored values to [RepeatAll].
func RepeatModeFromOrdinal(n int) RepeatMode {
	switch n {
	case int(RepeatNone):
		return RepeatNone
	case int(RepeatOne):
		return RepeatOne
	default:
		return RepeatAll
	}
}

// ParseRepeatMode is the inverse of [RepeatMode.String].
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "none":
		return RepeatNone, nil
	case "one":
		return RepeatOne, nil
	case "all":
		return RepeatAll, nil
	default:
		return 0, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// Preferences are the persisted player settings of one profile.
type Preferences struct {
	Profile         string
	ShuffleEnabled  bool
	BackgroundPlay  bool
	AudioRepeatMode RepeatMode
	VideoRepeatMode RepeatMode
	UpdatedAt       time.Time
}

// DefaultPreferences mirrors a fresh install: no shuffle, background play on, no repeat.
func DefaultPreferences(profile string) Preferences {
	return Preferences{
		Profile:        profile,
		BackgroundPlay: true,
	}
}
