package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/nodeq/internal/models"
)

// PreferencesRepository stores one row of player preferences per profile.
type PreferencesRepository struct {
	db *sql.DB
}

// NewPreferencesRepository creates a new [PreferencesRepository] with the given database connection
func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Load returns the stored preferences for profile, or [models.DefaultPreferences] when none were saved.
func (r *PreferencesRepository) Load(profile string) (models.Preferences, error) {
	query := `
		SELECT shuffle_enabled, background_play, audio_repeat_mode, video_repeat_mode, updated_at
		FROM preferences
		WHERE profile = ?
	`

	var (
		shuffle, background bool
		audio, video        int
		updatedAt           time.Time
	)

	err := r.db.QueryRow(query, profile).Scan(&shuffle, &background, &audio, &video, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(profile), nil
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to query preferences: %w", err)
	}

	return models.Preferences{
		Profile:         profile,
		ShuffleEnabled:  shuffle,
		BackgroundPlay:  background,
		AudioRepeatMode: models.RepeatModeFromOrdinal(audio),
		VideoRepeatMode: models.RepeatModeFromOrdinal(video),
		UpdatedAt:       updatedAt,
	}, nil
}

// Save upserts p under its profile name.
func (r *PreferencesRepository) Save(p models.Preferences) error {
	if p.Profile == "" {
		return fmt.Errorf("validation failed: profile is required")
	}

	query := `
		INSERT INTO preferences (profile, shuffle_enabled, background_play, audio_repeat_mode, video_repeat_mode, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			shuffle_enabled = excluded.shuffle_enabled,
			background_play = excluded.background_play,
			audio_repeat_mode = excluded.audio_repeat_mode,
			video_repeat_mode = excluded.video_repeat_mode,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, p.Profile, p.ShuffleEnabled, p.BackgroundPlay,
		int(p.AudioRepeatMode), int(p.VideoRepeatMode), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Profiles lists every profile with saved preferences.
func (r *PreferencesRepository) Profiles() ([]string, error) {
	rows, err := r.db.Query(`SELECT profile FROM preferences ORDER BY profile ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var profile string
		if err := rows.Scan(&profile); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
