package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/playlist"
	"github.com/desertthunder/nodeq/internal/shared"
)

type prefsJSON struct {
	Profile         string `json:"profile"`
	ShuffleEnabled  bool   `json:"shuffle_enabled"`
	BackgroundPlay  bool   `json:"background_play"`
	AudioRepeatMode string `json:"audio_repeat_mode"`
	VideoRepeatMode string `json:"video_repeat_mode"`
}

// PrefsShow prints the saved playback preferences of a profile.
func (r *Runner) PrefsShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}

	prefs, err := store.Load(cmd.String("profile"))
	if err != nil {
		return err
	}
	return r.writePrefs(prefs, cmd.Bool("json"))
}

// PrefsSet updates the preferences named by the flags that were given.
func (r *Runner) PrefsSet(ctx context.Context, cmd *cli.Command) error {
	var audio, video models.RepeatMode
	var err error
	if cmd.IsSet("audio-repeat") {
		if audio, err = models.ParseRepeatMode(cmd.String("audio-repeat")); err != nil {
			return fmt.Errorf("%w: --audio-repeat: %v", shared.ErrInvalidFlag, err)
		}
	}
	if cmd.IsSet("video-repeat") {
		if video, err = models.ParseRepeatMode(cmd.String("video-repeat")); err != nil {
			return fmt.Errorf("%w: --video-repeat: %v", shared.ErrInvalidFlag, err)
		}
	}

	store, err := r.preferences()
	if err != nil {
		return err
	}

	p := playlist.NewPlayer(playlist.Options{
		Profile: cmd.String("profile"),
		Store:   store,
		Logger:  r.logger,
	})
	defer p.Close()

	changed := 0
	if cmd.IsSet("shuffle") {
		p.SetShuffleEnabled(cmd.Bool("shuffle"))
		changed++
	}
	if cmd.IsSet("background") {
		p.SetBackgroundPlay(cmd.Bool("background"))
		changed++
	}
	if cmd.IsSet("audio-repeat") {
		p.SetRepeatMode(false, audio)
		changed++
	}
	if cmd.IsSet("video-repeat") {
		p.SetRepeatMode(true, video)
		changed++
	}
	if changed == 0 {
		return fmt.Errorf("%w: nothing to set", shared.ErrMissingArgument)
	}

	r.logger.Info("preferences updated", "profile", cmd.String("profile"), "changed", changed)
	return r.writePrefs(p.Preferences(), cmd.Bool("json"))
}

func (r *Runner) writePrefs(p models.Preferences, useJSON bool) error {
	if useJSON {
		return r.writeJSON(prefsJSON{
			Profile:         p.Profile,
			ShuffleEnabled:  p.ShuffleEnabled,
			BackgroundPlay:  p.BackgroundPlay,
			AudioRepeatMode: p.AudioRepeatMode.String(),
			VideoRepeatMode: p.VideoRepeatMode.String(),
		}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Preferences: %s", p.Profile))
	r.writePlain("Shuffle:         %v\n", p.ShuffleEnabled)
	r.writePlain("Background play: %v\n", p.BackgroundPlay)
	r.writePlain("Audio repeat:    %s\n", p.AudioRepeatMode)
	r.writePlain("Video repeat:    %s\n", p.VideoRepeatMode)
	return nil
}

func prefsCommand(r *Runner) *cli.Command {
	profileFlag := &cli.StringFlag{
		Name:  "profile",
		Usage: "Preferences profile",
		Value: defaultProfile,
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}

	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change playback preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the saved preferences",
				Flags:  []cli.Flag{profileFlag, jsonFlag},
				Action: r.PrefsShow,
			},
			{
				Name:  "set",
				Usage: "Change one or more preferences",
				Flags: []cli.Flag{
					profileFlag, jsonFlag,
					&cli.BoolFlag{Name: "shuffle", Usage: "Shuffle playlists"},
					&cli.BoolFlag{Name: "background", Usage: "Keep playing in the background"},
					&cli.StringFlag{Name: "audio-repeat", Usage: "Audio repeat mode (none, one, all)"},
					&cli.StringFlag{Name: "video-repeat", Usage: "Video repeat mode (none, one, all)"},
				},
				Action: r.PrefsSet,
			},
		},
	}
}
