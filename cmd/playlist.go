package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/nodeq/internal/formatter"
	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/playlist"
	"github.com/desertthunder/nodeq/internal/shared"
)

const defaultProfile = "default"

// PlaylistShow builds a playlist from a folder and prints the derived view.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	parent := cmd.String("parent")
	if parent == "" {
		return fmt.Errorf("%w: --parent", shared.ErrMissingArgument)
	}
	if err := r.requireGateway(); err != nil {
		return err
	}

	store, err := r.preferences()
	if err != nil {
		return err
	}

	seed := uint64(r.config.Player.ShuffleSeed)
	if cmd.IsSet("seed") {
		seed = uint64(cmd.Int("seed"))
	}

	p := playlist.NewPlayer(playlist.Options{
		Profile:  cmd.String("profile"),
		MaxRetry: r.config.Player.MaxRetry,
		Seed:     seed,
		Store:    store,
		Logger:   r.logger,
	})
	defer p.Close()

	criteria := models.Criteria{Parent: parent, Filter: cmd.String("filter")}
	if err := playlist.Build(ctx, r.gateway, criteria, p, cmd.String("playing")); err != nil {
		return err
	}

	if cmd.IsSet("shuffle") {
		p.SetShuffleEnabled(cmd.Bool("shuffle"))
	}
	if q := cmd.String("search"); q != "" {
		p.Search(q)
	}

	view := p.View()
	if cmd.Bool("json") {
		return r.writeJSON(viewOutput(view), true)
	}

	_, err = r.output.Write(formatter.ViewToText(view))
	return err
}

type entryJSON struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Selected bool   `json:"selected,omitempty"`
}

type viewJSON struct {
	Entries      []entryJSON `json:"entries"`
	PlayingIndex int         `json:"playing_index"`
	Shuffled     bool        `json:"shuffled"`
	Filtered     bool        `json:"filtered"`
}

func viewOutput(v playlist.View) viewJSON {
	out := viewJSON{
		Entries:      make([]entryJSON, 0, len(v.Entries)),
		PlayingIndex: v.PlayingIndex,
		Shuffled:     v.Shuffled,
		Filtered:     v.Filtered,
	}
	for _, e := range v.Entries {
		out.Entries = append(out.Entries, entryJSON{
			ID:       e.Item.ID,
			Label:    e.Item.DisplayLabel,
			Type:     e.Type.String(),
			Selected: e.Selected,
		})
	}
	return out
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Build media playlists from drive folders",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the playlist of a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "parent",
						Aliases:  []string{"p"},
						Usage:    "Folder node handle to list",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Only include items whose name contains this text",
					},
					&cli.StringFlag{
						Name:  "playing",
						Usage: "Item id to start playing (default: first item)",
					},
					&cli.BoolFlag{
						Name:  "shuffle",
						Usage: "Enable or disable shuffle and save the preference",
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Shuffle seed (default: player.shuffle_seed)",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Search the playlist by name",
					},
					&cli.StringFlag{
						Name:  "profile",
						Usage: "Preferences profile",
						Value: defaultProfile,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the view as JSON",
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}
