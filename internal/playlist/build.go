package playlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

// Build seeds p from src. Folders are skipped and c.Filter narrows the list by name.
// playingID selects the first item to play; it falls back to the first item.
func Build(ctx context.Context, src Source, c models.Criteria, p *Player, playingID string) error {
	if src == nil {
		return fmt.Errorf("%w: no playlist source", shared.ErrServiceUnavailable)
	}

	raw, err := src.FetchSourceItems(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist items: %w", err)
	}

	query := strings.ToLower(c.Filter)
	items := make([]models.PendingItem, 0, len(raw))
	for _, r := range raw {
		if !r.IsFile {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Name), query) {
			continue
		}
		items = append(items, r.PendingItem())
	}

	if len(items) == 0 {
		return fmt.Errorf("%w: nothing playable under %q", shared.ErrEmptyPlaylist, c.Parent)
	}

	p.SetItems(items, playingID)
	return nil
}
