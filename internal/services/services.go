package services

import (
	"context"

	"github.com/desertthunder/nodeq/internal/models"
)

// Gateway performs the external actions behind a resolution workflow.
type Gateway interface {
	// ResolveSingle applies choice to one item. Cancel never reaches the gateway.
	ResolveSingle(ctx context.Context, item models.PendingItem, op models.Operation, choice models.Choice) error

	// ResolveBatch applies choice to every item and reports the aggregate outcome.
	// Per-item failures are counted; only hard errors are returned.
	ResolveBatch(ctx context.Context, items []models.PendingItem, op models.Operation, choice models.Choice) (models.BatchResult, error)

	// FetchSourceItems lists the items used to seed a playlist.
	FetchSourceItems(ctx context.Context, c models.Criteria) ([]models.RawItem, error)
}

// NodeRequest is the body of copy, move and upload requests.
type NodeRequest struct {
	Node      string `json:"node,omitempty"`
	Parent    string `json:"parent"`
	Name      string `json:"name,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	Collision string `json:"collision,omitempty"`
	Merge     bool   `json:"merge,omitempty"`
	Replace   bool   `json:"replace,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	Size      int64  `json:"size,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// NodeResponse is returned by the proxy after a successful node operation.
type NodeResponse struct {
	Handle string `json:"handle"`
}

// ErrorResponse is the body of a failed proxy request.
type ErrorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
