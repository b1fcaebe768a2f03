package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/nodeq/internal/models"
)

var (
	_ list.Item = pendingItem{}
)

// pendingItem wraps [models.PendingItem] to implement [list.Item].
type pendingItem struct {
	item models.PendingItem
}

func (i pendingItem) FilterValue() string { return i.item.DisplayLabel }
func (i pendingItem) Title() string       { return i.item.DisplayLabel }
func (i pendingItem) Description() string {
	desc := i.item.Kind.String()
	if i.item.RenameName != "" {
		desc = fmt.Sprintf("%s • rename → %s", desc, i.item.RenameName)
	}
	return desc
}

func listItems(items []models.PendingItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = pendingItem{item: item}
	}
	return out
}
