package tasks

import (
	"fmt"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/resolver"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoadQueue Phase = iota
	ResolveItems
	Complete
	ExportHistoryPhase
)

func (p Phase) String() string {
	switch p {
	case LoadQueue:
		return "load_queue"
	case ResolveItems:
		return "resolve_items"
	case Complete:
		return "complete"
	case ExportHistoryPhase:
		return "export_history"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadedUpdate(files, folders int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadQueue,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d files and %d folders", files, folders),
	}
}

func resolvedUpdate(step, total int, item models.PendingItem, d resolver.Decision) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, item.DisplayLabel, d.Choice)
	if d.Choice == models.ChoiceRename {
		msg = fmt.Sprintf("[%d/%d] %s → %s", step, total, item.DisplayLabel, item.RenameName)
	}
	if d.ApplyToRest {
		msg += " (apply to rest)"
	}
	return ProgressUpdate{
		Phase:   ResolveItems,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    item,
	}
}

func failedUpdate(step, total int, item models.PendingItem, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.DisplayLabel, err),
		Data:    item,
	}
}

func completeUpdate(s resolver.Summary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: s.Message,
		Data:    s,
	}
}

func exportedUpdate(step, total int, workflowID, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportHistoryPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, workflowID, path),
	}
}

func exportFailedUpdate(step, total int, workflowID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportHistoryPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, workflowID, err),
	}
}
