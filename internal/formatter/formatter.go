// package formatter renders workflow summaries, resolution histories and playlist views (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/playlist"
	"github.com/desertthunder/nodeq/internal/shared"
)

// SummaryMessage reports the outcome of a workflow, e.g. "3 items copied" or "2 items copied, 1 failed".
func SummaryMessage(op models.Operation, count, errorCount int) string {
	verb := pastTense(op)
	succeeded := count - errorCount

	switch {
	case count == 0:
		return fmt.Sprintf("No items %s", verb)
	case errorCount == 0:
		return fmt.Sprintf("%s %s", pluralItems(count), verb)
	case succeeded <= 0:
		return fmt.Sprintf("%s failed to %s", pluralItems(errorCount), op)
	default:
		return fmt.Sprintf("%s %s, %d failed", pluralItems(succeeded), verb, errorCount)
	}
}

func pastTense(op models.Operation) string {
	switch op {
	case models.OperationUpload:
		return "uploaded"
	case models.OperationCopy:
		return "copied"
	case models.OperationMove:
		return "moved"
	default:
		return "processed"
	}
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// ResolutionsToCSV converts resolution records to CSV with columns:
// Sequence, Workflow, Item, Name, Kind, Operation, Choice, Scope, Target, Error, Created
func ResolutionsToCSV(records []*models.ResolutionRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Workflow", "Item", "Name", "Kind", "Operation", "Choice", "Scope", "Target", "Error", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.WorkflowID(),
			r.ItemID(),
			r.Name(),
			r.Kind().String(),
			r.Operation().String(),
			r.Choice().String(),
			string(r.Scope()),
			r.TargetName(),
			r.ErrorMessage(),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ResolutionsToMarkdown renders resolution records as a Markdown table grouped under one heading.
func ResolutionsToMarkdown(records []*models.ResolutionRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Resolution history\n\n")
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(records)))
	if len(records) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| # | Name | Kind | Operation | Choice | Scope | Result |\n")
	buf.WriteString("|---|------|------|-----------|--------|-------|--------|\n")
	for _, r := range records {
		name := r.Name()
		if r.TargetName() != "" {
			name = fmt.Sprintf("%s → %s", r.Name(), r.TargetName())
		}
		result := "ok"
		if r.Failed() {
			result = r.ErrorMessage()
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s |\n",
			r.Sequence(), name, r.Kind(), r.Operation(), r.Choice(), r.Scope(), result))
	}

	return buf.Bytes()
}

// ViewToText renders a playlist view with section headers and a ▶ marker on the playing entry.
func ViewToText(v playlist.View) []byte {
	var buf bytes.Buffer

	if len(v.Entries) == 0 {
		buf.WriteString("Playlist is empty\n")
		return buf.Bytes()
	}

	if v.Filtered {
		buf.WriteString(fmt.Sprintf("Search results: %d\n", len(v.Entries)))
	}

	for i, e := range v.Entries {
		if e.HeaderVisible && !v.Filtered {
			buf.WriteString(sectionHeader(e.Type, v.Shuffled))
		}

		marker := " "
		if e.Type == models.TypePlaying {
			marker = "▶"
		}
		selected := ""
		if e.Selected {
			selected = " [x]"
		}
		buf.WriteString(fmt.Sprintf("%s %d. %s%s\n", marker, i+1, e.Item.DisplayLabel, selected))
	}

	return buf.Bytes()
}

func sectionHeader(t models.PlaybackType, shuffled bool) string {
	switch t {
	case models.TypePrevious:
		return "Previous\n"
	case models.TypePlaying:
		return "Now playing\n"
	case models.TypeNext:
		if shuffled {
			return "Next (shuffled)\n"
		}
		return "Next\n"
	default:
		return ""
	}
}

// WriteResolutions writes records to path as csv, markdown or json.
func WriteResolutions(records []*models.ResolutionRecord, format, path string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "csv":
		data, err = ResolutionsToCSV(records)
	case "markdown", "md":
		data = ResolutionsToMarkdown(records)
	case "json":
		data, err = ResolutionsToJSON(records)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

// ResolutionsToJSON renders records as an indented JSON array.
func ResolutionsToJSON(records []*models.ResolutionRecord) ([]byte, error) {
	return shared.MarshalJSON(recordsJSON(records), true)
}

// RecordJSON is the serialized form of a [models.ResolutionRecord].
type RecordJSON struct {
	Sequence   int       `json:"sequence"`
	WorkflowID string    `json:"workflow_id"`
	ItemID     string    `json:"item_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Operation  string    `json:"operation"`
	Choice     string    `json:"choice"`
	Scope      string    `json:"scope"`
	TargetName string    `json:"target_name,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func recordsJSON(records []*models.ResolutionRecord) []RecordJSON {
	out := make([]RecordJSON, len(records))
	for i, r := range records {
		out[i] = RecordJSON{
			Sequence:   r.Sequence(),
			WorkflowID: r.WorkflowID(),
			ItemID:     r.ItemID(),
			Name:       r.Name(),
			Kind:       r.Kind().String(),
			Operation:  r.Operation().String(),
			Choice:     r.Choice().String(),
			Scope:      string(r.Scope()),
			TargetName: r.TargetName(),
			Error:      r.ErrorMessage(),
			CreatedAt:  r.CreatedAt(),
		}
	}
	return out
}
