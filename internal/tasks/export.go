package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/nodeq/internal/formatter"
	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

// HistorySource lists stored resolution records. Implemented by repositories.ResolutionRepository.
type HistorySource interface {
	ListByWorkflow(workflowID string) ([]*models.ResolutionRecord, error)
}

// ExportOpts configures [ExportHistory].
type ExportOpts struct {
	Format     string // csv, markdown or json
	OutputDir  string // Default: nodeq_history_{epoch}
	NumWorkers int    // Concurrent writers (default: 4)
}

// WorkflowExport is the outcome for one workflow.
type WorkflowExport struct {
	WorkflowID string `json:"workflow_id"`
	Records    int    `json:"records"`
	File       string `json:"file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ExportResult summarizes a history export.
type ExportResult struct {
	OutputDirectory string           `json:"output_directory"`
	Exports         []WorkflowExport `json:"exports"`
	Succeeded       int              `json:"succeeded"`
	Failed          int              `json:"failed"`
	ManifestPath    string           `json:"-"`
}

var formatExtensions = map[string]string{"csv": "csv", "markdown": "md", "md": "md", "json": "json"}

// ExportHistory writes the records of each workflow to its own file and a JSON manifest of the
// results. Failures of single workflows are reported in the result, not returned.
func ExportHistory(ctx context.Context, prog chan<- ProgressUpdate, src HistorySource, workflowIDs []string, opts ExportOpts) (*ExportResult, error) {
	ext, ok := formatExtensions[opts.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("nodeq_history_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make(chan string, len(workflowIDs))
	results := make(chan WorkflowExport, len(workflowIDs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					results <- WorkflowExport{WorkflowID: id, Error: ctx.Err().Error()}
					continue
				}
				results <- exportWorkflow(src, id, opts, ext)
			}
		}()
	}

	for _, id := range workflowIDs {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &ExportResult{OutputDirectory: opts.OutputDir, Exports: make([]WorkflowExport, 0, len(workflowIDs))}
	completed := 0
	for res := range results {
		completed++
		result.Exports = append(result.Exports, res)
		if res.Error == "" {
			result.Succeeded++
			sendProgress(prog, exportedUpdate(completed, len(workflowIDs), res.WorkflowID, res.File))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(workflowIDs), res.WorkflowID, fmt.Errorf("%s", res.Error)))
		}
	}

	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportWorkflow(src HistorySource, id string, opts ExportOpts, ext string) WorkflowExport {
	res := WorkflowExport{WorkflowID: id}

	records, err := src.ListByWorkflow(id)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(records) == 0 {
		res.Error = fmt.Sprintf("no records for workflow %s", id)
		return res
	}

	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.%s", id, ext))
	if err := formatter.WriteResolutions(records, opts.Format, path); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Records = len(records)
	res.File = path
	return res
}
