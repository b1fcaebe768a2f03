package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/nodeq/internal/formatter"
	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/resolver"
	"github.com/desertthunder/nodeq/internal/shared"
	"github.com/desertthunder/nodeq/internal/tasks"
	"github.com/desertthunder/nodeq/internal/ui"
)

// ResolveRun answers every collision in a manifest without prompting.
func (r *Runner) ResolveRun(ctx context.Context, cmd *cli.Command) error {
	m, err := r.loadManifest(cmd)
	if err != nil {
		return err
	}

	opts := tasks.RunOpts{
		ApplyAll:   cmd.Bool("apply-all"),
		Deferred:   cmd.Bool("defer"),
		WorkflowID: cmd.String("workflow"),
	}
	if s := cmd.String("choice"); s != "" {
		if opts.Choice, err = models.ParseChoice(s); err != nil {
			return fmt.Errorf("%w: --choice: %v", shared.ErrInvalidFlag, err)
		}
	}

	deferred := opts.Deferred || m.Deferred
	if !deferred {
		if err := r.requireGateway(); err != nil {
			return err
		}
	}

	if !cmd.Bool("no-record") {
		repo, err := r.resolutions()
		if err != nil {
			return err
		}
		opts.Recorder = repo
	}

	var dispatcher resolver.Dispatcher
	if r.gateway != nil {
		dispatcher = r.gateway
	}
	task := tasks.NewResolutionTask(dispatcher, r.logger)

	useJSON := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if useJSON {
				continue
			}
			switch update.Phase {
			case tasks.LoadQueue:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ResolveItems:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.Complete:
				r.writePlain("\n%s\n", update.Message)
			}
		}
	}()

	r.logger.Info("running manifest", "path", cmd.StringArg("manifest"), "operation", m.Operation, "deferred", deferred)
	result, runErr := task.Run(ctx, progressCh, m, opts)
	close(progressCh)
	<-done

	if result == nil {
		return runErr
	}

	if useJSON {
		if err := r.writeJSON(runOutput(result, runErr), true); err != nil {
			return err
		}
		return runErr
	}

	r.writePlain("\n")
	r.writePlainHeader("Resolution Complete")
	r.writePlain("Workflow: %s\n", result.WorkflowID)
	r.writePlain("Loaded: %d files, %d folders\n", result.Loaded.FileCount, result.Loaded.FolderCount)
	r.writePlain("Resolved: %d/%d\n", len(result.Resolved), len(result.Loaded.Items))
	if result.Summary.Message != "" {
		r.writePlain("%s\n", result.Summary.Message)
	}
	if len(result.Errors) > 0 {
		r.writePlain("\nErrors:\n")
		for _, e := range result.Errors {
			label := e.ItemID
			if label == "" {
				label = "batch"
			}
			r.writePlain("  - %s: %v\n", label, e.Err)
		}
	}
	return runErr
}

type runJSON struct {
	WorkflowID string   `json:"workflow_id"`
	Files      int      `json:"files"`
	Folders    int      `json:"folders"`
	Resolved   []string `json:"resolved"`
	Count      int      `json:"count"`
	ErrorCount int      `json:"error_count"`
	Message    string   `json:"message,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Stopped    string   `json:"stopped,omitempty"`
}

func runOutput(result *tasks.RunResult, runErr error) runJSON {
	out := runJSON{
		WorkflowID: result.WorkflowID,
		Files:      result.Loaded.FileCount,
		Folders:    result.Loaded.FolderCount,
		Resolved:   make([]string, 0, len(result.Resolved)),
		Count:      result.Summary.Count,
		ErrorCount: result.Summary.ErrorCount,
		Message:    result.Summary.Message,
	}
	for _, item := range result.Resolved {
		out.Resolved = append(out.Resolved, item.ID)
	}
	for _, e := range result.Errors {
		out.Errors = append(out.Errors, e.Err.Error())
	}
	if runErr != nil {
		out.Stopped = runErr.Error()
	}
	return out
}

// ResolveUI opens the interactive decision screen for a manifest.
func (r *Runner) ResolveUI(ctx context.Context, cmd *cli.Command) error {
	m, err := r.loadManifest(cmd)
	if err != nil {
		return err
	}
	op, err := m.Op()
	if err != nil {
		return err
	}
	items, _, err := m.Items()
	if err != nil {
		return err
	}

	deferred := cmd.Bool("defer") || m.Deferred
	if !deferred {
		if err := r.requireGateway(); err != nil {
			return err
		}
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/nodeq-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	opts := resolver.Options{Operation: op, Deferred: deferred, Logger: r.logger}
	if !cmd.Bool("no-record") {
		repo, err := r.resolutions()
		if err != nil {
			return err
		}
		opts.Recorder = repo
	}

	var dispatcher resolver.Dispatcher
	if r.gateway != nil {
		dispatcher = r.gateway
	}
	engine := resolver.NewEngine(dispatcher, opts)
	defer engine.Close()
	engine.Load(items)

	model := ui.NewModel(ctx, engine, m.Existing, r.logger)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}

// History prints or exports stored resolution records.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.resolutions()
	if err != nil {
		return err
	}

	format := cmd.String("format")
	output := cmd.String("output")
	workflow := cmd.String("workflow")

	if workflow == "" && output != "" {
		ids, err := repo.Workflows()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return r.writePlain("No resolutions recorded\n")
		}
		return r.exportHistory(ctx, repo, ids, format, output)
	}

	var records []*models.ResolutionRecord
	if workflow != "" {
		records, err = repo.ListByWorkflow(workflow)
	} else {
		records, err = repo.List(map[string]any{"limit": cmd.Int("limit")})
	}
	if err != nil {
		return err
	}

	if output != "" {
		if err := formatter.WriteResolutions(records, format, output); err != nil {
			return err
		}
		r.logger.Info("history written", "path", output, "records", len(records))
		return r.writePlain("✓ Wrote %d records to %s\n", len(records), output)
	}

	if len(records) == 0 {
		return r.writePlain("No resolutions recorded\n")
	}

	switch format {
	case "json":
		data, err := formatter.ResolutionsToJSON(records)
		if err != nil {
			return err
		}
		_, err = r.output.Write(append(data, '\n'))
		return err
	case "csv":
		data, err := formatter.ResolutionsToCSV(records)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	default:
		_, err = r.output.Write(formatter.ResolutionsToMarkdown(records))
		return err
	}
}

func (r *Runner) exportHistory(ctx context.Context, src tasks.HistorySource, ids []string, format, dir string) error {
	progressCh := make(chan tasks.ProgressUpdate, len(ids)+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.ExportHistory(ctx, progressCh, src, ids, tasks.ExportOpts{
		Format:     format,
		OutputDir:  dir,
		NumWorkers: r.config.API.BatchWorkers,
	})
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n✓ Exported %d/%d workflows to %s\n", result.Succeeded, len(result.Exports), result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", filepath.Base(result.ManifestPath))
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d workflow exports failed", result.Failed)
	}
	return nil
}

func (r *Runner) loadManifest(cmd *cli.Command) (*tasks.Manifest, error) {
	path := cmd.StringArg("manifest")
	if path == "" {
		return nil, fmt.Errorf("%w: manifest path", shared.ErrMissingArgument)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: manifest %s does not exist", shared.ErrInvalidInput, path)
	}

	m, err := tasks.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if op := cmd.String("op"); op != "" {
		if _, err := models.ParseOperation(op); err != nil {
			return nil, fmt.Errorf("%w: --op: %v", shared.ErrInvalidFlag, err)
		}
		m.Operation = op
	}
	return m, nil
}

func resolveCommand(r *Runner) *cli.Command {
	manifestArg := []cli.Argument{&cli.StringArg{Name: "manifest"}}
	opFlag := &cli.StringFlag{
		Name:  "op",
		Usage: "Override the manifest operation (upload, copy, move, import)",
	}
	deferFlag := &cli.BoolFlag{
		Name:  "defer",
		Usage: "Record decisions without contacting the storage service",
	}
	noRecordFlag := &cli.BoolFlag{
		Name:  "no-record",
		Usage: "Do not store decisions in the database",
	}

	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve name collisions from a manifest",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Resolve a manifest without prompting",
				Arguments: manifestArg,
				Flags: []cli.Flag{
					opFlag, deferFlag, noRecordFlag,
					&cli.StringFlag{
						Name:  "choice",
						Usage: "Default decision for items without one (rename, replace, cancel)",
					},
					&cli.BoolFlag{
						Name:  "apply-all",
						Usage: "Apply the default decision to all remaining items of the same kind",
					},
					&cli.StringFlag{
						Name:  "workflow",
						Usage: "Workflow id to record under (default: generated)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.ResolveRun,
			},
			{
				Name:      "ui",
				Usage:     "Resolve a manifest interactively",
				Arguments: manifestArg,
				Flags:     []cli.Flag{opFlag, deferFlag, noRecordFlag},
				Action:    r.ResolveUI,
			},
			{
				Name:  "history",
				Usage: "Show or export recorded decisions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "workflow",
						Usage: "Only show one workflow",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format (markdown, csv, json)",
						Value: "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file, or a directory with one file per workflow when --workflow is not set",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum records to show",
						Value: 100,
					},
				},
				Action: r.History,
			},
		},
	}
}
