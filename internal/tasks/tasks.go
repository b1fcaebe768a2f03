package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/naming"
	"github.com/desertthunder/nodeq/internal/queue"
	"github.com/desertthunder/nodeq/internal/resolver"
	"github.com/desertthunder/nodeq/internal/shared"
)

// RunOpts configures a manifest run.
type RunOpts struct {
	Choice     models.Choice // Default decision for items without an explicit choice
	ApplyAll   bool          // Apply the default decision to the rest of the current kind
	Deferred   bool          // Record decisions without dispatching, overrides the manifest
	WorkflowID string
	Recorder   resolver.Recorder
}

// RunResult contains everything a manifest run produced.
type RunResult struct {
	WorkflowID string
	Loaded     queue.Normalized
	Resolved   []models.PendingItem
	Summary    resolver.Summary
	Errors     []resolver.ErrorEvent
}

// ResolutionTask resolves collision manifests without user interaction.
type ResolutionTask struct {
	dispatcher resolver.Dispatcher
	logger     *log.Logger
}

// NewResolutionTask creates a task dispatching through d. d may be nil for deferred runs.
func NewResolutionTask(d resolver.Dispatcher, logger *log.Logger) *ResolutionTask {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &ResolutionTask{dispatcher: d, logger: shared.WithLogger(logger, "task", "resolve")}
}

// Run loads the manifest into a new engine and answers every item.
//
// Items with an explicit choice in the manifest are resolved one by one. The default choice goes
// to everything else, batched with apply-to-rest when opts.ApplyAll is set and no later item
// carries its own choice. Rename targets are assigned up front from the manifest's existing names.
// A hard error stops the run and is returned with the partial result.
func (t *ResolutionTask) Run(ctx context.Context, progress chan<- ProgressUpdate, m *Manifest, opts RunOpts) (*RunResult, error) {
	op, err := m.Op()
	if err != nil {
		return nil, err
	}

	items, choices, err := m.Items()
	if err != nil {
		return nil, err
	}
	items = naming.Assign(items, naming.Taken(m.Existing...))

	engine := resolver.NewEngine(t.dispatcher, resolver.Options{
		Operation:  op,
		Deferred:   opts.Deferred || m.Deferred,
		WorkflowID: opts.WorkflowID,
		Recorder:   opts.Recorder,
		Logger:     t.logger,
	})
	defer engine.Close()

	summaries, cancelSummaries := engine.Summaries().Subscribe(len(items) + 1)
	defer cancelSummaries()
	errs, cancelErrs := engine.Errors().Subscribe(len(items) + 1)
	defer cancelErrs()

	result := &RunResult{WorkflowID: engine.WorkflowID()}
	result.Loaded = engine.Load(items)
	sendProgress(progress, loadedUpdate(result.Loaded.FileCount, result.Loaded.FolderCount))

	total := len(result.Loaded.Items)
	step := 0
	var runErr error

	for cur := engine.Current(); cur != nil; cur = engine.Current() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		d, err := t.decide(*cur, engine.Items(), choices, opts)
		if err != nil {
			runErr = err
			break
		}

		out, err := engine.Resolve(ctx, d)
		for _, item := range out.Resolved {
			step++
			if err != nil {
				sendProgress(progress, failedUpdate(step, total, item, err))
			} else {
				sendProgress(progress, resolvedUpdate(step, total, item, d))
			}
		}

		if shared.IsHardError(err) {
			runErr = err
			break
		}
		if err != nil && len(out.Resolved) == 0 {
			runErr = err
			break
		}
	}

	result.Resolved = engine.Resolved()
	result.Summary = drainSummaries(summaries, op)
	result.Errors = drainErrors(errs)

	if runErr != nil {
		t.logger.Error("manifest run stopped", "workflow", result.WorkflowID, "error", runErr)
		return result, runErr
	}

	sendProgress(progress, completeUpdate(result.Summary))
	return result, nil
}

// decide picks the decision for cur given the pending items and explicit choices.
func (t *ResolutionTask) decide(cur models.PendingItem, pending []models.PendingItem, choices map[string]models.Choice, opts RunOpts) (resolver.Decision, error) {
	if choice, ok := choices[cur.ID]; ok {
		return resolver.Decision{Choice: choice}, nil
	}
	if opts.Choice == models.ChoicePending {
		return resolver.Decision{}, fmt.Errorf("%w: no choice for %s", shared.ErrMissingArgument, cur.DisplayLabel)
	}

	applyToRest := opts.ApplyAll
	for _, item := range pending {
		if _, ok := choices[item.ID]; ok && item.ID != cur.ID {
			applyToRest = false
			break
		}
	}
	return resolver.Decision{Choice: opts.Choice, ApplyToRest: applyToRest}, nil
}

func drainSummaries(ch <-chan resolver.Summary, op models.Operation) resolver.Summary {
	last := resolver.Summary{Operation: op, ShouldFinish: true}
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return last
			}
			last = s
		default:
			return last
		}
	}
}

func drainErrors(ch <-chan resolver.ErrorEvent) []resolver.ErrorEvent {
	var out []resolver.ErrorEvent
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}
