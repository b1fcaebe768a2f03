package resolver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nodeq/internal/formatter"
	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/queue"
	"github.com/desertthunder/nodeq/internal/shared"
)

// State is the workflow state of an [Engine].
type State int32

const (
	AwaitingDecision State = iota
	Dispatching
	Completed
)

func (s State) String() string {
	switch s {
	case AwaitingDecision:
		return "awaiting_decision"
	case Dispatching:
		return "dispatching"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

// Dispatcher performs the external action for resolved collisions.
type Dispatcher interface {
	ResolveSingle(ctx context.Context, item models.PendingItem, op models.Operation, choice models.Choice) error
	ResolveBatch(ctx context.Context, items []models.PendingItem, op models.Operation, choice models.Choice) (models.BatchResult, error)
}

// Recorder persists the audit trail of resolved items.
//
// Implemented by repositories.ResolutionRepository. Failures are logged and ignored.
type Recorder interface {
	Create(rec *models.ResolutionRecord) error
}

// Decision is the user's answer for the current item.
type Decision struct {
	Choice      models.Choice
	ApplyToRest bool
}

// Validate rejects decisions that cannot be applied.
func (d Decision) Validate() error {
	switch d.Choice {
	case models.ChoiceRename, models.ChoiceReplaceUpdateMerge, models.ChoiceCancel:
		return nil
	default:
		return fmt.Errorf("%w: choice %q", shared.ErrInvalidDecision, d.Choice)
	}
}

// Outcome is what a single [Engine.Resolve] call did.
type Outcome struct {
	Resolved []models.PendingItem // Items dequeued by this call, in queue order
	Result   models.BatchResult   // Dispatch result, zero for Cancel and deferred mode
	Current  *models.PendingItem  // New current item, nil when nothing is left
	State    State
}

// Summary is the aggregated result published after every dispatch and on completion.
type Summary struct {
	Operation    models.Operation
	Count        int // Items dispatched so far
	ErrorCount   int // Items that failed so far
	Message      string
	ShouldFinish bool // Nothing left to resolve
}

// ErrorEvent is published for every dispatch failure.
type ErrorEvent struct {
	ItemID string // Empty for batch failures
	Err    error
	Hard   bool
}

// Options configures an [Engine].
type Options struct {
	Operation  models.Operation
	Deferred   bool // Record choices without dispatching; used for folder uploads
	WorkflowID string
	Recorder   Recorder
	Logger     *log.Logger
}

// Engine applies decisions to a collision queue.
//
// All methods are safe for concurrent use; they are serialized on one lock so the underlying
// queue only ever has one writer. A dispatch holds that lock until the [Dispatcher] returns.
type Engine struct {
	mu         sync.Mutex
	queue      *queue.Queue
	dispatcher Dispatcher
	opts       Options
	logger     *log.Logger
	state      atomic.Int32
	totals     models.BatchResult
	closed     bool

	current     *shared.State[*models.PendingItem]
	summaries   *shared.Events[Summary]
	errors      *shared.Events[ErrorEvent]
	resolutions *shared.Events[[]models.PendingItem]
}

// NewEngine creates an engine with an empty queue. dispatcher may be nil in deferred mode.
func NewEngine(dispatcher Dispatcher, opts Options) *Engine {
	if opts.WorkflowID == "" {
		opts.WorkflowID = shared.GenerateID()
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	e := &Engine{
		queue:       queue.New(),
		dispatcher:  dispatcher,
		opts:        opts,
		logger:      shared.WithLogger(logger, "workflow", opts.WorkflowID, "operation", opts.Operation),
		current:     shared.NewState[*models.PendingItem](),
		summaries:   shared.NewEvents[Summary](),
		errors:      shared.NewEvents[ErrorEvent](),
		resolutions: shared.NewEvents[[]models.PendingItem](),
	}
	e.setState(Completed)
	return e
}

// CurrentItem is the replaying port for the current item; nil means no more work.
func (e *Engine) CurrentItem() *shared.State[*models.PendingItem] { return e.current }

// Summaries is the port for aggregated results.
func (e *Engine) Summaries() *shared.Events[Summary] { return e.summaries }

// Errors is the port for dispatch failures.
func (e *Engine) Errors() *shared.Events[ErrorEvent] { return e.errors }

// Resolutions publishes the full resolved list once the workflow completes.
func (e *Engine) Resolutions() *shared.Events[[]models.PendingItem] { return e.resolutions }

// WorkflowID identifies this run in the audit trail.
func (e *Engine) WorkflowID() string { return e.opts.WorkflowID }

// State returns the current workflow state without waiting for an in-flight dispatch.
func (e *Engine) State() State { return State(e.state.Load()) }

// Load replaces the queue contents and starts a new workflow run.
func (e *Engine) Load(items []models.PendingItem) queue.Normalized {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.queue.SetAll(items)
	e.totals = models.BatchResult{}
	if e.queue.IsEmpty() {
		e.setState(Completed)
	} else {
		e.setState(AwaitingDecision)
	}

	e.logger.Info("queue loaded", "files", n.FileCount, "folders", n.FolderCount)
	e.current.Publish(e.queue.Current())
	return n
}

// Pending returns the number of pending files and folders.
func (e *Engine) Pending() (files, folders int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Pending(models.KindFile), e.queue.Pending(models.KindFolder)
}

// Items returns the pending items in queue order.
func (e *Engine) Items() []models.PendingItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Items()
}

// Current returns the current item, or nil.
func (e *Engine) Current() *models.PendingItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Current()
}

// Resolved returns every item resolved so far.
func (e *Engine) Resolved() []models.PendingItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Resolved()
}

// SetRenameName stores the target name used if id is renamed.
func (e *Engine) SetRenameName(id, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.queue.SetRenameName(id, name)
	if ok {
		if cur := e.queue.Current(); cur != nil && cur.ID == id {
			e.current.Publish(cur)
		}
	}
	return ok
}

// Resolve applies d to the current item, or to the scoped rest of the queue.
//
// Calling it on an empty or completed queue returns a zero [Outcome] and no error.
func (e *Engine) Resolve(ctx context.Context, d Decision) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Outcome{State: e.State()}, shared.ErrClosed
	}
	if err := d.Validate(); err != nil {
		return Outcome{State: e.State()}, err
	}

	cur := e.queue.Current()
	if cur == nil {
		return Outcome{State: e.State()}, nil
	}

	scope, kind, all := e.scope(*cur, d.ApplyToRest)
	if d.Choice == models.ChoiceRename {
		for _, item := range scope {
			if item.RenameName == "" {
				return Outcome{Current: cur, State: e.State()}, fmt.Errorf("%w: %s", shared.ErrMissingRenameName, item.DisplayLabel)
			}
		}
	}

	res := models.CollisionResolution(d.Choice)
	recordScope := models.ScopeSingle
	if d.ApplyToRest {
		recordScope = models.ScopeApplyToRest
	}

	var (
		result      models.BatchResult
		dispatchErr error
		dispatch    = d.Choice != models.ChoiceCancel && !e.opts.Deferred
	)

	if dispatch {
		if e.dispatcher == nil {
			return Outcome{Current: cur, State: e.State()}, fmt.Errorf("%w: no dispatcher", shared.ErrServiceUnavailable)
		}

		e.setState(Dispatching)
		if d.ApplyToRest {
			result, dispatchErr = e.dispatchBatch(ctx, scope, d.Choice)
		} else {
			result, dispatchErr = e.dispatchSingle(ctx, *cur, d.Choice)
		}

		// A finished batch call settles its whole scope, hard error or not.
		e.totals.Add(result)
	}

	var resolved []models.PendingItem
	switch {
	case !d.ApplyToRest:
		resolved = []models.PendingItem{e.takeCurrent(res)}
	case all:
		resolved = e.queue.DequeueAll(res)
	default:
		resolved = e.queue.DequeueKind(kind, res)
	}

	e.record(resolved, d.Choice, recordScope, dispatchErr)
	e.logger.Debug("resolved", "choice", d.Choice, "items", len(resolved), "apply_to_rest", d.ApplyToRest)

	next := e.queue.Current()
	e.current.Publish(next)
	e.finishCycle(dispatch)

	return Outcome{Resolved: resolved, Result: result, Current: next, State: e.State()}, dispatchErr
}

// Confirm records that the external system resolved id on its own, for example a transfer
// that finished while the decision was pending. It is a no-op unless id is the current item.
func (e *Engine) Confirm(id string, choice models.Choice) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.queue.Current()
	if e.closed || cur == nil || cur.ID != id {
		return false
	}

	item := e.takeCurrent(models.CollisionResolution(choice))
	e.record([]models.PendingItem{item}, choice, models.ScopeSingle, nil)
	e.current.Publish(e.queue.Current())
	e.finishCycle(false)
	return true
}

// Invalidate drops id without resolving it, as after an external transfer error.
// Unknown or already resolved ids are ignored.
func (e *Engine) Invalidate(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	wasCurrent := false
	if cur := e.queue.Current(); cur != nil && cur.ID == id {
		wasCurrent = true
	}
	if !e.queue.RemoveByID(id) {
		return false
	}

	e.logger.Debug("invalidated", "item", id)
	if wasCurrent {
		e.current.Publish(e.queue.Current())
	}
	e.finishCycle(false)
	return true
}

// Close releases every subscription. An in-flight dispatch is not aborted; its results are
// still applied to the queue but nothing is published.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.current.Close()
	e.summaries.Close()
	e.errors.Close()
	e.resolutions.Close()
}

// scope returns the items a decision applies to. When applying to the rest while both kinds are
// pending, only the current item's kind is included.
func (e *Engine) scope(cur models.PendingItem, applyToRest bool) (items []models.PendingItem, kind models.Kind, all bool) {
	if !applyToRest {
		return []models.PendingItem{cur}, cur.Kind, false
	}

	both := e.queue.Pending(models.KindFile) > 0 && e.queue.Pending(models.KindFolder) > 0
	if !both {
		return e.queue.Items(), cur.Kind, true
	}

	for _, item := range e.queue.Items() {
		if item.Kind == cur.Kind {
			items = append(items, item)
		}
	}
	return items, cur.Kind, false
}

func (e *Engine) dispatchSingle(ctx context.Context, item models.PendingItem, choice models.Choice) (models.BatchResult, error) {
	result := models.BatchResult{Count: 1}

	if err := e.dispatcher.ResolveSingle(ctx, item, e.opts.Operation, choice); err != nil {
		result.ErrorCount = 1
		hard := shared.IsHardError(err)
		e.logger.Error("dispatch failed", "item", item.ID, "hard", hard, "error", err)
		e.errors.Publish(ErrorEvent{ItemID: item.ID, Err: err, Hard: hard})
		return result, err
	}
	return result, nil
}

func (e *Engine) dispatchBatch(ctx context.Context, items []models.PendingItem, choice models.Choice) (models.BatchResult, error) {
	result, err := e.dispatcher.ResolveBatch(ctx, items, e.opts.Operation, choice)
	if err == nil {
		return result, nil
	}

	hard := shared.IsHardError(err)
	e.logger.Error("batch dispatch failed", "items", len(items), "hard", hard, "error", err)
	e.errors.Publish(ErrorEvent{Err: err, Hard: hard})

	if hard {
		return result, err
	}
	// The whole call failed: every item counts as attempted and failed.
	return models.BatchResult{Count: len(items), ErrorCount: len(items)}, err
}

func (e *Engine) takeCurrent(res models.Resolution) models.PendingItem {
	e.queue.DequeueAndAdvance(res)
	resolved := e.queue.Resolved()
	return resolved[len(resolved)-1]
}

// finishCycle moves to the next state and publishes summaries.
func (e *Engine) finishCycle(dispatched bool) {
	if !e.queue.IsEmpty() {
		e.setState(AwaitingDecision)
		if dispatched {
			e.publishSummary()
		}
		return
	}

	e.setState(Completed)
	e.logger.Info("workflow completed", "count", e.totals.Count, "errors", e.totals.ErrorCount)
	e.publishSummary()
	e.resolutions.Publish(e.queue.Resolved())
}

func (e *Engine) publishSummary() {
	e.summaries.Publish(Summary{
		Operation:    e.opts.Operation,
		Count:        e.totals.Count,
		ErrorCount:   e.totals.ErrorCount,
		Message:      formatter.SummaryMessage(e.opts.Operation, e.totals.Count, e.totals.ErrorCount),
		ShouldFinish: e.queue.IsEmpty(),
	})
}

// record writes one audit row per item. Batch results carry no per-item errors, so only a
// failed single dispatch or a failed batch call marks rows as failed.
func (e *Engine) record(items []models.PendingItem, choice models.Choice, scope models.Scope, err error) {
	if e.opts.Recorder == nil {
		return
	}

	for _, item := range items {
		rec := models.NewResolutionRecord(e.opts.WorkflowID, item, e.opts.Operation, choice, scope)
		if err != nil {
			rec.SetErrorMessage(err.Error())
		}
		if rerr := e.opts.Recorder.Create(rec); rerr != nil {
			e.logger.Warn("failed to record resolution", "item", item.ID, "error", rerr)
		}
	}
}

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }
