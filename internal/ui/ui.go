package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/naming"
	"github.com/desertthunder/nodeq/internal/resolver"
	"github.com/desertthunder/nodeq/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DecisionView ViewState = iota
	EditView
	DispatchView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	engine   *resolver.Engine
	taken    map[string]bool
	logger   *log.Logger
	view     ViewState
	width    int
	height   int
	current  *models.PendingItem
	applyAll bool
	summary  resolver.Summary
	errs     []resolver.ErrorEvent
	err      error
	queue    list.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	currentCh <-chan *models.PendingItem
	summaryCh <-chan resolver.Summary
	errorCh   <-chan resolver.ErrorEvent
	cancels   []func()
}

// NewModel creates a TUI over a loaded engine. existing holds the names already present at the
// destination; rename targets are assigned from it for every pending item that lacks one.
func NewModel(ctx context.Context, engine *resolver.Engine, existing []string, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NopLogger()
	}

	m := &Model{
		ctx:     ctx,
		engine:  engine,
		taken:   naming.Taken(existing...),
		logger:  shared.WithLogger(logger, "component", "ui"),
		help:    help.New(),
		keys:    newKeyMap(),
		input:   textinput.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.input.Prompt = "new name: "
	m.spinner.Style = styles.title

	for _, item := range naming.Assign(engine.Items(), m.taken) {
		engine.SetRenameName(item.ID, item.RenameName)
	}

	m.queue = list.New(listItems(engine.Items()), list.NewDefaultDelegate(), 0, 0)
	m.queue.Title = "Pending"
	m.queue.SetShowHelp(false)
	m.current = engine.Current()
	if m.current == nil {
		m.view = ResultView
	}

	var cancel func()
	m.currentCh, cancel = engine.CurrentItem().Subscribe(0)
	m.cancels = append(m.cancels, cancel)
	m.summaryCh, cancel = engine.Summaries().Subscribe(0)
	m.cancels = append(m.cancels, cancel)
	m.errorCh, cancel = engine.Errors().Subscribe(0)
	m.cancels = append(m.cancels, cancel)

	return m
}

// Init starts listening on the engine's ports.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitFor(m.currentCh, currentChangedMsg),
		waitFor(m.summaryCh, summaryMsg),
		waitFor(m.errorCh, dispatchErrorMsg),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width-4, max(msg.Height-14, 4))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case DecisionView:
			return m.handleDecisionKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		case DispatchView:
			if msg.String() == "ctrl+c" {
				return m, m.quit()
			}
			return m, nil
		case ResultView:
			if key.Matches(msg, m.keys.quit) {
				return m, m.quit()
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.view != DispatchView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCurrentChanged:
		m.current, _ = msg.data.(*models.PendingItem)
		m.refreshQueue()
		return m, waitFor(m.currentCh, currentChangedMsg)

	case MsgSummary:
		m.summary = msg.data.(resolver.Summary)
		return m, waitFor(m.summaryCh, summaryMsg)

	case MsgDispatchError:
		e := msg.data.(resolver.ErrorEvent)
		m.errs = append(m.errs, e)
		return m, waitFor(m.errorCh, dispatchErrorMsg)

	case MsgResolved:
		data := msg.data.(resolvedData)
		m.err = data.err
		if data.err != nil {
			m.logger.Warn("decision failed", "error", data.err)
		}
		m.current = m.engine.Current()
		m.refreshQueue()

		if m.engine.State() == resolver.Completed {
			m.view = ResultView
		} else {
			m.view = DecisionView
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleDecisionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.rename):
		return m, m.decide(models.ChoiceRename)
	case key.Matches(msg, m.keys.replace):
		return m, m.decide(models.ChoiceReplaceUpdateMerge)
	case key.Matches(msg, m.keys.cancel):
		return m, m.decide(models.ChoiceCancel)
	case key.Matches(msg, m.keys.applyAll):
		m.applyAll = !m.applyAll
		return m, nil
	case key.Matches(msg, m.keys.edit):
		if m.current == nil {
			return m, nil
		}
		m.input.SetValue(m.current.RenameName)
		m.input.CursorEnd()
		m.view = EditView
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = DecisionView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		name := strings.TrimSpace(m.input.Value())
		if name != "" && m.current != nil {
			m.taken[strings.ToLower(name)] = true
			m.engine.SetRenameName(m.current.ID, name)
			m.current = m.engine.Current()
			m.refreshQueue()
		}
		m.input.Blur()
		m.view = DecisionView
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// decide dispatches choice for the current item in the background.
func (m *Model) decide(choice models.Choice) tea.Cmd {
	if m.current == nil {
		return nil
	}

	d := resolver.Decision{Choice: choice, ApplyToRest: m.applyAll}
	m.view = DispatchView
	m.err = nil

	resolve := func() tea.Msg {
		outcome, err := m.engine.Resolve(m.ctx, d)
		return resolvedMsg(outcome, err)
	}
	return tea.Batch(resolve, m.spinner.Tick)
}

func (m *Model) quit() tea.Cmd {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
	return tea.Quit
}

func (m *Model) refreshQueue() {
	m.queue.SetItems(listItems(m.engine.Items()))
}

// waitFor reads one value from ch and wraps it with wrap. A closed channel yields [MsgPortClosed].
func waitFor[T any](ch <-chan T, wrap func(T) Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return portClosedMsg()
		}
		return wrap(v)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DecisionView:
		return m.renderDecision()
	case EditView:
		return m.renderEdit()
	case DispatchView:
		return m.renderDispatch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderCurrent() string {
	if m.current == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s already exists (%s)\n", m.current.DisplayLabel, m.current.Kind)
	if m.current.RenameName != "" {
		fmt.Fprintf(&b, "%s %s", styles.label.Render("rename to:"), m.current.RenameName)
	}
	return styles.current.Render(b.String())
}

func (m *Model) renderDecision() string {
	files, folders := m.engine.Pending()
	title := styles.title.Render(fmt.Sprintf("Resolve collisions (%d files, %d folders)", files, folders))

	applyAll := "off"
	if m.applyAll {
		applyAll = styles.ok.Render("on")
	}
	status := fmt.Sprintf("%s %s", styles.label.Render("apply to all remaining:"), applyAll)

	var lines []string
	lines = append(lines, title, m.renderCurrent(), status)
	if m.summary.Message != "" {
		lines = append(lines, styles.ok.Render(m.summary.Message))
	}
	if m.err != nil {
		lines = append(lines, m.renderError(m.err))
	}
	lines = append(lines, "", m.queue.View(), m.help.View(m.keys))

	return strings.Join(lines, "\n")
}

func (m *Model) renderEdit() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s",
		styles.title.Render("Edit rename target"),
		m.renderCurrent(),
		m.input.View(),
		m.help.ShortHelpView(helpKeys),
	)
}

func (m *Model) renderDispatch() string {
	title := styles.title.Render("Resolving")
	return fmt.Sprintf("%s\n\n%s %s", title, m.spinner.View(), m.summary.Message)
}

func (m *Model) renderResult() string {
	var b strings.Builder

	if m.summary.ErrorCount > 0 {
		b.WriteString(styles.warn.Render("⚠ " + m.summary.Message))
	} else if m.summary.Message != "" {
		b.WriteString(styles.ok.Render("✓ " + m.summary.Message))
	} else {
		b.WriteString(styles.ok.Render("✓ Nothing left to resolve"))
	}

	if len(m.errs) > 0 {
		fmt.Fprintf(&b, "\n\n%s", styles.warn.Render(fmt.Sprintf("%d failures:", len(m.errs))))
		for _, e := range m.errs {
			target := e.ItemID
			if target == "" {
				target = "batch"
			}
			fmt.Fprintf(&b, "\n  • %s: %v", target, e.Err)
		}
	}

	helpKeys := []key.Binding{m.keys.quit}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderError(err error) string {
	switch {
	case errors.Is(err, shared.ErrOverQuota), errors.Is(err, shared.ErrPreOverQuota):
		return styles.err.Render("Storage quota exceeded. Free up space and try again.")
	case errors.Is(err, shared.ErrForeignNode):
		return styles.err.Render("The destination belongs to another account.")
	default:
		return styles.err.Render(fmt.Sprintf("Error: %v", err))
	}
}

// Summary returns the last summary received from the engine.
func (m *Model) Summary() resolver.Summary { return m.summary }

// Err returns the error of the last decision, if any.
func (m *Model) Err() error { return m.err }
