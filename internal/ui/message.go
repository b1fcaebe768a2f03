package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/resolver"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCurrentChanged MsgKind = iota
	MsgSummary
	MsgDispatchError
	MsgResolved
	MsgPortClosed
)

type resolvedData struct {
	outcome resolver.Outcome
	err     error
}

// currentChangedMsg is the constructor for [MsgCurrentChanged]
func currentChangedMsg(item *models.PendingItem) Msg {
	return Msg{kind: MsgCurrentChanged, data: item}
}

// summaryMsg is the constructor for [MsgSummary]
func summaryMsg(s resolver.Summary) Msg {
	return Msg{kind: MsgSummary, data: s}
}

// dispatchErrorMsg is the constructor for [MsgDispatchError]
func dispatchErrorMsg(e resolver.ErrorEvent) Msg {
	return Msg{kind: MsgDispatchError, data: e}
}

// resolvedMsg is the constructor for [MsgResolved]
func resolvedMsg(outcome resolver.Outcome, err error) Msg {
	return Msg{kind: MsgResolved, data: resolvedData{outcome, err}}
}

// portClosedMsg is the constructor for [MsgPortClosed]
func portClosedMsg() Msg {
	return Msg{kind: MsgPortClosed}
}
