// Package ui implements an interactive collision resolver using bubbletea's Elm architecture.
//
// The [Model] shows the engine's current item and the remaining queue, and maps keys to decisions:
// r renames, o replaces files or merges folders, c skips, a toggles "apply to all", e edits the
// rename target. The engine's ports are bridged into messages of the [Msg] union, so dispatch
// results and errors are rendered as they are published.
//
// Keyboard navigation uses vim-style bindings (j/k) with contextual help displayed via charmbracelet/bubbles/help.
package ui
