// Package ui implements an interactive terminal job monitor using bubbletea's Elm architecture.
//
// The TUI provides two views:
//  1. [JobListView] : Browse the job table with live status refresh
//  2. [JobDetailView] : Inspect one job's results and errors
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// The job table refreshes on a fixed tick, so running jobs update in place without user input.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
