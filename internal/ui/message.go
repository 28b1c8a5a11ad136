package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tempolab/podtempo/internal/models"
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
	MsgJobsRefreshed MsgKind = iota
	MsgRefreshTick
)

// jobsRefreshedMsg is the constructor for [MsgJobsRefreshed]
func jobsRefreshedMsg(jobs []*models.Job) Msg {
	return Msg{kind: MsgJobsRefreshed, data: jobs}
}

// refreshTickMsg is the constructor for [MsgRefreshTick]
func refreshTickMsg() Msg {
	return Msg{kind: MsgRefreshTick}
}
