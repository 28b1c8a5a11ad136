package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tempolab/podtempo/internal/formatter"
	"github.com/tempolab/podtempo/internal/models"
)

// refreshEvery is the job table poll cadence while the TUI is open.
const refreshEvery = 2 * time.Second

// JobSource provides job snapshots for display.
type JobSource interface {
	Jobs() []*models.Job
	Job(id string) (*models.Job, error)
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	JobListView ViewState = iota
	JobDetailView
)

// Model represents the TUI application state.
type Model struct {
	source   JobSource
	view     ViewState
	width    int
	height   int
	jobList  list.Model
	selected *models.Job
	help     help.Model
	keys     keyMap
}

// NewModel creates the job monitor model.
func NewModel(source JobSource) Model {
	delegate := list.NewDefaultDelegate()
	jobList := list.New([]list.Item{}, delegate, 0, 0)
	jobList.Title = "Processing Jobs"
	jobList.SetShowHelp(false)

	return Model{
		source:  source,
		view:    JobListView,
		jobList: jobList,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init implements [tea.Model].
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return jobsRefreshedMsg(m.source.Jobs())
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg {
		return refreshTickMsg()
	})
}

// Update implements [tea.Model].
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.jobList.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.refreshCmd()
		case key.Matches(msg, m.keys.enter) && m.view == JobListView:
			if item, ok := m.jobList.SelectedItem().(jobItem); ok {
				m.selected = item.job
				m.view = JobDetailView
			}
			return m, nil
		case key.Matches(msg, m.keys.back) && m.view == JobDetailView:
			m.view = JobListView
			m.selected = nil
			return m, nil
		}

	case Msg:
		switch msg.kind {
		case MsgJobsRefreshed:
			jobs := msg.data.([]*models.Job)
			items := make([]list.Item, len(jobs))
			for i, job := range jobs {
				items[i] = jobItem{job: job}
			}
			cmd := m.jobList.SetItems(items)
			if m.selected != nil {
				if fresh, err := m.source.Job(m.selected.ID); err == nil {
					m.selected = fresh
				}
			}
			return m, cmd
		case MsgRefreshTick:
			return m, tea.Batch(m.refreshCmd(), tickCmd())
		}
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

// View implements [tea.Model].
func (m Model) View() string {
	switch m.view {
	case JobDetailView:
		return m.detailView()
	default:
		return m.jobList.View() + "\n" + m.help.View(m.keys)
	}
}

func (m Model) detailView() string {
	if m.selected == nil {
		return styles.err.Render("no job selected")
	}
	header := styles.title.Render("Job " + m.selected.ID)
	body := string(formatter.JobToText(m.selected))
	return header + "\n" + body + "\n" + m.help.View(m.keys)
}

// Run starts the TUI program and blocks until it exits.
func Run(source JobSource) error {
	program := tea.NewProgram(NewModel(source), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
