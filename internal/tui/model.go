package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mathquiz/internal/domain"
	"mathquiz/internal/quiz"
)

// Model drives one quiz session in the terminal. The session owns all state;
// the model only renders snapshots and translates key presses into the four
// session operations. Terminal focus loss (tea.BlurMsg, reported when the
// program runs with tea.WithReportFocus) is the visibility-loss signal.
type Model struct {
	session   *quiz.Session
	req       domain.BatchRequest
	snapshots <-chan quiz.Snapshot
	cancel    func()

	snap quiz.Snapshot
	spin spinner.Model
	prop int // highlighted proposition on a TrueFalse question
}

// NewModel subscribes to the session and prepares the initial view.
func NewModel(session *quiz.Session, req domain.BatchRequest) Model {
	snapshots, cancel := session.Subscribe()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		session:   session,
		req:       req,
		snapshots: snapshots,
		cancel:    cancel,
		snap:      session.Snapshot(),
		spin:      sp,
	}
}

// SnapshotMsg wraps a session snapshot for Bubble Tea.
type SnapshotMsg struct {
	Snapshot quiz.Snapshot
}

// Init waits for session updates and keeps the spinner ticking.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snapshots), m.spin.Tick)
}

// Update consumes snapshots, key presses and focus changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case SnapshotMsg:
		if typed.Snapshot.Cursor != m.snap.Cursor || typed.Snapshot.Phase != m.snap.Phase {
			m.prop = 0
		}
		m.snap = typed.Snapshot
		return m, waitForSnapshot(m.snapshots)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(typed)
		return m, cmd
	case tea.BlurMsg:
		m.session.VisibilityLost()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		m.cancel()
		return m, tea.Quit
	}

	switch m.snap.Phase {
	case domain.PhaseSetup:
		switch key.String() {
		case "enter", " ":
			m.session.Start(context.Background(), m.req)
		case "q":
			m.cancel()
			return m, tea.Quit
		}
	case domain.PhaseActive:
		m.handleActiveKey(key.String())
	case domain.PhaseSummary:
		switch key.String() {
		case "r":
			m.session.Restart()
		case "q", "enter":
			m.cancel()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) handleActiveKey(key string) {
	q := m.snap.Question
	switch key {
	case "left", "h":
		m.session.Navigate(-1)
	case "right", "l":
		m.session.Navigate(+1)
	case "enter":
		if m.snap.Cursor == m.snap.Total-1 {
			m.session.Submit()
		} else {
			m.session.Navigate(+1)
		}
	case "s":
		m.session.Submit()
	case "up", "k":
		if q != nil && q.Kind == domain.TrueFalse && m.prop > 0 {
			m.prop--
		}
	case "down", "j":
		if q != nil && q.Kind == domain.TrueFalse && m.prop < domain.PropositionCount-1 {
			m.prop++
		}
	case "t", "d":
		if q != nil && q.Kind == domain.TrueFalse {
			_ = m.session.RecordTruth(m.snap.Cursor, m.prop, true)
		}
	case "f":
		if q != nil && q.Kind == domain.TrueFalse {
			_ = m.session.RecordTruth(m.snap.Cursor, m.prop, false)
		}
	case "1", "2", "3", "4":
		if q == nil {
			return
		}
		idx := int(key[0] - '1')
		if q.Kind == domain.MultipleChoice {
			_ = m.session.RecordChoice(m.snap.Cursor, idx)
		} else {
			m.prop = idx
		}
	}
}

// waitForSnapshot blocks until the session broadcasts.
func waitForSnapshot(snapshots <-chan quiz.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-snapshots
		if !ok {
			return tea.Quit()
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
