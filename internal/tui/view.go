package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mathquiz/internal/domain"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	promptStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	scoreStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

// View renders the current phase.
func (m Model) View() string {
	switch m.snap.Phase {
	case domain.PhaseLoading:
		return fmt.Sprintf("\n %s generating questions...\n", m.spin.View())
	case domain.PhaseActive:
		return m.viewActive()
	case domain.PhaseSummary:
		return m.viewSummary()
	default:
		return m.viewSetup()
	}
}

func (m Model) viewSetup() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Math Quiz") + "\n\n")
	b.WriteString(fmt.Sprintf("grade %d · %s · %s · %d questions · %s\n\n",
		m.req.Grade, m.req.Topic, m.req.Difficulty, m.req.Count, m.req.Kind))
	if m.snap.Notice != "" {
		b.WriteString(noticeStyle.Render(m.snap.Notice) + "\n\n")
	}
	b.WriteString(faintStyle.Render("enter: start · q: quit") + "\n")
	return b.String()
}

func (m Model) viewActive() string {
	q := m.snap.Question
	if q == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Question %d/%d", m.snap.Cursor+1, m.snap.Total)))
	b.WriteString(faintStyle.Render(fmt.Sprintf("   %s · answered %d/%d",
		formatElapsed(m.snap.ElapsedSeconds), m.snap.Answered, m.snap.Total)))
	b.WriteString("\n\n" + promptStyle.Render(q.Prompt) + "\n\n")

	if q.Kind == domain.MultipleChoice {
		for i, opt := range q.Options {
			line := fmt.Sprintf("%c. %s", 'A'+i, opt)
			if m.snap.Answer != nil && m.snap.Answer.Choice == i {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("1-4: answer · ←/→: move · enter: next/submit · s: submit"))
	} else {
		for i, prop := range q.Propositions {
			marker := " "
			if m.snap.Answer != nil && i < len(m.snap.Answer.Truth) && m.snap.Answer.Truth[i] != nil {
				if *m.snap.Answer.Truth[i] {
					marker = "T"
				} else {
					marker = "F"
				}
			}
			line := fmt.Sprintf("[%s] %c) %s", marker, 'a'+i, prop)
			if i == m.prop {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("↑/↓: proposition · t/f: mark · ←/→: move · enter: next/submit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Summary") + "\n\n")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("%.2f/10", m.snap.Score)) + "\n")
	if m.snap.Reason == domain.ReasonVisibilityLoss {
		b.WriteString(noticeStyle.Render("attempt was terminated: window lost focus") + "\n")
	}
	b.WriteString(faintStyle.Render(fmt.Sprintf("time: %s · answered %d/%d",
		formatElapsed(m.snap.ElapsedSeconds), m.snap.Answered, m.snap.Total)) + "\n\n")

	for i, q := range m.snap.Questions {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, q.Prompt))
		if q.Explanation != "" {
			b.WriteString(faintStyle.Render("   "+q.Explanation) + "\n")
		}
	}

	b.WriteString("\n" + faintStyle.Render("r: restart · q: quit") + "\n")
	return b.String()
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
