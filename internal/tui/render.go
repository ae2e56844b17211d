package tui

import (
	"fmt"
	"strings"

	"textbook-gateway/internal/conversation"
)

func joinHelp(parts []string) string {
	return strings.Join(parts, " • ")
}

func (m Model) renderHeader() string {
	title := "Textbook Chat"
	if ch, ok := m.currentChapter(); ok {
		title = fmt.Sprintf("%s · %s", title, ch)
	}
	if m.session.Authenticated() {
		title += " · signed in"
		if m.progress != nil {
			title += fmt.Sprintf(" · %d/%d correct", m.progress.CorrectAnswers, m.progress.TotalAnswers)
		}
	}
	return m.styles.Header.Width(m.width).Render(title)
}

func (m Model) currentChapter() (string, bool) {
	if m.nav == nil {
		return "", false
	}
	ch, ok := m.nav.Current()
	if !ok {
		return "", false
	}
	name := m.textbookName
	if name == "" {
		name = m.textbookID
	}
	return fmt.Sprintf("%s: Chapter %d %s", name, ch.ID, ch.Title), true
}

func (m Model) renderStatus() string {
	if m.session.Typing() {
		return m.spinner.View() + m.styles.Muted.Render(" Assistant is typing...")
	}
	if m.status != "" {
		return m.styles.Error.Render(m.status)
	}
	return m.styles.Muted.Render(m.keys.helpLine(m.focus == focusQuiz))
}

func (m Model) renderTranscript() string {
	width := max(m.width-2, 20)

	var b strings.Builder
	for _, msg := range m.session.Messages() {
		switch msg.Kind {
		case conversation.KindLoginNudge:
			if !m.session.NudgeVisible() {
				continue
			}
			b.WriteString(m.styles.Nudge.Width(width - 2).Render(msg.Content + "\n(esc to dismiss)"))
		case conversation.KindQuiz:
			focused := m.focus == focusQuiz && msg.ID == m.quizID
			b.WriteString(m.renderQuiz(msg, focused, width))
		default:
			b.WriteString(m.renderText(msg, width))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderText(msg conversation.Message, width int) string {
	label := m.styles.Assistant.Render("Assistant")
	if msg.Role == conversation.RoleUser {
		label = m.styles.User.Render("You")
	}
	stamp := m.styles.Muted.Render(msg.Timestamp.Format("15:04"))
	body := m.styles.Body.Width(width).Render(msg.Content)
	return label + " " + stamp + "\n" + body
}

func (m Model) renderQuiz(msg conversation.Message, focused bool, width int) string {
	var b strings.Builder
	b.WriteString(m.styles.Assistant.Render("Quiz"))
	b.WriteString("\n")
	b.WriteString(msg.Quiz.Question)
	for i, opt := range msg.Quiz.Options {
		b.WriteString("\n")
		marker := "  "
		line := m.styles.Option.Render(opt.Text)
		if focused && i == m.optionCursor {
			marker = m.styles.Cursor.Render("> ")
		}
		if msg.QuizState.Status == conversation.Answered {
			switch {
			case opt.IsCorrect:
				line = m.styles.Correct.Render("✓ " + opt.Text)
			case opt.ID == msg.QuizState.Selected:
				line = m.styles.Incorrect.Render("✗ " + opt.Text)
			}
		}
		b.WriteString(marker + line)
	}
	if msg.QuizState.Status == conversation.Unanswered && !focused {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("tab to answer"))
	}
	return m.styles.Quiz.Width(width - 2).Render(b.String())
}
