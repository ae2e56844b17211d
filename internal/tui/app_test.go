package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"textbook-gateway/internal/conversation"
	"textbook-gateway/internal/fallback"
	"textbook-gateway/internal/models"
)

type stubGateway struct {
	mu      sync.Mutex
	reply   models.ChatResponse
	answers []models.QuizAnswerRequest
}

func (g *stubGateway) Greeting(ctx context.Context, token string) (models.ChatResponse, error) {
	return models.ChatResponse{Response: "Welcome!"}, nil
}

func (g *stubGateway) Chat(ctx context.Context, message, token string) (models.ChatResponse, error) {
	return g.reply, nil
}

func (g *stubGateway) RecordAnswer(ctx context.Context, token string, answer models.QuizAnswerRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer)
	return nil
}

type tokenCreds string

func (c tokenCreds) Token() (string, bool) { return string(c), c != "" }

type catalogStub struct{}

func (catalogStub) Textbooks(ctx context.Context) ([]models.Textbook, error) {
	return fallback.Catalog(), nil
}

func (catalogStub) Chapters(ctx context.Context, id string) (models.ChapterList, error) {
	return fallback.Chapters(id), nil
}

type progressStub struct{ tokens []string }

func (p *progressStub) Progress(ctx context.Context, token string) (models.ProgressRecord, error) {
	p.tokens = append(p.tokens, token)
	return models.ProgressRecord{CorrectAnswers: 12, TotalAnswers: 20}, nil
}

// queued collects scheduled quiz reveals so tests decide when they fire.
type queued struct{ fns []func() }

func (q *queued) schedule(d time.Duration, fn func()) func() bool {
	q.fns = append(q.fns, fn)
	return func() bool { return true }
}

func (q *queued) fire() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func newTestModel(t *testing.T, gw *stubGateway, creds tokenCreds) (Model, *conversation.Session, *queued) {
	t.Helper()
	q := &queued{}
	sess := conversation.NewSession(gw, creds,
		conversation.WithScheduler(q.schedule),
		conversation.WithSpawner(func(fn func()) { fn() }),
	)
	m := New(Options{
		Session:     sess,
		Catalog:     catalogStub{},
		Progress:    &progressStub{},
		Credentials: creds,
		TextbookID:  "Physics",
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, sess, q
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// submit presses enter and runs the resulting send command.
func submit(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	done, ok := cmd().(sendDoneMsg)
	if !ok {
		t.Fatal("expected sendDoneMsg")
	}
	return step(t, m, done)
}

func TestView_LoadingBeforeWindowSize(t *testing.T) {
	sess := conversation.NewSession(&stubGateway{}, tokenCreds(""))
	m := New(Options{Session: sess})
	if m.View() != "Loading..." {
		t.Fatalf("View() = %q", m.View())
	}
	if m.Init() == nil {
		t.Fatal("Init should return startup commands")
	}
}

func TestSend_RendersReplyAndClearsInput(t *testing.T) {
	gw := &stubGateway{reply: models.ChatResponse{Response: "Momentum is mass times velocity."}}
	m, sess, _ := newTestModel(t, gw, "")

	m = typeText(t, m, "What is momentum?")
	m = submit(t, m)

	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
	msgs := sess.Messages()
	if len(msgs) != 2 || msgs[0].Content != "What is momentum?" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if !strings.Contains(m.View(), "Momentum is mass times velocity.") {
		t.Fatal("reply not rendered")
	}
}

func TestEnter_EmptyInputDoesNothing(t *testing.T) {
	m, _, _ := newTestModel(t, &stubGateway{}, "")
	m = typeText(t, m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("blank input should not send")
	}
}

func TestSendDone_BusyShowsStatus(t *testing.T) {
	m, _, _ := newTestModel(t, &stubGateway{}, "")
	m = step(t, m, sendDoneMsg{err: conversation.ErrBusy})
	if m.status != "Still waiting for the last reply" {
		t.Fatalf("status = %q", m.status)
	}
	m = step(t, m, sendDoneMsg{})
	if m.status != "" {
		t.Fatalf("status not cleared: %q", m.status)
	}
}

func TestTab_WithoutQuizKeepsInputFocus(t *testing.T) {
	m, _, _ := newTestModel(t, &stubGateway{}, "")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusInput {
		t.Fatal("tab without a pending quiz should keep input focus")
	}
}

func TestQuiz_SelectAndAnswer(t *testing.T) {
	gw := &stubGateway{reply: models.ChatResponse{
		Response: "Here is a question.",
		IsQuiz:   true,
		Quiz: &models.Quiz{
			Question: "Unit of momentum?",
			Options: []models.Option{
				{ID: "a", Text: "N"},
				{ID: "b", Text: "kg·m/s", IsCorrect: true},
			},
		},
	}}
	m, sess, q := newTestModel(t, gw, "tok")

	m = typeText(t, m, "quiz me")
	m = submit(t, m)
	q.fire()
	m = step(t, m, updateMsg{})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusQuiz {
		t.Fatal("tab should focus the pending quiz")
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.focus != focusInput {
		t.Fatal("answering should return focus to input")
	}
	var quiz conversation.Message
	for _, msg := range sess.Messages() {
		if msg.IsQuiz() {
			quiz = msg
		}
	}
	if quiz.QuizState.Status != conversation.Answered || quiz.QuizState.Selected != "b" || !quiz.QuizState.Correct {
		t.Fatalf("unexpected quiz state %+v", quiz.QuizState)
	}
	if len(gw.answers) != 1 || gw.answers[0].OptionID != "b" {
		t.Fatalf("expected one recorded answer, got %+v", gw.answers)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusInput {
		t.Fatal("answered quiz should not take focus again")
	}
}

func TestNudge_DismissWithEsc(t *testing.T) {
	gw := &stubGateway{reply: models.ChatResponse{Response: "ok"}}
	m, sess, _ := newTestModel(t, gw, "")
	if err := sess.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	m = typeText(t, m, "one")
	m = submit(t, m)
	m = typeText(t, m, "two")
	m = submit(t, m)

	if !sess.NudgeVisible() {
		t.Fatal("expected the login nudge")
	}
	if !strings.Contains(m.renderTranscript(), "esc to dismiss") {
		t.Fatal("nudge not rendered")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if sess.NudgeVisible() {
		t.Fatal("nudge still visible after esc")
	}
	if strings.Contains(m.renderTranscript(), "esc to dismiss") {
		t.Fatal("dismissed nudge still rendered")
	}
}

func TestChapters_Navigation(t *testing.T) {
	m, _, _ := newTestModel(t, &stubGateway{}, "")
	if _, ok := m.currentChapter(); ok {
		t.Fatal("no chapter before load")
	}

	cmd := loadChaptersCmd(context.Background(), catalogStub{}, "Physics")
	m = step(t, m, cmd())

	cur, ok := m.currentChapter()
	if !ok || !strings.Contains(cur, "Chapter 1") {
		t.Fatalf("current = %q", cur)
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	if cur, _ := m.currentChapter(); !strings.Contains(cur, "Chapter 2") {
		t.Fatalf("after next = %q", cur)
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if cur, _ := m.currentChapter(); !strings.Contains(cur, "Chapter 1") {
		t.Fatalf("prev past start should stay on chapter 1, got %q", cur)
	}
}

func TestChapters_LoadFailure(t *testing.T) {
	m, _, _ := newTestModel(t, &stubGateway{}, "")
	m = step(t, m, chaptersMsg{textbookID: "Physics", err: errors.New("down")})
	if m.nav != nil || m.status != "Chapters unavailable" {
		t.Fatalf("nav=%v status=%q", m.nav, m.status)
	}
}

func quizReply(question string, options ...string) models.ChatResponse {
	q := &models.Quiz{Question: question}
	for i, text := range options {
		q.Options = append(q.Options, models.Option{
			ID:        models.OptionID(fmt.Sprintf("%s-%d", question, i)),
			Text:      text,
			IsCorrect: i == 0,
		})
	}
	return models.ChatResponse{Response: "Try this.", Quiz: q, IsQuiz: true}
}

func TestQuiz_LaterQuizDoesNotMoveFocusedCursor(t *testing.T) {
	gw := &stubGateway{reply: quizReply("first", "a", "b", "c", "d")}
	m, sess, q := newTestModel(t, gw, "")

	m = typeText(t, m, "quiz me")
	m = submit(t, m)
	q.fire()
	m = step(t, m, updateMsg{})

	// second quiz is still pending when the user tabs into the first one
	gw.reply = quizReply("second", "x", "y")
	m = typeText(t, m, "another")
	m = submit(t, m)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	for i := 0; i < 3; i++ {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	q.fire()
	m = step(t, m, updateMsg{})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	states := map[string]conversation.QuizState{}
	for _, msg := range sess.Messages() {
		if msg.IsQuiz() {
			states[msg.Quiz.Question] = msg.QuizState
		}
	}
	if got := states["first"]; got.Status != conversation.Answered || got.Selected != "first-3" {
		t.Fatalf("first quiz state = %+v, want answered with first-3", got)
	}
	if got := states["second"]; got.Status != conversation.Unanswered {
		t.Fatalf("second quiz should stay unanswered, got %+v", got)
	}
	if m.focus != focusInput {
		t.Fatal("answering should return focus to input")
	}
}

func TestQuiz_CursorClampedToFocusedQuiz(t *testing.T) {
	gw := &stubGateway{reply: quizReply("only", "a", "b")}
	m, sess, q := newTestModel(t, gw, "")

	m = typeText(t, m, "quiz me")
	m = submit(t, m)
	q.fire()
	m = step(t, m, updateMsg{})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m.optionCursor = 7
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	for _, msg := range sess.Messages() {
		if msg.IsQuiz() && msg.QuizState.Selected != "only-1" {
			t.Fatalf("expected the last option, got %+v", msg.QuizState)
		}
	}
}

func TestTextbooks_PickerSelectsFirstAndCycles(t *testing.T) {
	sess := conversation.NewSession(&stubGateway{}, tokenCreds(""))
	m := New(Options{Session: sess, Catalog: catalogStub{}})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	books := fallback.Catalog()
	next, cmd := m.Update(loadTextbooksCmd(context.Background(), catalogStub{})())
	m = next.(Model)
	if m.textbookID != books[0].ID || cmd == nil {
		t.Fatalf("expected %q selected with a chapter load, got %q", books[0].ID, m.textbookID)
	}
	m = step(t, m, cmd())
	if cur, ok := m.currentChapter(); !ok || !strings.Contains(cur, "Chapter 1") {
		t.Fatalf("current = %q", cur)
	}

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = next.(Model)
	if m.textbookID != books[1].ID || m.nav != nil || cmd == nil {
		t.Fatalf("ctrl+t should switch to %q and reload chapters, got %q", books[1].ID, m.textbookID)
	}
	// a late reply for the previous textbook is ignored
	m = step(t, m, chaptersMsg{textbookID: books[0].ID, list: fallback.Chapters(books[0].ID)})
	if m.nav != nil {
		t.Fatal("stale chapter list applied")
	}
	m = step(t, m, cmd())
	if m.nav == nil {
		t.Fatal("chapters for the new textbook not applied")
	}
}

func TestProgress_RefreshedAfterSignedInAnswer(t *testing.T) {
	gw := &stubGateway{reply: quizReply("p", "a", "b")}
	m, _, q := newTestModel(t, gw, "tok")
	src := m.progressDB.(*progressStub)

	m = typeText(t, m, "quiz me")
	m = submit(t, m)
	q.fire()
	m = step(t, m, updateMsg{})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a progress refresh after answering")
	}
	m = step(t, m, cmd())

	if len(src.tokens) != 1 || src.tokens[0] != "tok" {
		t.Fatalf("progress fetched with %v", src.tokens)
	}
	if !strings.Contains(m.renderHeader(), "12/20 correct") {
		t.Fatalf("header = %q", m.renderHeader())
	}
}

func TestProgress_NotFetchedWhenSignedOut(t *testing.T) {
	gw := &stubGateway{reply: quizReply("p", "a", "b")}
	m, _, q := newTestModel(t, gw, "")

	m = typeText(t, m, "quiz me")
	m = submit(t, m)
	q.fire()
	m = step(t, m, updateMsg{})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("signed-out answers should not fetch progress")
	}
}
