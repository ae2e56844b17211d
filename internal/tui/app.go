// Package tui is the Bubble Tea front end of the textbook chat client.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"textbook-gateway/internal/catalog"
	"textbook-gateway/internal/conversation"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
)

// Conversation is the part of conversation.Session the UI drives.
type Conversation interface {
	Updates() <-chan struct{}
	Messages() []conversation.Message
	Typing() bool
	NudgeVisible() bool
	DismissNudge()
	Authenticated() bool
	Bootstrap(ctx context.Context) error
	Send(ctx context.Context, input string) error
	AnswerQuiz(messageID string, optionID models.OptionID) error
}

// Catalog lists textbooks and their chapters.
type Catalog interface {
	Textbooks(ctx context.Context) ([]models.Textbook, error)
	Chapters(ctx context.Context, textbookID string) (models.ChapterList, error)
}

// ProgressSource reads the signed-in user's quiz progress.
type ProgressSource interface {
	Progress(ctx context.Context, token string) (models.ProgressRecord, error)
}

type Options struct {
	Context     context.Context
	Session     Conversation
	Catalog     Catalog
	Progress    ProgressSource
	Credentials conversation.Credentials
	// TextbookID skips the textbook picker when set.
	TextbookID string
	Logger     *logger.Logger
}

type focus int

const (
	focusInput focus = iota
	focusQuiz
)

type (
	updateMsg        struct{}
	bootstrapDoneMsg struct{ err error }
	sendDoneMsg      struct{ err error }
	chaptersMsg      struct {
		textbookID string
		list       models.ChapterList
		err        error
	}
	textbooksMsg struct {
		books []models.Textbook
		err   error
	}
	progressMsg struct {
		record models.ProgressRecord
		err    error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	ctx        context.Context
	session    Conversation
	catalog    Catalog
	progressDB ProgressSource
	creds      conversation.Credentials
	textbookID string
	log        *logger.Logger

	keys   keyMap
	styles styles

	width  int
	height int
	ready  bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	focus        focus
	quizID       string
	optionCursor int

	nav          *catalog.Navigator
	textbookName string
	textbooks    []models.Textbook
	textbookIdx  int

	progress *models.ProgressRecord

	status string
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Ask about your textbook..."
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:        ctx,
		session:    opts.Session,
		catalog:    opts.Catalog,
		progressDB: opts.Progress,
		creds:      opts.Credentials,
		textbookID: opts.TextbookID,
		log:        log,
		keys:       defaultKeyMap(),
		styles:     defaultStyles(),
		input:      input,
		spinner:    sp,
		focus:      focusInput,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		waitForUpdate(m.ctx, m.session.Updates()),
		bootstrapCmd(m.ctx, m.session),
	}
	if m.catalog != nil {
		cmds = append(cmds, loadTextbooksCmd(m.ctx, m.catalog))
		if m.textbookID != "" {
			cmds = append(cmds, loadChaptersCmd(m.ctx, m.catalog, m.textbookID))
		}
	}
	if cmd := m.progressCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.viewportHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.viewportHeight()
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.ctx, m.session.Updates())

	case bootstrapDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, conversation.ErrAlreadyBootstrapped) {
			m.log.Warn("bootstrap failed", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case sendDoneMsg:
		switch {
		case errors.Is(msg.err, conversation.ErrBusy):
			m.status = "Still waiting for the last reply"
		case msg.err != nil:
			m.status = msg.err.Error()
		default:
			m.status = ""
		}
		m.refresh()
		return m, nil

	case chaptersMsg:
		if msg.textbookID != m.textbookID {
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("chapters unavailable", "textbook_id", m.textbookID, "error", msg.err)
			m.status = "Chapters unavailable"
			return m, nil
		}
		m.nav = catalog.NewNavigator(msg.list.Chapters)
		if msg.list.Title != "" {
			m.textbookName = msg.list.Title
		}
		return m, nil

	case textbooksMsg:
		if msg.err != nil {
			m.log.Warn("textbooks unavailable", "error", msg.err)
			m.status = "Textbooks unavailable"
			return m, nil
		}
		m.textbooks = msg.books
		if m.textbookID != "" {
			for i, book := range m.textbooks {
				if book.ID == m.textbookID {
					m.textbookIdx = i
				}
			}
			return m, nil
		}
		if len(m.textbooks) == 0 {
			return m, nil
		}
		cmd := m.selectTextbook(0)
		return m, cmd

	case progressMsg:
		if msg.err != nil {
			m.log.Warn("progress unavailable", "error", msg.err)
			return m, nil
		}
		record := msg.record
		m.progress = &record
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.DismissNudge):
		if m.session.NudgeVisible() {
			m.session.DismissNudge()
			m.refresh()
			return m, nil
		}
		if m.focus == focusQuiz {
			m.setFocus(focusInput)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleFocus):
		if m.focus == focusQuiz {
			m.setFocus(focusInput)
		} else if quiz, ok := m.activeQuiz(); ok {
			m.setFocus(focusQuiz)
			m.quizID = quiz.ID
			m.optionCursor = 0
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.NextTextbook):
		if len(m.textbooks) < 2 {
			return m, nil
		}
		cmd := m.selectTextbook((m.textbookIdx + 1) % len(m.textbooks))
		return m, cmd

	case key.Matches(msg, m.keys.NextChapter):
		if m.nav != nil {
			m.nav.Next()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevChapter):
		if m.nav != nil {
			m.nav.Prev()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusQuiz {
		return m.handleQuizKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, sendCmd(m.ctx, m.session, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleQuizKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	quiz, ok := m.focusedQuiz()
	if !ok {
		m.setFocus(focusInput)
		m.refresh()
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.OptionUp):
		if m.optionCursor > 0 {
			m.optionCursor--
		}
	case key.Matches(msg, m.keys.OptionDown):
		if m.optionCursor < len(quiz.Quiz.Options)-1 {
			m.optionCursor++
		}
	case key.Matches(msg, m.keys.Send):
		if m.optionCursor >= len(quiz.Quiz.Options) {
			m.optionCursor = len(quiz.Quiz.Options) - 1
		}
		opt := quiz.Quiz.Options[m.optionCursor]
		m.setFocus(focusInput)
		if err := m.session.AnswerQuiz(quiz.ID, opt.ID); err != nil {
			m.status = err.Error()
			m.refresh()
			return m, nil
		}
		m.refresh()
		return m, m.progressCmd()
	}
	m.refresh()
	return m, nil
}

// selectTextbook makes books[idx] current and loads its chapters.
func (m *Model) selectTextbook(idx int) tea.Cmd {
	book := m.textbooks[idx]
	m.textbookIdx = idx
	m.textbookID = book.ID
	m.textbookName = book.Title
	m.nav = nil
	return loadChaptersCmd(m.ctx, m.catalog, book.ID)
}

// progressCmd fetches progress for a signed-in user. The answer itself is
// recorded in the background, so the count may trail by one answer.
func (m Model) progressCmd() tea.Cmd {
	if m.progressDB == nil || m.creds == nil {
		return nil
	}
	token, ok := m.creds.Token()
	if !ok {
		return nil
	}
	src, ctx := m.progressDB, m.ctx
	return func() tea.Msg {
		record, err := src.Progress(ctx, token)
		return progressMsg{record: record, err: err}
	}
}

// focusedQuiz is the quiz pinned by tab, while it is still unanswered.
// Quizzes that arrive later do not take over the cursor.
func (m Model) focusedQuiz() (conversation.Message, bool) {
	if m.quizID == "" {
		return conversation.Message{}, false
	}
	for _, msg := range m.session.Messages() {
		if msg.ID == m.quizID && msg.IsQuiz() && msg.QuizState.Status == conversation.Unanswered {
			return msg, true
		}
	}
	return conversation.Message{}, false
}

// activeQuiz is the latest quiz still waiting for an answer.
func (m Model) activeQuiz() (conversation.Message, bool) {
	msgs := m.session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsQuiz() && msgs[i].QuizState.Status == conversation.Unanswered {
			return msgs[i], true
		}
	}
	return conversation.Message{}, false
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.quizID = ""
		m.optionCursor = 0
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) viewportHeight() int {
	// header, status and input lines
	return max(m.height-3, 1)
}

func waitForUpdate(ctx context.Context, updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-updates:
			return updateMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func bootstrapCmd(ctx context.Context, s Conversation) tea.Cmd {
	return func() tea.Msg {
		return bootstrapDoneMsg{err: s.Bootstrap(ctx)}
	}
}

func sendCmd(ctx context.Context, s Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: s.Send(ctx, text)}
	}
}

func loadChaptersCmd(ctx context.Context, src Catalog, textbookID string) tea.Cmd {
	return func() tea.Msg {
		list, err := src.Chapters(ctx, textbookID)
		return chaptersMsg{textbookID: textbookID, list: list, err: err}
	}
}

func loadTextbooksCmd(ctx context.Context, src Catalog) tea.Cmd {
	return func() tea.Msg {
		books, err := src.Textbooks(ctx)
		return textbooksMsg{books: books, err: err}
	}
}
