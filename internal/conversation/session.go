// Package conversation implements the client-side chat session: the
// message log, the quiz answer lifecycle and the login nudge.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
)

const (
	GreetingFallbackText = "Hello! I'm your textbook assistant. Ask me anything about your uploaded textbooks."
	ErrorText            = "Sorry, I encountered an error. Please try again."
	ProcessingText       = "I'm processing your request. Please wait a moment."
	LoginNudgeText       = "Want to save your chat history? Sign in or create an account to save this conversation and access it later."

	DefaultQuizDelay = 500 * time.Millisecond

	// nudgeThreshold is the number of non-nudge messages after which an
	// unauthenticated user is nudged to sign in.
	nudgeThreshold = 3
)

var (
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrBusy                = errors.New("a message is already being sent")
	ErrMessageNotFound     = errors.New("quiz message not found")
	ErrUnknownOption       = errors.New("unknown quiz option")
	ErrAlreadyAnswered     = errors.New("quiz already answered")
)

// Gateway is the server side of the conversation.
type Gateway interface {
	Greeting(ctx context.Context, token string) (models.ChatResponse, error)
	Chat(ctx context.Context, message, token string) (models.ChatResponse, error)
	RecordAnswer(ctx context.Context, token string, answer models.QuizAnswerRequest) error
}

// Credentials looks up the stored access token. It is consulted on every
// use, never cached by the session.
type Credentials interface {
	Token() (string, bool)
}

// ServerError is implemented by gateway errors that carry a message meant
// for the user.
type ServerError interface {
	ServerMessage() string
}

// Scheduler runs fn after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (cancel func() bool)

// Spawner runs fn detached from the caller.
type Spawner func(fn func())

func timerScheduler(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

func goSpawner(fn func()) { go fn() }

type Option func(*Session)

func WithScheduler(s Scheduler) Option { return func(sess *Session) { sess.schedule = s } }

func WithSpawner(s Spawner) Option { return func(sess *Session) { sess.spawn = s } }

func WithQuizDelay(d time.Duration) Option {
	return func(sess *Session) {
		if d >= 0 {
			sess.quizDelay = d
		}
	}
}

func WithLogger(l *logger.Logger) Option { return func(sess *Session) { sess.log = l } }

func WithClock(now func() time.Time) Option { return func(sess *Session) { sess.now = now } }

type pendingQuiz struct {
	seq    uint64
	msg    Message
	cancel func() bool
}

// Session owns a conversation. All methods are safe for concurrent use;
// state changes happen under one mutex and are announced on Updates.
type Session struct {
	gateway   Gateway
	creds     Credentials
	log       *logger.Logger
	schedule  Scheduler
	spawn     Spawner
	quizDelay time.Duration
	now       func() time.Time
	newID     func() string

	mu              sync.Mutex
	messages        []Message
	bootstrapped    bool
	greetingLoading bool
	sending         bool
	nudgeShown      bool
	nudgeDismissed  bool
	pending         *pendingQuiz
	pendingSeq      uint64

	updates chan struct{}
}

func NewSession(gateway Gateway, creds Credentials, opts ...Option) *Session {
	s := &Session{
		gateway:   gateway,
		creds:     creds,
		log:       logger.NewNop(),
		schedule:  timerScheduler,
		spawn:     goSpawner,
		quizDelay: DefaultQuizDelay,
		now:       time.Now,
		newID:     newMessageID,
		updates:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newMessageID returns a time-ordered UUIDv7.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Updates delivers a coalesced signal after every state change.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Messages returns a copy of the log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) GreetingLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greetingLoading
}

// Typing reports whether the typing indicator should show.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending || s.greetingLoading
}

func (s *Session) Authenticated() bool {
	_, ok := s.token()
	return ok
}

// NudgeVisible is true while the login nudge is shown, not dismissed and
// the user is still unauthenticated.
func (s *Session) NudgeVisible() bool {
	s.mu.Lock()
	shown, dismissed := s.nudgeShown, s.nudgeDismissed
	s.mu.Unlock()
	return shown && !dismissed && !s.Authenticated()
}

func (s *Session) DismissNudge() {
	s.mu.Lock()
	s.nudgeDismissed = true
	s.mu.Unlock()
	s.notify()
}

// Bootstrap fetches the greeting. It may be called once per session.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return ErrAlreadyBootstrapped
	}
	s.bootstrapped = true
	s.greetingLoading = true
	s.mu.Unlock()
	s.notify()

	token, _ := s.token()
	resp, err := s.gateway.Greeting(ctx, token)

	content := strings.TrimSpace(resp.Response)
	if err != nil {
		s.log.Warn("greeting failed", "error", err)
		content = GreetingFallbackText
	} else if content == "" {
		content = GreetingFallbackText
	}

	s.mu.Lock()
	s.appendLocked(s.textMessage(RoleAssistant, content))
	s.greetingLoading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// Send appends the user's message, forwards it and appends the reply. A
// gateway failure is reported in the conversation, not returned.
func (s *Session) Send(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.flushPendingLocked()
	s.appendLocked(s.textMessage(RoleUser, text))
	s.sending = true
	s.mu.Unlock()
	s.notify()

	token, _ := s.token()
	resp, err := s.gateway.Chat(ctx, text, token)

	s.mu.Lock()
	defer func() {
		s.sending = false
		s.mu.Unlock()
		s.notify()
	}()

	if err != nil {
		s.log.Warn("chat failed", "error", err)
		s.appendLocked(s.textMessage(RoleAssistant, failureText(err)))
		return nil
	}

	quiz := resp.Quiz
	if quiz != nil {
		if verr := quiz.Validate(); verr != nil {
			s.log.Warn("dropping invalid quiz", "error", verr)
			quiz = nil
		}
	}

	content := strings.TrimSpace(resp.Response)
	switch {
	case content != "":
		s.appendLocked(s.textMessage(RoleAssistant, content))
	case quiz == nil:
		s.appendLocked(s.textMessage(RoleAssistant, ProcessingText))
	}

	if quiz != nil {
		s.scheduleQuizLocked(quiz)
	}
	return nil
}

// AnswerQuiz records the user's choice on a quiz message and appends the
// feedback. Answers are final; a second answer returns ErrAlreadyAnswered
// and changes nothing.
func (s *Session) AnswerQuiz(messageID string, optionID models.OptionID) error {
	s.mu.Lock()

	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == messageID && s.messages[i].IsQuiz() {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrMessageNotFound
	}

	msg := &s.messages[idx]
	if msg.QuizState.Status == Answered {
		s.mu.Unlock()
		return ErrAlreadyAnswered
	}
	chosen, ok := msg.Quiz.Option(optionID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownOption
	}

	msg.QuizState = QuizState{Status: Answered, Selected: chosen.ID, Correct: chosen.IsCorrect}
	quiz := msg.Quiz

	if token, authed := s.token(); authed {
		answer := models.QuizAnswerRequest{MessageID: messageID, OptionID: chosen.ID, IsCorrect: chosen.IsCorrect}
		s.spawn(func() {
			if err := s.gateway.RecordAnswer(context.Background(), token, answer); err != nil {
				s.log.Warn("quiz answer not recorded", "message_id", messageID, "error", err)
			}
		})
	}

	s.appendLocked(s.textMessage(RoleAssistant, feedbackText(quiz, chosen)))
	s.mu.Unlock()
	s.notify()
	return nil
}

// Close cancels a quiz that has not been shown yet.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
	}
}

func (s *Session) scheduleQuizLocked(quiz *models.Quiz) {
	s.pendingSeq++
	p := &pendingQuiz{
		seq: s.pendingSeq,
		msg: Message{
			ID:      s.newID(),
			Role:    RoleAssistant,
			Content: quiz.Question,
			Kind:    KindQuiz,
			Quiz:    quiz,
		},
	}
	s.pending = p
	seq := p.seq
	p.cancel = s.schedule(s.quizDelay, func() {
		s.mu.Lock()
		if s.pending == nil || s.pending.seq != seq {
			s.mu.Unlock()
			return
		}
		s.flushPendingLocked()
		s.mu.Unlock()
		s.notify()
	})
}

// flushPendingLocked appends a scheduled quiz immediately.
func (s *Session) flushPendingLocked() {
	if s.pending == nil {
		return
	}
	p := s.pending
	s.pending = nil
	p.cancel()
	p.msg.Timestamp = s.now()
	s.appendLocked(p.msg)
}

func (s *Session) appendLocked(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	s.messages = append(s.messages, m)
	s.maybeNudgeLocked()
}

func (s *Session) maybeNudgeLocked() {
	if s.nudgeShown {
		return
	}
	count := 0
	for _, m := range s.messages {
		if m.Kind != KindLoginNudge {
			count++
		}
	}
	if count <= nudgeThreshold || s.Authenticated() {
		return
	}
	s.nudgeShown = true
	s.messages = append(s.messages, Message{
		ID:        s.newID(),
		Role:      RoleAssistant,
		Content:   LoginNudgeText,
		Timestamp: s.now(),
		Kind:      KindLoginNudge,
	})
}

func (s *Session) textMessage(role Role, content string) Message {
	return Message{ID: s.newID(), Role: role, Content: content, Kind: KindText}
}

func (s *Session) token() (string, bool) {
	if s.creds == nil {
		return "", false
	}
	token, ok := s.creds.Token()
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// notify never blocks; pending signals coalesce.
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func failureText(err error) string {
	var se ServerError
	if errors.As(err, &se) {
		if msg := strings.TrimSpace(se.ServerMessage()); msg != "" {
			return msg
		}
	}
	return ErrorText
}

func feedbackText(quiz *models.Quiz, chosen models.Option) string {
	if quiz.Explanation != "" {
		if chosen.IsCorrect {
			return "✓ Correct! " + quiz.Explanation
		}
		return "✗ Incorrect. " + quiz.Explanation
	}
	if chosen.IsCorrect {
		return "Correct! Well done."
	}
	correct, _ := quiz.CorrectOption()
	return fmt.Sprintf("Not quite. The correct answer is: %s", correct.Text)
}
