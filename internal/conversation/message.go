package conversation

import (
	"time"

	"textbook-gateway/internal/models"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Kind int

const (
	KindText Kind = iota
	KindQuiz
	KindLoginNudge
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindQuiz:
		return "quiz"
	case KindLoginNudge:
		return "login_nudge"
	default:
		return "unknown"
	}
}

type QuizStatus int

const (
	Unanswered QuizStatus = iota
	Answered
)

// QuizState is the answer lifecycle of a quiz message. It changes at most
// once, from Unanswered to Answered.
type QuizState struct {
	Status   QuizStatus
	Selected models.OptionID
	Correct  bool
}

// Message is one entry of the conversation log. Quiz is set only for
// KindQuiz messages.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
	Kind      Kind
	Quiz      *models.Quiz
	QuizState QuizState
}

func (m Message) IsQuiz() bool { return m.Kind == KindQuiz && m.Quiz != nil }
