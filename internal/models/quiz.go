package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Quiz struct {
	Question    string   `json:"question"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

type Option struct {
	ID        OptionID `json:"id"`
	Text      string   `json:"text"`
	IsCorrect bool     `json:"isCorrect"`
}

// OptionID accepts both string and numeric ids from the backend.
type OptionID string

func (id *OptionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = OptionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("option id must be a string or number: %w", err)
	}
	*id = OptionID(n.String())
	return nil
}

var (
	ErrQuizNoOptions    = errors.New("quiz has no options")
	ErrQuizCorrectCount = errors.New("quiz must have exactly one correct option")
	ErrQuizDuplicateID  = errors.New("quiz option ids must be unique")
)

// Validate checks the structural invariants of a quiz. The question text
// is not one of them; an empty question still renders its options.
func (q *Quiz) Validate() error {
	if len(q.Options) == 0 {
		return ErrQuizNoOptions
	}
	seen := make(map[OptionID]struct{}, len(q.Options))
	correct := 0
	for _, opt := range q.Options {
		if _, dup := seen[opt.ID]; dup {
			return ErrQuizDuplicateID
		}
		seen[opt.ID] = struct{}{}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return ErrQuizCorrectCount
	}
	return nil
}

func (q *Quiz) Option(id OptionID) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

func (q *Quiz) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}

type QuizAnswerRequest struct {
	MessageID string   `json:"messageId"`
	OptionID  OptionID `json:"optionId"`
	IsCorrect bool     `json:"isCorrect"`
}

type QuizAnswerResponse struct {
	Success  bool           `json:"success"`
	Progress ProgressRecord `json:"progress"`
	Message  string         `json:"message"`
}
