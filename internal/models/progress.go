package models

// ProgressRecord is the per-user quiz progress owned by the backend.
// LastAnswerTime stays a string because the backend's timestamp format is
// not guaranteed to be RFC 3339.
type ProgressRecord struct {
	CorrectAnswers int      `json:"correct_answers"`
	TotalAnswers   int      `json:"total_answers"`
	Streak         int      `json:"streak"`
	LastAnswerTime string   `json:"last_answer_time"`
	TopicsMastered []string `json:"topics_mastered"`
	Level          int      `json:"level"`
	XP             int      `json:"xp"`
}
