package models

// ErrorResponse is the body of every non-2xx gateway response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WSMessage is the envelope pushed to websocket subscribers.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventTextbookUploaded = "textbook_uploaded"
	EventTextbookDeleted  = "textbook_deleted"
)

type TextbookDeletedEvent struct {
	ID string `json:"id"`
}
