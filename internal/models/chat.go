package models

// ChatRequest is the payload accepted by POST /chat. Token may be null.
type ChatRequest struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// BackendChatRequest is what the gateway sends to the backend chat capability.
type BackendChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply shape shared by /chat and /greeting.
type ChatResponse struct {
	Response string `json:"response"`
	Saved    bool   `json:"saved"`
	Quiz     *Quiz  `json:"quiz,omitempty"`
	IsQuiz   bool   `json:"isQuiz"`
}
