package model

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type ChatResponse struct {
	Message    string              `json:"message"`
	Timestamp  string              `json:"timestamp"`
	Status     string              `json:"status"`
	Response   string              `json:"response"`
	Structured *StructuredResponse `json:"structured,omitempty"`
}

// StreamChunk is one SSE "message" event of a streamed reply.
type StreamChunk struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

type EchoResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Echo      string `json:"echo"`
}

type StatusResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type TranscriptResponse struct {
	Summary     string `json:"summary"`
	GeneratedAt string `json:"generatedAt"`
	WordCount   int    `json:"wordCount"`
	SessionID   string `json:"sessionId"`
	Success     bool   `json:"success"`
}

type TranscriptError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId,omitempty"`
	Success   bool   `json:"success"`
}
