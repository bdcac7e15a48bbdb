package model

import "encoding/json"

type ChatRequest struct {
	Message string           `json:"message"`
	Image   *ImageAttachment `json:"image,omitempty"`
	History []HistoryTurn    `json:"history,omitempty"`
}

type EchoRequest struct {
	Message string `json:"message"`
}

// TranscriptRequest keeps chatHistory raw so it can be checked structurally
// before it is decoded into ChatHistory.
type TranscriptRequest struct {
	ChatHistory json.RawMessage `json:"chatHistory"`
}
