package http

import (
	"github.com/fyrsmithlabs/recalld/internal/conversation"
	"github.com/fyrsmithlabs/recalld/internal/memory"
)

// StoreMemoryRequest is the request body for POST /api/v1/memories.
// Either Content or Photo must be set; Photo is base64-encoded image
// data (a data URI prefix is tolerated) with an optional Caption.
type StoreMemoryRequest struct {
	Content string `json:"content,omitempty"`
	Photo   string `json:"photo,omitempty"`
	Caption string `json:"caption,omitempty"`
	Mood    string `json:"mood,omitempty"`
}

// ListMemoriesResponse is the response body for GET /api/v1/memories.
type ListMemoriesResponse struct {
	Memories []memory.Memory `json:"memories"`
	Count    int             `json:"count"`
}

// RecallResponse is the response body for GET /api/v1/memories/recall.
type RecallResponse struct {
	Query   string                `json:"query"`
	Results []memory.RecallResult `json:"results"`
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the response body for POST /api/v1/chat.
type ChatResponse struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	Provider  string   `json:"provider"`
	Mood      string   `json:"mood"`
	Memories  []string `json:"memories,omitempty"`
}

// HistoryResponse is the response body for GET /api/v1/chat/history.
type HistoryResponse struct {
	SessionID string              `json:"session_id"`
	Turns     []conversation.Turn `json:"turns"`
}

// ClearHistoryResponse is the response body for DELETE /api/v1/chat/history.
type ClearHistoryResponse struct {
	SessionID string `json:"session_id"`
	Deleted   int64  `json:"deleted"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
