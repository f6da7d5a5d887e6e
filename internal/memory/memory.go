// Package memory stores and recalls personal memories.
//
// Each memory is embedded into the vector index for similarity recall
// and recorded in a JSON catalog on disk so memories can be listed and
// deleted without querying the index. Photo memories keep the decoded
// image under the photo directory.
package memory

import (
	"errors"
	"time"
)

// Kind of memory.
const (
	KindText  = "text"
	KindPhoto = "photo"
)

// Sentinel errors for memory operations.
var (
	// ErrEmptyContent is returned when storing a memory with no text.
	ErrEmptyContent = errors.New("memory content cannot be empty")

	// ErrNotFound is returned when a memory ID does not exist.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidPhoto is returned for undecodable or oversized photo data.
	ErrInvalidPhoto = errors.New("invalid photo data")
)

// Memory is a stored memory entry.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	PhotoPath string    `json:"photo_path,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecallResult is a memory returned from similarity recall.
type RecallResult struct {
	Memory
	Score float32 `json:"score"`
}
