package types

import (
	"time"
)

type Chunk struct {
	ID              int    `json:"id"`
	Text            string `json:"text"`
	TokenCount      int    `json:"tokenCount"`
	StartTokenIndex int    `json:"startToken"`
	EndTokenIndex   int    `json:"endToken"`
	IsLastChunk     bool   `json:"isLastChunk"`
}

// Document is one ingested file. It is never modified after the store registers it.
type Document struct {
	ID          string    `json:"fileId"`
	Filename    string    `json:"filename"`
	FullText    string    `json:"originalText"`
	TotalTokens int       `json:"totalTokens"`
	ChunkSize   int       `json:"chunkSize"`
	OverlapSize int       `json:"overlapSize"`
	PageCount   int       `json:"pageCount,omitempty"`
	Chunks      []Chunk   `json:"chunks"`
	CreatedAt   time.Time `json:"uploadTime"`
}

// Source is the extracted content of an upload, ready to be chunked.
type Source struct {
	Filename  string
	Text      string
	PageCount int
}

func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:          d.ID,
		Filename:    d.Filename,
		TotalTokens: d.TotalTokens,
		ChunkCount:  len(d.Chunks),
		CreatedAt:   d.CreatedAt,
	}
}

type DocumentSummary struct {
	ID          string    `json:"fileId"`
	Filename    string    `json:"filename"`
	TotalTokens int       `json:"totalTokens"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"uploadTime"`
}

// ChunkConfig governs chunk production for one ingestion.
type ChunkConfig struct {
	ChunkSize   int `json:"chunkSize" validate:"min=1"`
	OverlapSize int `json:"overlapSize" validate:"min=0"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

type ChatMessage struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	DocumentID string    `json:"documentId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is a snapshot of one viewing session.
type Session struct {
	ID         string        `json:"sessionId"`
	DocumentID string        `json:"documentId"`
	Selected   []int         `json:"selectedChunkIds"`
	Messages   []ChatMessage `json:"messages"`
}
