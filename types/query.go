package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

var validate = validator.New()

// SelectedChunk is a chunk reference carried by a chat turn.
type SelectedChunk struct {
	ID   int    `json:"id" validate:"min=1"`
	Text string `json:"text"`
}

type ChatParams struct {
	Message    string          `json:"message" validate:"required"`
	Chunks     []SelectedChunk `json:"chunks" validate:"dive"`
	DocumentID string          `json:"documentId"`
	SessionID  string          `json:"sessionId"`
}

type ChatResponse struct {
	Success    bool   `json:"success"`
	Response   string `json:"response"`
	ChunksUsed int    `json:"chunksUsed"`
}

type IngestResponse struct {
	Success     bool    `json:"success"`
	ID          string  `json:"fileId"`
	Filename    string  `json:"filename"`
	TotalTokens int     `json:"totalTokens"`
	ChunkCount  int     `json:"chunkCount"`
	ChunkSize   int     `json:"chunkSize"`
	OverlapSize int     `json:"overlapSize"`
	Chunks      []Chunk `json:"chunks"`
}

func NewIngestResponse(doc *Document) IngestResponse {
	return IngestResponse{
		Success:     true,
		ID:          doc.ID,
		Filename:    doc.Filename,
		TotalTokens: doc.TotalTokens,
		ChunkCount:  len(doc.Chunks),
		ChunkSize:   doc.ChunkSize,
		OverlapSize: doc.OverlapSize,
		Chunks:      doc.Chunks,
	}
}

type ViewParams struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type SelectionParams struct {
	ChunkIDs []int `json:"chunkIds" validate:"required,min=1,dive,min=1"`
	Selected bool  `json:"selected"`
}

type SelectAllParams struct {
	Selected bool `json:"selected"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(s any) map[string]string {
	if err := validate.Struct(s); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *ChatParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *ChunkConfig) Validate() map[string]string {
	return validateStruct(params)
}

func (params *ViewParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *SelectionParams) Validate() map[string]string {
	return validateStruct(params)
}
