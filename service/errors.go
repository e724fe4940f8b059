package service

import (
	"context"
	"errors"
	"net/http"

	"docchunker/types"
)

// Describe maps a use-case failure to an HTTP status and the message shown to
// the user.
func Describe(err error) (int, string) {
	var se *types.ServiceError
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "Document not found"
	case errors.Is(err, types.ErrEmptySelection):
		return http.StatusBadRequest, "Message and selected chunks are required"
	case errors.Is(err, types.ErrInvalidDocument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrPromptTooLarge):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, types.ErrNoDocumentView):
		return http.StatusConflict, types.ErrNoDocumentView.Error()
	case errors.As(err, &se):
		return describeService(se)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream service timed out"
	}
	return http.StatusInternalServerError, "internal server error"
}

func describeService(se *types.ServiceError) (int, string) {
	if se.Service == types.ServiceExtraction {
		return http.StatusInternalServerError, "Upload failed: " + se.Error()
	}
	switch se.Status {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, "Azure OpenAI authentication failed. Check your API key."
	case http.StatusNotFound:
		return http.StatusNotFound, "Azure OpenAI deployment not found. Check your endpoint and deployment name."
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "Azure OpenAI rate limit exceeded. Try again later."
	}
	return http.StatusInternalServerError, "Failed to get response from AI: " + se.Error()
}
