package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchunker/app/agent"
	"docchunker/config"
	"docchunker/service"
	"docchunker/store"
	"docchunker/types"
)

type stubExtractor struct{ text string }

func (s stubExtractor) Extract(context.Context, string, string) (string, error) {
	return s.text, nil
}

type stubInspector struct{}

func (stubInspector) Inspect(string) (int, error) { return 1, nil }

type stubCompleter struct{ err error }

func (s stubCompleter) Complete(_ context.Context, p agent.Prompt) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "answer", nil
}

func newTestServer(t *testing.T, completer agent.Completer) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	cfg.PublicDir = t.TempDir()
	cfg.Chunking = types.ChunkConfig{ChunkSize: 4, OverlapSize: 1}

	files := store.NewFileStore(cfg.UploadDir)
	require.NoError(t, files.Init())
	svc := service.New(service.Deps{
		Logger:    logger,
		Docs:      store.NewMemoryStore(store.WithReleaser(files), store.WithLogger(logger)),
		Files:     files,
		Extractor: stubExtractor{text: "one two three four five six seven eight nine ten"},
		Inspector: stubInspector{},
		Completer: completer,
	})
	return NewServer(cfg, svc, files, logger)
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("pdfFile", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, s *Server, req *http.Request, out any) *http.Response {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func upload(t *testing.T, s *Server) types.IngestResponse {
	t.Helper()
	var out types.IngestResponse
	resp := do(t, s, uploadRequest(t, "report.pdf", "%PDF-1.4 body", nil), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return out
}

func TestHealthy(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	var out map[string]string
	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/check/healthy", nil), &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["result"])
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	out := upload(t, s)

	assert.True(t, out.Success)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "report.pdf", out.Filename)
	assert.Equal(t, 10, out.TotalTokens)
	assert.Equal(t, 4, out.ChunkSize)
	assert.Equal(t, 1, out.OverlapSize)
	assert.Equal(t, 3, out.ChunkCount)
	assert.Len(t, out.Chunks, 3)
}

func TestUpload_ChunkingFields(t *testing.T) {
	s := newTestServer(t, stubCompleter{})

	var out types.IngestResponse
	resp := do(t, s, uploadRequest(t, "report.pdf", "%PDF", map[string]string{"chunkSize": "5", "overlapSize": "0"}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, out.ChunkSize)
	assert.Equal(t, 0, out.OverlapSize)
	assert.Equal(t, 2, out.ChunkCount)
}

func TestUpload_Rejections(t *testing.T) {
	s := newTestServer(t, stubCompleter{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"not a pdf", uploadRequest(t, "notes.txt", "plain text", nil), http.StatusBadRequest},
		{"bad chunk size", uploadRequest(t, "report.pdf", "%PDF", map[string]string{"chunkSize": "big"}), http.StatusUnprocessableEntity},
		{"zero chunk size", uploadRequest(t, "report.pdf", "%PDF", map[string]string{"chunkSize": "0"}), http.StatusUnprocessableEntity},
		{"negative overlap", uploadRequest(t, "report.pdf", "%PDF", map[string]string{"overlapSize": "-1"}), http.StatusUnprocessableEntity},
		{"no file", jsonRequest(http.MethodPost, "/upload", map[string]string{}), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, tt.req, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	up := upload(t, s)

	var doc types.Document
	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/chunks/"+up.ID, nil), &doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, up.ID, doc.ID)
	assert.Equal(t, "one two three four five six seven eight nine ten", doc.FullText)

	var list []types.DocumentSummary
	do(t, s, httptest.NewRequest(http.MethodGet, "/documents", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].ChunkCount)

	resp = do(t, s, httptest.NewRequest(http.MethodGet, "/export/"+up.ID, nil), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="report.pdf-chunks.json"`, resp.Header.Get("Content-Disposition"))

	resp = do(t, s, httptest.NewRequest(http.MethodGet, "/uploads/"+up.ID, nil), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted map[string]any
	resp = do(t, s, httptest.NewRequest(http.MethodDelete, "/documents/"+up.ID, nil), &deleted)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": true, "message": "Document deleted"}, deleted)

	var apiErr map[string]any
	resp = do(t, s, httptest.NewRequest(http.MethodGet, "/chunks/"+up.ID, nil), &apiErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Document not found", apiErr["error"])

	resp = do(t, s, httptest.NewRequest(http.MethodDelete, "/documents/"+up.ID, nil), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport_QuotesFilename(t *testing.T) {
	s := newTestServer(t, stubCompleter{})

	var up types.IngestResponse
	resp := do(t, s, uploadRequest(t, `a"; x=y.pdf`, "%PDF-1.4 body", nil), &up)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, s, httptest.NewRequest(http.MethodGet, "/export/"+up.ID, nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	disposition := resp.Header.Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="`))
	assert.NotContains(t, disposition, `"; x=y`)
	assert.Equal(t, 2, strings.Count(disposition, `"`))
}

func TestChat(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	up := upload(t, s)

	var out types.ChatResponse
	resp := do(t, s, jsonRequest(http.MethodPost, "/chat", map[string]any{
		"message":    "what?",
		"documentId": up.ID,
		"chunks":     []map[string]any{{"id": 1, "text": "x"}, {"id": 2, "text": "y"}},
	}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.ChatResponse{Success: true, Response: "answer", ChunksUsed: 2}, out)

	resp = do(t, s, jsonRequest(http.MethodPost, "/chat", map[string]any{"message": "what?"}), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, s, jsonRequest(http.MethodPost, "/chat", map[string]any{"chunks": []map[string]any{{"id": 1, "text": "x"}}}), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestChat_CompletionErrors(t *testing.T) {
	for status, want := range map[int]string{
		http.StatusUnauthorized:    "Azure OpenAI authentication failed. Check your API key.",
		http.StatusNotFound:        "Azure OpenAI deployment not found. Check your endpoint and deployment name.",
		http.StatusTooManyRequests: "Azure OpenAI rate limit exceeded. Try again later.",
	} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			s := newTestServer(t, stubCompleter{err: &types.ServiceError{Service: types.ServiceCompletion, Status: status, Message: "x"}})

			var apiErr map[string]any
			resp := do(t, s, jsonRequest(http.MethodPost, "/chat", map[string]any{
				"message": "q",
				"chunks":  []map[string]any{{"id": 1, "text": "x"}},
			}), &apiErr)
			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, want, apiErr["error"])
		})
	}
}

func TestSessions(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	up := upload(t, s)

	resp := do(t, s, jsonRequest(http.MethodPost, "/sessions/s1/selection", map[string]any{"chunkIds": []int{1}, "selected": true}), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, s, jsonRequest(http.MethodPut, "/sessions/s1/document", map[string]any{"documentId": "missing"}), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var snap types.Session
	resp = do(t, s, jsonRequest(http.MethodPut, "/sessions/s1/document", map[string]any{"documentId": up.ID}), &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, up.ID, snap.DocumentID)

	do(t, s, jsonRequest(http.MethodPost, "/sessions/s1/selection/all", map[string]any{"selected": true}), &snap)
	assert.Equal(t, []int{1, 2, 3}, snap.Selected)

	do(t, s, jsonRequest(http.MethodPost, "/sessions/s1/selection", map[string]any{"chunkIds": []int{2}, "selected": false}), &snap)
	assert.Equal(t, []int{1, 3}, snap.Selected)

	var out types.ChatResponse
	resp = do(t, s, jsonRequest(http.MethodPost, "/chat", map[string]any{"message": "q", "sessionId": "s1"}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, out.ChunksUsed)

	var history []types.ChatMessage
	do(t, s, httptest.NewRequest(http.MethodGet, "/sessions/s1/messages", nil), &history)
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleAssistant, history[1].Role)

	do(t, s, httptest.NewRequest(http.MethodDelete, "/documents/"+up.ID, nil), nil)
	do(t, s, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil), &snap)
	assert.Empty(t, snap.DocumentID)
	assert.Empty(t, snap.Selected)
	assert.Len(t, snap.Messages, 2)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	var apiErr map[string]any
	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil), &apiErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(fmt.Sprint(apiErr["error"]), "Cannot GET"))
}
