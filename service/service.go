package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docchunker/app/agent"
	"docchunker/model"
	"docchunker/store"
	"docchunker/types"
)

type Service struct {
	logger    *slog.Logger
	docs      store.DocumentStorer
	files     *store.FileStore
	sessions  *store.SessionStore
	extractor model.Extractor
	inspector model.Inspector
	completer agent.Completer
	budget    agent.Budget

	extractTimeout  time.Duration
	completeTimeout time.Duration
}

// Deps lists the collaborators of a Service. Zero timeouts leave the caller's
// context untouched.
type Deps struct {
	Logger    *slog.Logger
	Docs      store.DocumentStorer
	Files     *store.FileStore
	Sessions  *store.SessionStore
	Extractor model.Extractor
	Inspector model.Inspector
	Completer agent.Completer
	Budget    agent.Budget

	ExtractTimeout  time.Duration
	CompleteTimeout time.Duration
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := d.Sessions
	if sessions == nil {
		sessions = store.NewSessionStore()
	}
	return &Service{
		logger:          logger,
		docs:            d.Docs,
		files:           d.Files,
		sessions:        sessions,
		extractor:       d.Extractor,
		inspector:       d.Inspector,
		completer:       d.Completer,
		budget:          d.Budget,
		extractTimeout:  d.ExtractTimeout,
		completeTimeout: d.CompleteTimeout,
	}
}

// Upload is a PDF already written to a temporary path of the file store.
type Upload struct {
	Filename string
	Path     string
	Config   types.ChunkConfig
}

// Ingest inspects, extracts and chunks an upload. On success the binary is
// owned by the new document; on any failure it is discarded.
func (s *Service) Ingest(ctx context.Context, up Upload) (*types.Document, error) {
	adopted := false
	defer func() {
		if !adopted {
			s.files.Discard(up.Path)
		}
	}()

	pages, err := s.inspector.Inspect(up.Path)
	if err != nil {
		return nil, err
	}

	extractCtx, cancel := withTimeout(ctx, s.extractTimeout)
	text, err := s.extractor.Extract(extractCtx, up.Path, up.Filename)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", up.Filename, err)
	}

	doc, err := s.docs.Create(ctx, types.Source{
		Filename:  up.Filename,
		Text:      text,
		PageCount: pages,
	}, up.Config)
	if err != nil {
		return nil, err
	}

	if err := s.files.Adopt(up.Path, doc.ID); err != nil {
		if derr := s.docs.Delete(ctx, doc.ID); derr != nil {
			s.logger.Error("rollback of document failed", "id", doc.ID, "error", derr)
		}
		return nil, err
	}
	adopted = true

	s.logger.Info("document ingested", "id", doc.ID, "filename", doc.Filename, "pages", pages, "chunks", len(doc.Chunks))
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*types.Document, error) {
	return s.docs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]types.DocumentSummary, error) {
	return s.docs.List(ctx)
}

// Delete removes the document with its binary and detaches sessions viewing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	s.sessions.Forget(id)
	return nil
}

// Chat answers a question from the selected chunks. Chunks of a stored
// document are taken from the store by id; otherwise the texts carried by the
// request are used. A request without chunks falls back to the selection of
// its session.
func (s *Service) Chat(ctx context.Context, params types.ChatParams) (types.ChatResponse, error) {
	chunkContext, used, docID, err := s.resolveContext(ctx, params)
	if err != nil {
		return types.ChatResponse{}, err
	}

	prompt := agent.BuildPrompt(chunkContext, params.Message)
	size, err := s.budget.Check(prompt)
	if err != nil {
		return types.ChatResponse{}, err
	}

	s.record(params.SessionID, types.RoleUser, params.Message, docID)

	s.logger.Info("answering question", "document", docID, "chunks", len(used), "prompt_tokens", size)
	completeCtx, cancel := withTimeout(ctx, s.completeTimeout)
	answer, err := s.completer.Complete(completeCtx, prompt)
	cancel()
	if err != nil {
		_, msg := Describe(err)
		s.record(params.SessionID, types.RoleError, msg, docID)
		return types.ChatResponse{}, fmt.Errorf("complete: %w", err)
	}

	s.record(params.SessionID, types.RoleAssistant, answer, docID)
	return types.ChatResponse{
		Success:    true,
		Response:   answer,
		ChunksUsed: len(used),
	}, nil
}

func (s *Service) resolveContext(ctx context.Context, params types.ChatParams) (string, []types.Chunk, string, error) {
	docID := params.DocumentID
	ids := make([]int, 0, len(params.Chunks))
	for _, c := range params.Chunks {
		ids = append(ids, c.ID)
	}

	if len(ids) == 0 && params.SessionID != "" {
		viewed, selected := s.sessions.Selection(params.SessionID)
		if docID == "" {
			docID = viewed
		}
		if docID == viewed {
			ids = selected
		}
	}

	if docID == "" {
		chunkContext, used, err := agent.BuildContextFromChunks(params.Chunks)
		return chunkContext, used, "", err
	}

	if err := agent.ValidateSelection(ids); err != nil {
		return "", nil, docID, err
	}
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return "", nil, docID, err
	}
	chunkContext, used, err := agent.BuildContext(doc, ids)
	return chunkContext, used, docID, err
}

func (s *Service) record(sessionID string, role types.Role, content, docID string) {
	if sessionID == "" {
		return
	}
	s.sessions.Append(sessionID, types.ChatMessage{Role: role, Content: content, DocumentID: docID})
}

// View switches a session to a stored document.
func (s *Service) View(ctx context.Context, sessionID, docID string) error {
	if _, err := s.docs.Get(ctx, docID); err != nil {
		return err
	}
	s.sessions.View(sessionID, docID)

	// A delete that ran between the lookup and View has already forgotten
	// this document.
	if _, err := s.docs.Get(ctx, docID); err != nil {
		s.sessions.Forget(docID)
		return err
	}
	return nil
}

func (s *Service) Select(sessionID string, ids []int, selected bool) error {
	return s.sessions.Select(sessionID, ids, selected)
}

// SelectAll selects or clears every chunk of the document the session views.
func (s *Service) SelectAll(ctx context.Context, sessionID string, selected bool) error {
	docID, _ := s.sessions.Selection(sessionID)
	if docID == "" {
		return fmt.Errorf("session %q: %w", sessionID, types.ErrNoDocumentView)
	}
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return err
	}
	ids := make([]int, len(doc.Chunks))
	for i, c := range doc.Chunks {
		ids[i] = c.ID
	}
	return s.sessions.SelectAll(sessionID, ids, selected)
}

func (s *Service) Session(sessionID string) types.Session {
	return s.sessions.Snapshot(sessionID)
}

func (s *Service) Messages(sessionID string) []types.ChatMessage {
	return s.sessions.History(sessionID)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
