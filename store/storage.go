package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docchunker/chunker"
	"docchunker/types"

	"github.com/google/uuid"
)

type DocumentStorer interface {
	Create(ctx context.Context, src types.Source, cfg types.ChunkConfig) (*types.Document, error)
	Get(ctx context.Context, id string) (*types.Document, error)
	List(ctx context.Context) ([]types.DocumentSummary, error)
	Delete(ctx context.Context, id string) error
}

// Releaser frees an external resource addressed by a document id.
type Releaser interface {
	Release(id string) error
}

// MemoryStore keeps documents for the lifetime of the process.
// Documents are immutable once registered, so readers share them without copying.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]*types.Document
	order []string

	releaser Releaser
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*MemoryStore)

// WithReleaser makes Delete release the document's external resource.
func WithReleaser(r Releaser) Option {
	return func(s *MemoryStore) {
		s.releaser = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *MemoryStore) {
		s.logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		docs:   make(map[string]*types.Document),
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, src types.Source, cfg types.ChunkConfig) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks, total := chunker.ChunkText(src.Text, cfg)
	doc := &types.Document{
		Filename:    src.Filename,
		FullText:    src.Text,
		PageCount:   src.PageCount,
		TotalTokens: total,
		ChunkSize:   cfg.ChunkSize,
		OverlapSize: cfg.OverlapSize,
		Chunks:      chunks,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	id := s.newID()
	for _, taken := s.docs[id]; taken; _, taken = s.docs[id] {
		id = s.newID()
	}
	doc.ID = id
	s.docs[id] = doc
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.logger.Info("document created",
		"id", id,
		"filename", src.Filename,
		"tokens", total,
		"chunks", len(chunks),
		"chunk_size", cfg.ChunkSize,
		"overlap_size", cfg.OverlapSize,
	)
	return doc, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("get document %q: %w", id, types.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context) ([]types.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]types.DocumentSummary, 0, len(s.order))
	for _, id := range s.order {
		summaries = append(summaries, s.docs[id].Summary())
	}
	return summaries, nil
}

// Delete removes the document and then releases its external resource. Only
// the caller that actually removed the entry performs the release. A release
// failure is logged, not returned.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete document %q: %w", id, types.ErrNotFound)
	}
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	// The entry is gone at this point, so a failed release only leaks the
	// binary and does not fail the delete.
	if s.releaser != nil {
		if err := s.releaser.Release(id); err != nil {
			s.logger.Error("release document failed", "id", id, "error", err)
		}
	}
	s.logger.Info("document deleted", "id", id)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
