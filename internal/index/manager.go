// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"github.com/pdiddy/whats-next/pkg/types"
)

// DefaultK is the result count used when a query leaves k unset.
const DefaultK = 10

// ErrReleased is returned when querying an Index after Release.
var ErrReleased = errors.New("index released")

// Manager owns the index lifecycle on top of a Store. Builds and queries of
// one name are single-writer: an Index holds its name's lock from Build (or
// Open) until Release.
type Manager struct {
	store    Store
	embedder embedding.Embedder
	logger   *slog.Logger
	defaultK int
	locks    keyedLocks
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithDefaultK overrides the default result count.
func WithDefaultK(k int) ManagerOption {
	return func(m *Manager) {
		if k > 0 {
			m.defaultK = k
		}
	}
}

// NewManager binds a store to an embedding function.
func NewManager(store Store, embedder embedding.Embedder, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, embedder: embedder, logger: slog.Default(), defaultK: DefaultK}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Store returns the underlying backend.
func (m *Manager) Store() Store { return m.store }

// Build destroys any index called name and rebuilds it from docs. Each
// entry gets a fresh uuid. On any failure the partial index is destroyed
// and the error wraps ErrIndexBuild. The caller must Release the result.
func (m *Manager) Build(ctx context.Context, name string, docs []types.SourceDocument) (*Index, error) {
	name = SanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty index name", ErrIndexBuild)
	}

	release, err := m.locks.acquire(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %w", ErrIndexBuild, name, err)
	}

	if err := m.populate(ctx, name, docs); err != nil {
		if derr := m.store.Destroy(context.WithoutCancel(ctx), name); derr != nil {
			m.logger.Warn("could not remove partial index", "index", name, "err", derr)
		}
		release()
		return nil, fmt.Errorf("%w: %s: %w", ErrIndexBuild, name, err)
	}

	m.logger.Info("index built", "index", name, "documents", len(docs))
	return &Index{name: name, size: len(docs), m: m, release: release}, nil
}

func (m *Manager) populate(ctx context.Context, name string, docs []types.SourceDocument) error {
	if err := m.store.Destroy(ctx, name); err != nil {
		return fmt.Errorf("destroying previous index: %w", err)
	}

	if len(docs) == 0 {
		return m.store.Create(ctx, name, 0)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Abstract
	}
	vecs, err := m.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embedding returned %d vectors for %d documents", len(vecs), len(docs))
	}
	dim := len(vecs[0])
	if dim == 0 {
		return fmt.Errorf("embedding returned empty vectors")
	}

	entries := make([]Entry, len(docs))
	for i, d := range docs {
		if len(vecs[i]) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vecs[i]), dim)
		}
		entries[i] = Entry{ID: uuid.NewString(), Seq: i, Document: d, Vector: toFloat32(vecs[i])}
	}

	if err := m.store.Create(ctx, name, dim); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := m.store.Insert(ctx, name, entries); err != nil {
		return fmt.Errorf("inserting entries: %w", err)
	}
	return nil
}

// Open locks an existing persisted index for querying.
func (m *Manager) Open(ctx context.Context, name string) (*Index, error) {
	name = SanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty index name", ErrIndexNotFound)
	}
	release, err := m.locks.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	n, err := m.store.Count(ctx, name)
	if err != nil {
		release()
		return nil, fmt.Errorf("opening index %s: %w", name, err)
	}
	return &Index{name: name, size: n, m: m, release: release}, nil
}

// Drop destroys an index once no build or query holds it.
func (m *Manager) Drop(ctx context.Context, name string) error {
	name = SanitizeName(name)
	release, err := m.locks.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()
	if _, err := m.store.Count(ctx, name); err != nil {
		return err
	}
	return m.store.Destroy(ctx, name)
}

// Index is a built or opened index, locked until Release.
type Index struct {
	name    string
	size    int
	m       *Manager
	mu      sync.Mutex
	release func()
}

// Name returns the sanitized index name.
func (i *Index) Name() string { return i.name }

// Size returns the number of indexed documents.
func (i *Index) Size() int { return i.size }

// Query ranks the index against text and returns at most k hits ordered by
// descending cosine similarity. k of zero or less means the default; a k
// larger than the index returns every document.
func (i *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	i.mu.Lock()
	released := i.release == nil
	i.mu.Unlock()
	if released {
		return nil, ErrReleased
	}

	if k <= 0 {
		k = i.m.defaultK
	}
	if i.size == 0 {
		return []Hit{}, nil
	}
	k = min(k, i.size)

	vecs, err := i.m.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(vecs))
	}

	hits, err := i.m.store.Search(ctx, i.name, toFloat32(vecs[0]), k)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", i.name, err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Release unlocks the index name. Safe to call more than once.
func (i *Index) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.release != nil {
		i.release()
		i.release = nil
	}
}
