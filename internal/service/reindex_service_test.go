package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/projection"
)

type memStore struct {
	mu      sync.Mutex
	docs    map[model.SourceKey]*model.SearchDocument
	missing []model.SourceKey
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[model.SourceKey]*model.SearchDocument)}
}

func (m *memStore) Upsert(ctx context.Context, doc *model.SearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[model.SourceKey{SourceType: doc.SourceType, SourceID: doc.SourceID}] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, sourceType model.SourceType, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, model.SourceKey{SourceType: sourceType, SourceID: sourceID})
	return nil
}

func (m *memStore) ListMissingEmbedding(ctx context.Context, limit int) ([]model.SourceKey, error) {
	return m.missing, nil
}

func (m *memStore) get(key model.SourceKey) *model.SearchDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[key]
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type fakeProjector struct {
	ids     []string
	goneIDs map[string]bool
	failIDs map[string]bool
	text    func(id string) string
}

func (f *fakeProjector) Project(ctx context.Context, sourceID string) (*projection.Projection, error) {
	if f.goneIDs[sourceID] {
		return nil, apperrors.ErrEntityGone
	}
	if f.failIDs[sourceID] {
		return nil, fmt.Errorf("projection blew up")
	}
	text := "text for " + sourceID
	if f.text != nil {
		text = f.text(sourceID)
	}
	return &projection.Projection{Title: "title " + sourceID, Text: text}, nil
}

func (f *fakeProjector) ListIDs(ctx context.Context) ([]string, error) {
	return f.ids, nil
}

func newTestReindex(t *testing.T, store *memStore, proj *fakeProjector, emb queryEmbedder, caps *capability.State) *ReindexService {
	t.Helper()
	registry := projection.NewRegistry()
	registry.Register(model.SourceTypeCandidate, proj)
	svc, err := NewReindexService(registry, store, emb, caps, ReindexConfig{Workers: 2, BatchDelay: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func key(id string) model.SourceKey {
	return model.SourceKey{SourceType: model.SourceTypeCandidate, SourceID: id}
}

func TestProcessUpsertsProjectionWithEmbedding(t *testing.T) {
	store := newMemStore()
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{vec: []float32{1, 2}}, capability.NewState())

	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonCreate))
	doc := store.get(key("c1"))
	require.NotNil(t, doc)
	require.Equal(t, "title c1", doc.Title)
	require.Equal(t, []float32{1, 2}, doc.Embedding)
}

func TestProcessConvergesToLatestEntityState(t *testing.T) {
	store := newMemStore()
	current := "content1"
	proj := &fakeProjector{text: func(string) string { return current }}
	svc := newTestReindex(t, store, proj, &fakeEmbedder{vec: []float32{1}}, capability.NewState())

	// Two rapid edits, both triggering a reindex. The projection is read at
	// processing time, so the document ends up at the latest state no matter
	// how the triggers interleave.
	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))
	current = "content2"
	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))

	require.Equal(t, "content2", store.get(key("c1")).Text)
	require.Equal(t, 1, store.len())
}

func TestProcessDeleteReason(t *testing.T) {
	store := newMemStore()
	proj := &fakeProjector{failIDs: map[string]bool{"c1": true}}
	svc := newTestReindex(t, store, proj, &fakeEmbedder{}, capability.NewState())

	store.docs[key("c1")] = &model.SearchDocument{SourceID: "c1"}
	// Delete must not touch the projector, even for an entity whose
	// projection would fail.
	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonDelete))
	require.Nil(t, store.get(key("c1")))
}

func TestProcessEntityGoneTreatedAsDelete(t *testing.T) {
	store := newMemStore()
	store.docs[key("c1")] = &model.SearchDocument{SourceID: "c1"}
	proj := &fakeProjector{goneIDs: map[string]bool{"c1": true}}
	svc := newTestReindex(t, store, proj, &fakeEmbedder{}, capability.NewState())

	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))
	require.Nil(t, store.get(key("c1")))
}

func TestProcessEmbedFailureIndexesLexicalOnly(t *testing.T) {
	store := newMemStore()
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{err: apperrors.ErrEmbeddingThrottled}, capability.NewState())

	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))
	doc := store.get(key("c1"))
	require.NotNil(t, doc)
	require.Nil(t, doc.Embedding)
}

func TestProcessStructuralEmbedFailureFlipsDegradation(t *testing.T) {
	store := newMemStore()
	emb := &fakeEmbedder{err: apperrors.ErrEmbeddingUnavailable}
	caps := capability.NewState()
	svc := newTestReindex(t, store, &fakeProjector{}, emb, caps)

	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))
	require.False(t, caps.EmbeddingEnabled())
	require.NoError(t, svc.Process(context.Background(), key("c2"), ReasonUpdate))
	require.Equal(t, 1, emb.calls)
	require.Equal(t, 2, store.len())
}

func TestProcessEmptyTextSkipsEmbedding(t *testing.T) {
	store := newMemStore()
	emb := &fakeEmbedder{vec: []float32{1}}
	proj := &fakeProjector{text: func(string) string { return "" }}
	svc := newTestReindex(t, store, proj, emb, capability.NewState())

	require.NoError(t, svc.Process(context.Background(), key("c1"), ReasonUpdate))
	require.Equal(t, 0, emb.calls)
	require.Nil(t, store.get(key("c1")).Embedding)
}

func TestTriggerIsAsynchronous(t *testing.T) {
	store := newMemStore()
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{vec: []float32{1}}, capability.NewState())

	svc.Trigger(model.SourceTypeCandidate, "c1", ReasonCreate)
	require.Eventually(t, func() bool {
		return store.get(key("c1")) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestReindexBatchIsolatesFailures(t *testing.T) {
	store := newMemStore()
	proj := &fakeProjector{failIDs: map[string]bool{"bad": true}}
	svc := newTestReindex(t, store, proj, &fakeEmbedder{vec: []float32{1}}, capability.NewState())

	keys := []model.SourceKey{key("a"), key("bad"), key("b")}
	result := svc.ReindexBatch(context.Background(), keys, ReasonUpdate)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 1, result.Failed)
	require.NotNil(t, store.get(key("a")))
	require.NotNil(t, store.get(key("b")))
}

func TestReindexBatchSpacesItems(t *testing.T) {
	store := newMemStore()
	registry := projection.NewRegistry()
	registry.Register(model.SourceTypeCandidate, &fakeProjector{})
	svc, err := NewReindexService(registry, store, &fakeEmbedder{vec: []float32{1}}, capability.NewState(), ReindexConfig{
		Workers:    2,
		BatchDelay: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	defer svc.Close()

	start := time.Now()
	result := svc.ReindexBatch(context.Background(), []model.SourceKey{key("a"), key("b"), key("c")}, ReasonUpdate)
	require.Equal(t, 3, result.Processed)
	// The limiter admits one item immediately, then one per interval.
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestReindexAllUsesProjectorIDs(t *testing.T) {
	store := newMemStore()
	proj := &fakeProjector{ids: []string{"c1", "c2", "c3"}}
	svc := newTestReindex(t, store, proj, &fakeEmbedder{vec: []float32{1}}, capability.NewState())

	result, err := svc.ReindexAll(context.Background(), model.SourceTypeCandidate)
	require.NoError(t, err)
	require.Equal(t, 3, result.Processed)
	require.Equal(t, 3, store.len())
}

func TestReindexAllUnknownTypeFails(t *testing.T) {
	store := newMemStore()
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{}, capability.NewState())
	_, err := svc.ReindexAll(context.Background(), model.SourceTypeJob)
	require.Error(t, err)
}

func TestSweepMissingEmbeddings(t *testing.T) {
	store := newMemStore()
	store.missing = []model.SourceKey{key("c1"), key("c2")}
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{vec: []float32{1}}, capability.NewState())

	result, err := svc.SweepMissingEmbeddings(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, []float32{1}, store.get(key("c1")).Embedding)
}

func TestSweepNoOpWhileDegraded(t *testing.T) {
	store := newMemStore()
	store.missing = []model.SourceKey{key("c1")}
	caps := capability.NewState()
	caps.DisableEmbedding(context.Background(), "test")
	svc := newTestReindex(t, store, &fakeProjector{}, &fakeEmbedder{vec: []float32{1}}, caps)

	result, err := svc.SweepMissingEmbeddings(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 0, result.Processed)
	require.Equal(t, 0, store.len())
}
