package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zer0-A1/emineon-search/internal/ai"
	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/projection"
)

// Reason is the trigger cause passed along entity mutation signals.
type Reason string

const (
	ReasonCreate Reason = "create"
	ReasonUpdate Reason = "update"
	ReasonDelete Reason = "delete"
)

type documentStore interface {
	Upsert(ctx context.Context, doc *model.SearchDocument) error
	Delete(ctx context.Context, sourceType model.SourceType, sourceID string) error
	ListMissingEmbedding(ctx context.Context, limit int) ([]model.SourceKey, error)
}

type ReindexConfig struct {
	// Workers bounds concurrent reindex tasks. Triggers beyond the pool
	// capacity are dropped, never queued unbounded and never blocking the
	// entity write path.
	Workers int
	// BatchDelay is the minimum spacing between items in batch mode, to
	// respect embedding-provider rate limits.
	BatchDelay time.Duration
}

// ReindexService keeps search documents eventually consistent with their
// source entities. Triggers are fire-and-forget; the store's upsert
// atomicity is the only correctness mechanism across concurrent triggers
// for the same key (last commit wins).
type ReindexService struct {
	projectors *projection.Registry
	store      documentStore
	embedder   queryEmbedder
	caps       *capability.State
	pool       *ants.Pool
	batchDelay time.Duration
}

func NewReindexService(projectors *projection.Registry, store documentStore, embedder queryEmbedder, caps *capability.State, cfg ReindexConfig) (*ReindexService, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 200 * time.Millisecond
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("init reindex pool: %w", err)
	}
	return &ReindexService{
		projectors: projectors,
		store:      store,
		embedder:   embedder,
		caps:       caps,
		pool:       pool,
		batchDelay: cfg.BatchDelay,
	}, nil
}

func (s *ReindexService) Close() {
	s.pool.Release()
}

// Trigger schedules a reindex and returns immediately. It is safe to call
// from entity-mutation paths: failures are logged, never propagated, and a
// saturated pool drops the trigger rather than blocking the caller. A
// dropped trigger is picked up later by the sweep job or the next mutation.
func (s *ReindexService) Trigger(sourceType model.SourceType, sourceID string, reason Reason) {
	err := s.pool.Submit(func() {
		ctx := context.Background()
		if err := s.Process(ctx, model.SourceKey{SourceType: sourceType, SourceID: sourceID}, reason); err != nil {
			logutil.GetLogger(ctx).Error("reindex failed",
				zap.String("source_type", string(sourceType)),
				zap.String("source_id", sourceID),
				zap.String("reason", string(reason)),
				zap.Error(err))
		}
	})
	if err != nil {
		logutil.GetLogger(context.Background()).Warn("reindex trigger dropped, pool saturated",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", sourceID),
			zap.Error(err))
	}
}

// Process rebuilds one search document synchronously. The projection is
// built from the entity state at processing time, not trigger time, so
// rapid successive edits collapse into one coherent result.
func (s *ReindexService) Process(ctx context.Context, key model.SourceKey, reason Reason) error {
	if reason == ReasonDelete {
		return s.store.Delete(ctx, key.SourceType, key.SourceID)
	}
	projector, err := s.projectors.Get(key.SourceType)
	if err != nil {
		return err
	}
	proj, err := projector.Project(ctx, key.SourceID)
	if err != nil {
		if apperrors.IsEntityGone(err) {
			// Entity vanished mid-reindex: treat as delete.
			return s.store.Delete(ctx, key.SourceType, key.SourceID)
		}
		return fmt.Errorf("project %s/%s: %w", key.SourceType, key.SourceID, err)
	}
	doc := &model.SearchDocument{
		SourceType: key.SourceType,
		SourceID:   key.SourceID,
		Title:      proj.Title,
		Text:       proj.Text,
		HTML:       proj.HTML,
		Metadata:   proj.Metadata,
		Perms:      proj.Perms,
	}
	doc.Embedding = s.embed(ctx, key, proj.Text)
	return s.store.Upsert(ctx, doc)
}

// embed computes the projection vector, or returns nil when embedding is
// impossible. Partial indexing (lexical-only) beats no indexing.
func (s *ReindexService) embed(ctx context.Context, key model.SourceKey, text string) []float32 {
	if text == "" || s.embedder == nil || !s.caps.EmbeddingEnabled() || !s.caps.VectorEnabled() {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text, ai.TaskTypeDocument)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
			s.caps.DisableEmbedding(ctx, err.Error())
		}
		logutil.GetLogger(ctx).Warn("embedding failed, indexing lexical-only",
			zap.String("source_type", string(key.SourceType)),
			zap.String("source_id", key.SourceID),
			zap.Error(err))
		return nil
	}
	return vec
}

type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// ReindexBatch processes keys sequentially with an enforced minimum
// inter-item delay. Per-item failures are isolated and logged; the batch
// always runs to completion unless the context is canceled.
func (s *ReindexService) ReindexBatch(ctx context.Context, keys []model.SourceKey, reason Reason) BatchResult {
	var result BatchResult
	limiter := rate.NewLimiter(rate.Every(s.batchDelay), 1)
	logger := logutil.GetLogger(ctx)
	for _, key := range keys {
		if err := limiter.Wait(ctx); err != nil {
			result.Failed += len(keys) - result.Processed - result.Failed
			return result
		}
		if err := s.Process(ctx, key, reason); err != nil {
			result.Failed++
			logger.Error("batch reindex item failed",
				zap.String("source_type", string(key.SourceType)),
				zap.String("source_id", key.SourceID),
				zap.Error(err))
			continue
		}
		result.Processed++
	}
	return result
}

// ReindexAll rebuilds every document of one source type, e.g. after an
// embedding model change.
func (s *ReindexService) ReindexAll(ctx context.Context, sourceType model.SourceType) (BatchResult, error) {
	projector, err := s.projectors.Get(sourceType)
	if err != nil {
		return BatchResult{}, err
	}
	ids, err := projector.ListIDs(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list %s ids: %w", sourceType, err)
	}
	keys := make([]model.SourceKey, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, model.SourceKey{SourceType: sourceType, SourceID: id})
	}
	return s.ReindexBatch(ctx, keys, ReasonUpdate), nil
}

// SweepMissingEmbeddings re-embeds documents indexed lexical-only, picking
// up after transient provider outages. No-op while degraded.
func (s *ReindexService) SweepMissingEmbeddings(ctx context.Context, limit int) (BatchResult, error) {
	if !s.caps.EmbeddingEnabled() || !s.caps.VectorEnabled() {
		return BatchResult{}, nil
	}
	keys, err := s.store.ListMissingEmbedding(ctx, limit)
	if err != nil {
		return BatchResult{}, err
	}
	if len(keys) == 0 {
		return BatchResult{}, nil
	}
	return s.ReindexBatch(ctx, keys, ReasonUpdate), nil
}
