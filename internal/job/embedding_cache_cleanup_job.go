package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zer0-A1/emineon-search/internal/repo"
)

type EmbeddingCacheCleanupJob struct {
	cache    *repo.EmbeddingCacheRepo
	keepDays int
	spec     string
}

func NewEmbeddingCacheCleanupJob(cache *repo.EmbeddingCacheRepo, keepDays int, spec string) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{cache: cache, keepDays: keepDays, spec: spec}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Spec() string {
	return j.spec
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil || j.keepDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -j.keepDays).Unix()
	deleted, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("embedding cache pruned", zap.Int64("deleted", deleted))
	}
	return nil
}
