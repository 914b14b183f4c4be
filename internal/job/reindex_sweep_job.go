package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zer0-A1/emineon-search/internal/service"
)

// ReindexSweepJob re-embeds documents that were indexed without a vector,
// e.g. because the embedding provider was down at reindex time.
type ReindexSweepJob struct {
	reindex   *service.ReindexService
	batchSize int
	spec      string
}

func NewReindexSweepJob(reindex *service.ReindexService, batchSize int, spec string) *ReindexSweepJob {
	return &ReindexSweepJob{reindex: reindex, batchSize: batchSize, spec: spec}
}

func (j *ReindexSweepJob) Name() string {
	return "reindex_sweep"
}

func (j *ReindexSweepJob) Spec() string {
	return j.spec
}

func (j *ReindexSweepJob) Run(ctx context.Context) error {
	if j.reindex == nil {
		return nil
	}
	result, err := j.reindex.SweepMissingEmbeddings(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if result.Processed > 0 || result.Failed > 0 {
		logutil.GetLogger(ctx).Info("sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed))
	}
	return nil
}
