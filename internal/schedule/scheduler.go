package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named periodic maintenance task. Spec is a standard five-field
// cron expression; a run that overlaps the previous one is skipped.
type Job interface {
	Name() string
	Spec() string
	Run(ctx context.Context) error
}

// RunInfo is the outcome of a job's most recent run, surfaced on the admin
// API so operators can tell whether background maintenance (embedding sweep,
// cache cleanup) is actually happening.
type RunInfo struct {
	LastStarted  int64  `json:"last_started"`
	LastDuration string `json:"last_duration"`
	LastError    string `json:"last_error,omitempty"`
	Runs         int64  `json:"runs"`
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu     sync.Mutex
	status map[string]RunInfo
}

func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		status: make(map[string]RunInfo),
	}
}

func (s *Scheduler) Register(job Job) error {
	logger := logutil.GetLogger(context.Background()).With(
		zap.String("job", job.Name()),
		zap.String("spec", job.Spec()),
	)
	if _, err := s.cron.AddFunc(job.Spec(), s.wrap(job)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Status reports the last run outcome per registered job. Jobs that have not
// fired yet are absent.
func (s *Scheduler) Status() map[string]RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]RunInfo, len(s.status))
	for name, info := range s.status {
		out[name] = info
	}
	return out
}

func (s *Scheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).Info("job skipped: still running",
				zap.String("job", job.Name()))
			return
		}
		defer running.Store(false)

		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		s.record(job.Name(), start, elapsed, err)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}

func (s *Scheduler) record(name string, start time.Time, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.status[name]
	info.LastStarted = start.Unix()
	info.LastDuration = elapsed.String()
	info.LastError = ""
	if err != nil {
		info.LastError = err.Error()
	}
	info.Runs++
	s.status[name] = info
}
