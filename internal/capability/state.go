package capability

import (
	"context"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// State tracks which halves of the hybrid search stack are usable. Flags
// flip at most once per process (first structural failure wins); recovery
// needs an explicit Reset after the operator re-provisions the capability.
type State struct {
	vectorOff atomic.Bool
	embedOff  atomic.Bool
}

func NewState() *State {
	return &State{}
}

func (s *State) VectorEnabled() bool {
	return !s.vectorOff.Load()
}

func (s *State) EmbeddingEnabled() bool {
	return !s.embedOff.Load()
}

func (s *State) DisableVector(ctx context.Context, reason string) {
	if s.vectorOff.CompareAndSwap(false, true) {
		logutil.GetLogger(ctx).Warn("vector search disabled, degrading to lexical-only",
			zap.String("reason", reason))
	}
}

func (s *State) DisableEmbedding(ctx context.Context, reason string) {
	if s.embedOff.CompareAndSwap(false, true) {
		logutil.GetLogger(ctx).Warn("embedding calls disabled",
			zap.String("reason", reason))
	}
}

// Reset re-enables both capabilities. Exposed to operators; callers are
// expected to have re-provisioned the missing capability first.
func (s *State) Reset(ctx context.Context) {
	vectorWas := s.vectorOff.Swap(false)
	embedWas := s.embedOff.Swap(false)
	if vectorWas || embedWas {
		logutil.GetLogger(ctx).Info("capability flags reset",
			zap.Bool("vector_was_disabled", vectorWas),
			zap.Bool("embedding_was_disabled", embedWas))
	}
}

type Snapshot struct {
	VectorEnabled    bool `json:"vector_enabled"`
	EmbeddingEnabled bool `json:"embedding_enabled"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		VectorEnabled:    s.VectorEnabled(),
		EmbeddingEnabled: s.EmbeddingEnabled(),
	}
}
