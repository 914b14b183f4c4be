package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zer0-A1/emineon-search/internal/ai"
	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/repo"
)

type searchStore interface {
	SearchVector(ctx context.Context, vec []float32, types []model.SourceType, limit int) ([]repo.SearchHit, error)
	SearchLexical(ctx context.Context, query string, types []model.SourceType, limit int) ([]repo.SearchHit, error)
}

type queryEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type SearchServiceConfig struct {
	DefaultLimit    int
	OverFetchFactor int
	Weights         Weights
}

type SearchRequest struct {
	Query   string
	Limit   int
	Weights *Weights
	Types   []model.SourceType
}

// SearchService answers free-text queries by fusing vector similarity and
// lexical rank. It is read-only over the document store and degrades to
// pure lexical search whenever the vector side is unusable.
type SearchService struct {
	store    searchStore
	embedder queryEmbedder
	caps     *capability.State
	cfg      SearchServiceConfig
}

func NewSearchService(store searchStore, embedder queryEmbedder, caps *capability.State, cfg SearchServiceConfig) *SearchService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.OverFetchFactor <= 0 {
		cfg.OverFetchFactor = 3
	}
	if cfg.Weights.Vector == 0 && cfg.Weights.Lexical == 0 {
		cfg.Weights = DefaultWeights()
	}
	return &SearchService{store: store, embedder: embedder, caps: caps, cfg: cfg}
}

func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]repo.SearchHit, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []repo.SearchHit{}, nil
	}
	if req.Limit < 0 {
		return nil, apperrors.ErrInvalidQuery
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	weights := s.cfg.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	// Both sub-queries over-fetch so the union fed to fusion has enough
	// candidates from each side.
	fetchN := limit * s.cfg.OverFetchFactor

	var vecHits, lexHits []repo.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecHits = s.vectorHits(gctx, query, req.Types, fetchN)
		return nil
	})
	g.Go(func() error {
		lexHits = s.lexicalHits(gctx, query, req.Types, fetchN)
		return nil
	})
	_ = g.Wait()

	fused := FuseScores(vecHits, lexHits, weights)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// vectorHits runs the semantic branch. Any failure here degrades the query
// to lexical-only ranking instead of surfacing an error.
func (s *SearchService) vectorHits(ctx context.Context, query string, types []model.SourceType, limit int) []repo.SearchHit {
	if s.embedder == nil || !s.caps.EmbeddingEnabled() || !s.caps.VectorEnabled() {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	vec, err := s.embedder.Embed(ctx, query, ai.TaskTypeQuery)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
			s.caps.DisableEmbedding(ctx, err.Error())
		}
		logger.Warn("query embedding failed, falling back to lexical ranking", zap.Error(err))
		return nil
	}
	hits, err := s.store.SearchVector(ctx, vec, types, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrStorageUnavailable) {
			s.caps.DisableVector(ctx, err.Error())
		}
		logger.Warn("vector search failed, falling back to lexical ranking", zap.Error(err))
		return nil
	}
	return hits
}

func (s *SearchService) lexicalHits(ctx context.Context, query string, types []model.SourceType, limit int) []repo.SearchHit {
	cleaned := sanitizeLexicalQuery(query)
	if cleaned == "" {
		return nil
	}
	hits, err := s.store.SearchLexical(ctx, cleaned, types, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("lexical search failed", zap.Error(err))
		return nil
	}
	return hits
}

// sanitizeLexicalQuery strips everything the text-search parser could choke
// on and collapses whitespace.
func sanitizeLexicalQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var sb strings.Builder
	for _, r := range input {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
