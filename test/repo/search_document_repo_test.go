package repo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	appErr "github.com/zer0-A1/emineon-search/internal/pkg/errors"
	"github.com/zer0-A1/emineon-search/internal/repo"
	"github.com/zer0-A1/emineon-search/test/testutil"
)

func TestSearchDocumentRepoUpsertAndGet(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	caps := capability.NewState()
	docs := repo.NewSearchDocumentRepo(db, caps, 3)
	require.NoError(t, docs.Provision(context.Background()))
	ctx := context.Background()
	defer docs.Delete(ctx, model.SourceTypeCandidate, "cand-1")

	doc := &model.SearchDocument{
		SourceType: model.SourceTypeCandidate,
		SourceID:   "cand-1",
		Title:      "Jane Doe - Backend Engineer",
		Text:       "Jane Doe Backend Engineer golang postgres",
		Metadata:   map[string]interface{}{"city": "Geneva"},
	}
	require.NoError(t, docs.Upsert(ctx, doc))

	fetched, err := docs.Get(ctx, model.SourceTypeCandidate, "cand-1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe - Backend Engineer", fetched.Title)
	require.Equal(t, "Geneva", fetched.Metadata["city"])
	require.Nil(t, fetched.Embedding)

	// Second upsert for the same key must overwrite, not duplicate.
	doc.ID = ""
	doc.Title = "Jane Doe - Staff Engineer"
	require.NoError(t, docs.Upsert(ctx, doc))

	fetched, err = docs.Get(ctx, model.SourceTypeCandidate, "cand-1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe - Staff Engineer", fetched.Title)
}

func TestSearchDocumentRepoConcurrentUpsertsKeepOneRow(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	caps := capability.NewState()
	docs := repo.NewSearchDocumentRepo(db, caps, 3)
	require.NoError(t, docs.Provision(context.Background()))
	ctx := context.Background()
	defer docs.Delete(ctx, model.SourceTypeCandidate, "cand-race")

	const writers = 16
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- docs.Upsert(ctx, &model.SearchDocument{
				SourceType: model.SourceTypeCandidate,
				SourceID:   "cand-race",
				Title:      fmt.Sprintf("revision %d", n),
				Text:       "racing upserts",
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM search_documents WHERE source_type = $1 AND source_id = $2`,
		model.SourceTypeCandidate, "cand-race",
	).Scan(&count))
	require.Equal(t, 1, count)
}

func TestSearchDocumentRepoDeleteIdempotent(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	caps := capability.NewState()
	docs := repo.NewSearchDocumentRepo(db, caps, 3)
	require.NoError(t, docs.Provision(context.Background()))
	ctx := context.Background()

	require.NoError(t, docs.Upsert(ctx, &model.SearchDocument{
		SourceType: model.SourceTypeJob,
		SourceID:   "job-1",
		Title:      "Backend role",
		Text:       "golang backend",
	}))
	require.NoError(t, docs.Delete(ctx, model.SourceTypeJob, "job-1"))
	_, err := docs.Get(ctx, model.SourceTypeJob, "job-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// Deleting again (or deleting a key that never existed) is not an error.
	require.NoError(t, docs.Delete(ctx, model.SourceTypeJob, "job-1"))
	require.NoError(t, docs.Delete(ctx, model.SourceTypeJob, "job-never-existed"))
}

func TestSearchDocumentRepoLexicalSearch(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	caps := capability.NewState()
	docs := repo.NewSearchDocumentRepo(db, caps, 3)
	require.NoError(t, docs.Provision(context.Background()))
	ctx := context.Background()
	defer docs.Delete(ctx, model.SourceTypeCandidate, "cand-lex")
	defer docs.Delete(ctx, model.SourceTypeJob, "job-lex")

	require.NoError(t, docs.Upsert(ctx, &model.SearchDocument{
		SourceType: model.SourceTypeCandidate,
		SourceID:   "cand-lex",
		Title:      "Kotlin Developer",
		Text:       "kotlin android mobile",
	}))
	require.NoError(t, docs.Upsert(ctx, &model.SearchDocument{
		SourceType: model.SourceTypeJob,
		SourceID:   "job-lex",
		Title:      "Kotlin Engineer",
		Text:       "kotlin backend",
	}))

	hits, err := docs.SearchLexical(ctx, "kotlin", nil, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(hits), 2)

	hits, err = docs.SearchLexical(ctx, "kotlin", []model.SourceType{model.SourceTypeJob}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "job-lex", hits[0].SourceID)

	hits, err = docs.SearchLexical(ctx, "nosuchtermanywhere", nil, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestEmbeddingCacheRepoRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	ctx := context.Background()

	entry := &model.EmbeddingCache{
		ModelName:   "test-model",
		TaskType:    "RETRIEVAL_QUERY",
		ContentHash: "hash-abc",
		Embedding:   []float32{0.1, 0.2, 0.3},
		Ctime:       time.Now().Unix(),
	}
	require.NoError(t, cache.Save(ctx, entry))

	emb, ok, err := cache.Get(ctx, "test-model", "RETRIEVAL_QUERY", "hash-abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, emb)

	_, ok, err = cache.Get(ctx, "test-model", "RETRIEVAL_QUERY", "hash-missing")
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := cache.DeleteBefore(ctx, entry.Ctime+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))
}
