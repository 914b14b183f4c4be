package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
)

type scriptedEmbedder struct {
	calls int
	fn    func(call int) ([]float32, error)
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	return s.fn(s.calls)
}

func (s *scriptedEmbedder) ModelName() string { return "scripted" }

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "abc", Truncate("abcdef", 3))
	require.Equal(t, "héll", Truncate("héllo", 4))
	require.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestClientRetriesTransient(t *testing.T) {
	emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
		if call < 3 {
			return nil, &StatusError{Code: 429}
		}
		return []float32{1, 2, 3}, nil
	}}
	client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 5, BaseDelay: time.Millisecond})
	vec, err := client.Embed(context.Background(), "hello", TaskTypeQuery)
	require.NoError(t, err)
	require.Len(t, vec, 3)
	require.Equal(t, 3, emb.calls)
}

func TestClientDoesNotRetryStructural(t *testing.T) {
	emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
		return nil, &StatusError{Code: 401}
	}}
	client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 5, BaseDelay: time.Millisecond})
	_, err := client.Embed(context.Background(), "hello", TaskTypeQuery)
	require.Error(t, err)
	require.Equal(t, 1, emb.calls)
}

func TestClientMapsCredentialRejectionToUnavailable(t *testing.T) {
	for _, code := range []int{401, 403} {
		emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
			return nil, &StatusError{Code: code}
		}}
		client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 5, BaseDelay: time.Millisecond})
		_, err := client.Embed(context.Background(), "hello", TaskTypeQuery)
		require.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable, "status %d", code)
		require.Equal(t, 1, emb.calls)
	}

	// A 400 on one input is not a credential problem and must not look
	// structural to callers.
	emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
		return nil, &StatusError{Code: 400}
	}}
	client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 5, BaseDelay: time.Millisecond})
	_, err := client.Embed(context.Background(), "hello", TaskTypeQuery)
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
}

func TestClientMapsUnavailable(t *testing.T) {
	emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
		return nil, ErrUnavailable
	}}
	client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 5, BaseDelay: time.Millisecond})
	_, err := client.Embed(context.Background(), "hello", TaskTypeQuery)
	require.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
	require.Equal(t, 1, emb.calls)
}

func TestClientRejectsDimensionMismatch(t *testing.T) {
	emb := &scriptedEmbedder{fn: func(call int) ([]float32, error) {
		return []float32{1, 2}, nil
	}}
	client := NewClient(emb, ClientConfig{Dimension: 3, MaxAttempts: 1})
	_, err := client.Embed(context.Background(), "hello", TaskTypeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension mismatch")
}

func TestIsTransientClassification(t *testing.T) {
	require.True(t, IsTransient(&StatusError{Code: 429}))
	require.True(t, IsTransient(&StatusError{Code: 500}))
	require.True(t, IsTransient(&StatusError{Code: 503}))
	require.True(t, IsTransient(context.DeadlineExceeded))
	require.False(t, IsTransient(&StatusError{Code: 400}))
	require.False(t, IsTransient(&StatusError{Code: 401}))
	require.False(t, IsTransient(ErrUnavailable))
	require.False(t, IsTransient(nil))
}
