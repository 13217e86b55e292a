package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	dim   int
	fail  bool
	calls int
}

func (s *stubProvider) Name() string   { return s.name }
func (s *stubProvider) Dimension() int { return s.dim }

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.fail {
		return nil, &Error{Provider: s.name, Err: errors.New("backend down")}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dim)
		vec[0] = float32(i + 1)
		out[i] = vec
	}
	return out, nil
}

func (s *stubProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func TestNewChainRequiresProviders(t *testing.T) {
	_, err := NewChain(nil)
	assert.Error(t, err)
}

func TestNewChainRejectsDimensionMismatch(t *testing.T) {
	_, err := NewChain([]Provider{
		&stubProvider{name: "a", dim: 384},
		&stubProvider{name: "b", dim: 1536},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestChainFirstProviderWins(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 4}
	secondary := &stubProvider{name: "secondary", dim: 4}
	chain, err := NewChain([]Provider{primary, secondary})
	require.NoError(t, err)

	vecs, err := chain.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestChainFallsBackOnFailure(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 4, fail: true}
	secondary := &stubProvider{name: "secondary", dim: 4}
	chain, err := NewChain([]Provider{primary, secondary})
	require.NoError(t, err)

	vecs, err := chain.Embed(context.Background(), []string{"one"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestChainReturnsLastErrorWhenAllFail(t *testing.T) {
	chain, err := NewChain([]Provider{
		&stubProvider{name: "primary", dim: 4, fail: true},
		&stubProvider{name: "secondary", dim: 4, fail: true},
	})
	require.NoError(t, err)

	_, err = chain.Embed(context.Background(), []string{"one"})
	require.Error(t, err)

	var embedErr *Error
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, "secondary", embedErr.Provider)
}

func TestChainEmbedQueryFallsBack(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 4, fail: true}
	secondary := &stubProvider{name: "secondary", dim: 4}
	chain, err := NewChain([]Provider{primary, secondary})
	require.NoError(t, err)

	vec, err := chain.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}
