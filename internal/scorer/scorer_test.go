package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenOverlapScoreExactMatch(t *testing.T) {
	score := tokenOverlapScore("the quick brown fox", "the quick brown fox")
	assert.Equal(t, 1.0, score)
}

func TestTokenOverlapScoreSubstringMatch(t *testing.T) {
	score := tokenOverlapScore("the quick brown fox", "the quick brown fox jumps")
	assert.Equal(t, 0.8, score)
}

func TestTokenOverlapScorePartialMatch(t *testing.T) {
	score := tokenOverlapScore("the quick brown fox", "the slow brown cat")
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestTokenOverlapScoreEmptyExpected(t *testing.T) {
	assert.Equal(t, 0.0, tokenOverlapScore("", "anything"))
}

type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vectors[text], nil
}

func TestScoreFallsBackToTokenOverlapWhenNoEmbedder(t *testing.T) {
	score, meta := Score(context.Background(), false, nil, "the quick brown fox", "the quick brown fox")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "token_overlap", meta.Scorer)
}

func TestScoreUsesEmbeddingTierWhenAvailable(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float64{
		"a": {1, 0},
		"b": {1, 0},
	}}
	score, meta := Score(context.Background(), false, e, "a", "b")
	assert.Equal(t, "embedding", meta.Scorer)
	assert.InDelta(t, 1.0, score, 1e-6)
}
