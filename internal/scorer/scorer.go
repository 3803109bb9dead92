// Package scorer implements the three-tier faithfulness scorer: an
// optional judge tier (disabled by default), an embedding-similarity
// tier, and an always-available token-overlap fallback, grounded on
// trustbench_core/agents/task_fidelity.py and embedding_scorer.py.
package scorer

import (
	"context"
	"strings"
)

// Meta describes which tier actually produced a score, matching the
// {scorer, embedding_model, reason} dict the original
// score_with_embeddings() returns.
type Meta struct {
	Scorer string
	Reason string
}

// Score compares a candidate answer against an expected answer,
// returning a [0,1] faithfulness score and which tier produced it.
// useJudge gates the first (normally disabled) tier; embedder may be
// nil, in which case the embedding tier is skipped and token overlap is
// used directly.
func Score(ctx context.Context, useJudge bool, embedder Embedder, expected, candidate string) (float64, Meta) {
	if useJudge {
		if score, ok := judgeScore(ctx, expected, candidate); ok {
			return score, Meta{Scorer: "judge", Reason: "judge_scored"}
		}
	}

	if embedder != nil {
		if score, ok := embeddingScore(ctx, embedder, expected, candidate); ok {
			return score, Meta{Scorer: "embedding", Reason: "embedding_scored"}
		}
	}

	return tokenOverlapScore(expected, candidate), Meta{Scorer: "token_overlap", Reason: "embedding_unavailable"}
}

// judgeScore is the slot for the LLM-judge tier, which the original
// project's RAGAS-based judge left disabled in practice. It makes no
// judge call and always reports the tier as unavailable, so even with
// useJudge set (Profile.EnableJudgeScorer) Score falls through to the
// embedding and token-overlap tiers.
func judgeScore(ctx context.Context, expected, candidate string) (float64, bool) {
	return 0, false
}

// Embedder produces a vector embedding for a string, letting the
// embedding tier stay provider-agnostic.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

func embeddingScore(ctx context.Context, e Embedder, expected, candidate string) (float64, bool) {
	a, err := e.Embed(ctx, expected)
	if err != nil {
		return 0, false
	}
	b, err := e.Embed(ctx, candidate)
	if err != nil {
		return 0, false
	}
	sim, ok := cosineSimilarity(a, b)
	if !ok {
		return 0, false
	}
	return clamp01((sim + 1) / 2), true
}

func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (sqrt(normA) * sqrt(normB)), true
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 32; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// tokenOverlapScore is the exact fallback formula from spec.md §4.3 item
// 3: lowercase and trim both strings; an exact match scores 1.0; a
// substring match (either direction) scores 0.8; otherwise the score is
// the set-intersection token overlap ratio against truth's token count,
// clamped to [0.3, 0.9], or 0.0 if the sets don't intersect at all. This
// tier can never fail, which is why it's the terminal fallback in Score.
func tokenOverlapScore(truth, answer string) float64 {
	truth = strings.TrimSpace(strings.ToLower(truth))
	answer = strings.TrimSpace(strings.ToLower(answer))

	if truth == answer {
		return 1.0
	}
	if truth == "" || answer == "" {
		return 0.0
	}
	if strings.Contains(answer, truth) || strings.Contains(truth, answer) {
		return 0.8
	}

	truthTokens := make(map[string]bool)
	for _, tok := range strings.Fields(truth) {
		truthTokens[tok] = true
	}
	answerTokens := make(map[string]bool)
	for _, tok := range strings.Fields(answer) {
		answerTokens[tok] = true
	}

	overlap := 0
	for tok := range truthTokens {
		if answerTokens[tok] {
			overlap++
		}
	}
	if overlap == 0 || len(truthTokens) == 0 {
		return 0.0
	}
	ratio := float64(overlap) / float64(len(truthTokens))
	if ratio > 0.9 {
		return 0.9
	}
	if ratio < 0.3 {
		return 0.3
	}
	return ratio
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// No concrete Embedder ships by default: the providers this engine
// wires (OpenAI/Anthropic chat completion) aren't exercised through an
// embeddings endpoint here, so profiles that want the embedding tier
// supply their own Embedder implementation.
