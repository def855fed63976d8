package confidence

import (
	"context"
	"fmt"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/llm"
	"github.com/gayunlee/letter-post-weekly-report/internal/tags"
)

// Policy names the detail-tag confidence estimation strategy. The detail
// layer has no native posterior, so its score comes from a selectable policy;
// which one ran decides whether detail-tag items can ever land in the
// low-confidence exhaustive review bucket.
type Policy string

const (
	// PolicyConstant assigns a fixed placeholder confidence. Explicitly
	// low-fidelity: with the default value of 1.0 the detail layer alone
	// never pulls an item into exhaustive review.
	PolicyConstant Policy = "constant"
	// PolicyVerifier re-extracts tags a second time and scores confidence by
	// label agreement between the two passes.
	PolicyVerifier Policy = "verifier"
)

// LayerConfidence carries one representative value per layer for sampling.
type LayerConfidence struct {
	Topic        float64
	Sentiment    float64
	Detail       float64
	DetailPolicy Policy
}

// DetailPolicy scores the detail-tag layer for one item.
type DetailPolicy interface {
	Name() Policy
	Score(ctx context.Context, item domain.ClassifiedItem) (float64, error)
}

// ConstantPolicy returns a fixed value for every item.
type ConstantPolicy struct {
	Value float64
}

func (ConstantPolicy) Name() Policy { return PolicyConstant }

func (p ConstantPolicy) Score(context.Context, domain.ClassifiedItem) (float64, error) {
	return p.Value, nil
}

// VerifierPolicy runs a second tag extraction over the same text and scores
// confidence as the Jaccard agreement between the stored and verifier
// category tag sets. Full disagreement scores 0; identical sets score 1.
type VerifierPolicy struct {
	LLM llm.Completer
}

func (VerifierPolicy) Name() Policy { return PolicyVerifier }

func (p VerifierPolicy) Score(ctx context.Context, item domain.ClassifiedItem) (float64, error) {
	if item.DetailTags == nil {
		return 0, fmt.Errorf("item %s has no detail_tags to verify", item.ItemID)
	}
	raw, err := p.LLM.Complete(ctx, tags.VerifierSystemPrompt(item.Topic), tags.VerifierUserPrompt(item))
	if err != nil {
		return 0, fmt.Errorf("verifier pass for %s: %w", item.ItemID, err)
	}
	verified, _, err := tags.ParseResponse(raw, item.Topic)
	if err != nil {
		return 0, fmt.Errorf("verifier parse for %s: %w", item.ItemID, err)
	}
	return Jaccard(item.DetailTags.CategoryTags, verified.CategoryTags), nil
}

// Jaccard returns |a∩b| / |a∪b| over two tag sets; two empty sets agree fully.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// Aggregator combines the per-layer confidence signals for sampling.
// Topic and sentiment use their native model posteriors directly.
type Aggregator struct {
	Detail DetailPolicy
}

func (a *Aggregator) Confidences(ctx context.Context, item domain.ClassifiedItem) (LayerConfidence, error) {
	lc := LayerConfidence{
		Topic:        item.TopicConfidence,
		Sentiment:    item.SentimentConfidence,
		DetailPolicy: a.Detail.Name(),
	}
	if item.DetailTags == nil {
		// Not yet tagged; the detail layer cannot be scored.
		lc.Detail = 0
		return lc, nil
	}
	score, err := a.Detail.Score(ctx, item)
	if err != nil {
		return lc, err
	}
	lc.Detail = score
	return lc, nil
}
