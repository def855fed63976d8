package confidence

import (
	"context"
	"math"
	"testing"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

func TestJaccard(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 1},
		{"identical", []string{"x", "y"}, []string{"y", "x"}, 1},
		{"disjoint", []string{"x"}, []string{"y"}, 0},
		{"partial", []string{"x", "y"}, []string{"y", "z"}, 1.0 / 3.0},
		{"one empty", []string{"x"}, nil, 0},
		{"duplicates collapse", []string{"x", "x"}, []string{"x"}, 1},
	}
	for _, c := range cases {
		if got := Jaccard(c.a, c.b); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%s: Jaccard(%v, %v) = %f, want %f", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestConstantPolicy(t *testing.T) {
	p := ConstantPolicy{Value: 1.0}
	if p.Name() != PolicyConstant {
		t.Errorf("Name = %s", p.Name())
	}
	score, err := p.Score(context.Background(), domain.ClassifiedItem{})
	if err != nil {
		t.Fatal(err)
	}
	if score != 1.0 {
		t.Errorf("score = %f, want 1.0", score)
	}
}

type staticCompleter struct {
	response string
}

func (s staticCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return s.response, nil
}

func taggedItem(tags ...string) domain.ClassifiedItem {
	return domain.ClassifiedItem{
		ItemID:              "letter:1",
		RawText:             "the app keeps crashing on the portfolio screen",
		Topic:               domain.TopicServiceIssue,
		TopicConfidence:     0.9,
		Sentiment:           domain.SentimentNegative,
		SentimentConfidence: 0.8,
		DetailTags:          &domain.DetailTags{CategoryTags: tags, FreeTags: []string{}},
	}
}

func TestVerifierPolicyAgreement(t *testing.T) {
	p := VerifierPolicy{LLM: staticCompleter{
		response: `{"category_tags": ["app_feature_bug"], "free_tags": [], "summary": "s"}`,
	}}
	score, err := p.Score(context.Background(), taggedItem("app_feature_bug"))
	if err != nil {
		t.Fatal(err)
	}
	if score != 1.0 {
		t.Errorf("agreement score = %f, want 1.0", score)
	}
}

func TestVerifierPolicyDisagreement(t *testing.T) {
	p := VerifierPolicy{LLM: staticCompleter{
		response: `{"category_tags": ["delivery_schedule"], "free_tags": [], "summary": "s"}`,
	}}
	score, err := p.Score(context.Background(), taggedItem("app_feature_bug"))
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Errorf("disagreement score = %f, want 0", score)
	}
}

func TestVerifierPolicyRequiresTags(t *testing.T) {
	p := VerifierPolicy{LLM: staticCompleter{response: "{}"}}
	if _, err := p.Score(context.Background(), domain.ClassifiedItem{ItemID: "letter:1"}); err == nil {
		t.Fatal("expected error for untagged item")
	}
}

func TestAggregatorPassesThroughPosteriors(t *testing.T) {
	a := &Aggregator{Detail: ConstantPolicy{Value: 1.0}}
	lc, err := a.Confidences(context.Background(), taggedItem("app_feature_bug"))
	if err != nil {
		t.Fatal(err)
	}
	if lc.Topic != 0.9 || lc.Sentiment != 0.8 {
		t.Errorf("posteriors = %f/%f, want 0.9/0.8", lc.Topic, lc.Sentiment)
	}
	if lc.Detail != 1.0 || lc.DetailPolicy != PolicyConstant {
		t.Errorf("detail = %f policy=%s", lc.Detail, lc.DetailPolicy)
	}
}

func TestAggregatorUntaggedItem(t *testing.T) {
	a := &Aggregator{Detail: ConstantPolicy{Value: 1.0}}
	item := taggedItem()
	item.DetailTags = nil
	lc, err := a.Confidences(context.Background(), item)
	if err != nil {
		t.Fatal(err)
	}
	if lc.Detail != 0 {
		t.Errorf("untagged detail score = %f, want 0", lc.Detail)
	}
}
