package cluster

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

type summaryCompleter struct{ calls int }

func (s *summaryCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	return "- refund complaints pile up\n- delivery keeps slipping", nil
}

func negativeItems(topic domain.Topic, n int) []domain.ClassifiedItem {
	items := make([]domain.ClassifiedItem, n)
	for i := range items {
		items[i] = domain.ClassifiedItem{
			ItemID:    fmt.Sprintf("letter:%s:%d", topic, i),
			RawText:   "this keeps going wrong",
			Topic:     topic,
			Sentiment: domain.SentimentNegative,
		}
	}
	return items
}

func TestNotablePatternsThreshold(t *testing.T) {
	llm := &summaryCompleter{}
	c := &Clusterer{LLM: llm}

	// 5 negatives in content_reaction crosses the threshold; 4 in
	// investment_talk does not.
	items := append(negativeItems(domain.TopicContentReaction, 5),
		negativeItems(domain.TopicInvestmentTalk, 4)...)
	items = append(items, domain.ClassifiedItem{
		ItemID: "letter:pos", Topic: domain.TopicContentReaction, Sentiment: domain.SentimentPositive,
	})

	patterns := c.NotablePatterns(context.Background(), items)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, want 1", len(patterns))
	}
	p := patterns[0]
	if p.Topic != domain.TopicContentReaction {
		t.Errorf("topic = %s", p.Topic)
	}
	if p.NegativeCount != 5 || p.TotalInTopic != 6 {
		t.Errorf("counts = %d/%d, want 5/6", p.NegativeCount, p.TotalInTopic)
	}
	if !strings.HasPrefix(p.Summary, "- ") {
		t.Errorf("summary = %q", p.Summary)
	}
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want one per flagged topic", llm.calls)
	}
}

func TestNotablePatternsSkipsServiceIssue(t *testing.T) {
	llm := &summaryCompleter{}
	c := &Clusterer{LLM: llm}
	patterns := c.NotablePatterns(context.Background(), negativeItems(domain.TopicServiceIssue, 20))
	if len(patterns) != 0 {
		t.Fatalf("service_issue produced %d patterns, want 0", len(patterns))
	}
	if llm.calls != 0 {
		t.Errorf("llm calls = %d, want 0", llm.calls)
	}
}
