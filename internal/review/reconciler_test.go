package review

import (
	"math"
	"testing"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

func TestReconcilePerLayerDenominators(t *testing.T) {
	records := []domain.ReviewRecord{
		// Reviewed on both single-label layers, topic corrected.
		{
			AutoTopic: domain.TopicServiceIssue, ReviewTopic: domain.TopicInvestmentTalk,
			AutoSentiment: domain.SentimentNegative, ReviewSentiment: domain.SentimentNegative,
		},
		// Reviewed and confirmed.
		{
			AutoTopic: domain.TopicCommunityChat, ReviewTopic: domain.TopicCommunityChat,
			AutoSentiment: domain.SentimentPositive, ReviewSentiment: domain.SentimentPositive,
		},
		// Only sentiment reviewed: excluded from the topic denominator.
		{
			AutoTopic:     domain.TopicCommunityChat,
			AutoSentiment: domain.SentimentNeutral, ReviewSentiment: domain.SentimentPositive,
		},
		// Untouched by the reviewer: excluded everywhere.
		{AutoTopic: domain.TopicServiceIssue, AutoSentiment: domain.SentimentNegative},
	}

	report := Reconcile("2026-08-24", records)

	if report.Topic.Reviewed != 2 || report.Topic.Matches != 1 {
		t.Errorf("topic layer = %d/%d, want 1/2", report.Topic.Matches, report.Topic.Reviewed)
	}
	if report.Topic.Accuracy != 0.5 {
		t.Errorf("topic accuracy = %f, want 0.5", report.Topic.Accuracy)
	}
	if report.Sentiment.Reviewed != 3 || report.Sentiment.Matches != 2 {
		t.Errorf("sentiment layer = %d/%d, want 2/3", report.Sentiment.Matches, report.Sentiment.Reviewed)
	}
	if got := report.Topic.Confusion["service_issue"]["investment_talk"]; got != 1 {
		t.Errorf("confusion[service_issue][investment_talk] = %d, want 1", got)
	}
	if got := report.Topic.Confusion["community_chat"]["community_chat"]; got != 1 {
		t.Errorf("confusion diagonal = %d, want 1", got)
	}
}

func TestReconcileTagLayer(t *testing.T) {
	records := []domain.ReviewRecord{
		// Exact set match, order irrelevant.
		{
			AutoCategoryTags:   []string{"app_feature_bug", "delivery_schedule"},
			ReviewCategoryTags: []string{"delivery_schedule", "app_feature_bug"},
			TagsReviewed:       true,
		},
		// Partial overlap: strict mismatch, Jaccard 1/3.
		{
			AutoCategoryTags:   []string{"app_feature_bug", "delivery_schedule"},
			ReviewCategoryTags: []string{"app_feature_bug", "pricing_promotion_policy"},
			TagsReviewed:       true,
		},
		// Reviewer cleared all tags: reviewed-as-empty still counts.
		{
			AutoCategoryTags: []string{"app_feature_bug"},
			TagsReviewed:     true,
		},
		// Tags never reviewed: excluded entirely.
		{AutoCategoryTags: []string{"delivery_schedule"}},
	}

	report := Reconcile("2026-08-24", records)
	tag := report.CategoryTag

	if tag.Reviewed != 3 {
		t.Fatalf("tag reviewed = %d, want 3", tag.Reviewed)
	}
	if tag.Matches != 1 {
		t.Errorf("tag matches = %d, want 1", tag.Matches)
	}
	wantJaccard := (1.0 + 1.0/3.0 + 0.0) / 3.0
	if math.Abs(tag.MeanJaccard-wantJaccard) > 1e-9 {
		t.Errorf("mean jaccard = %f, want %f", tag.MeanJaccard, wantJaccard)
	}

	// Disagreements pair machine-only tags against reviewer-only tags.
	if got := tag.Confusion["delivery_schedule"]["pricing_promotion_policy"]; got != 1 {
		t.Errorf("tag confusion cross = %d, want 1", got)
	}
	// Cleared tags pair against the empty label.
	if got := tag.Confusion["app_feature_bug"][""]; got != 1 {
		t.Errorf("tag confusion to empty = %d, want 1", got)
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	report := Reconcile("2026-08-24", nil)
	if report.Topic.Reviewed != 0 || report.Topic.Accuracy != 0 {
		t.Errorf("empty report topic = %+v", report.Topic)
	}
	if report.CategoryTag.MeanJaccard != 0 {
		t.Errorf("empty report jaccard = %f", report.CategoryTag.MeanJaccard)
	}
	if report.Period != "2026-08-24" {
		t.Errorf("period = %s", report.Period)
	}
}

func TestReconcileDeterministic(t *testing.T) {
	records := []domain.ReviewRecord{
		{
			AutoTopic: domain.TopicServiceIssue, ReviewTopic: domain.TopicServiceIssue,
			AutoCategoryTags:   []string{"app_feature_bug", "delivery_schedule"},
			ReviewCategoryTags: []string{"onboarding_accessibility"},
			TagsReviewed:       true,
		},
	}
	a := Reconcile("2026-08-24", records)
	b := Reconcile("2026-08-24", records)
	if a.CategoryTag.Confusion["app_feature_bug"]["onboarding_accessibility"] !=
		b.CategoryTag.Confusion["app_feature_bug"]["onboarding_accessibility"] {
		t.Fatal("reconcile is not deterministic")
	}
}
