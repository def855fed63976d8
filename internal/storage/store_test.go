package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, "2026-08-24")
}

func classifiedFixture(id string) domain.ClassifiedItem {
	return domain.ClassifiedItem{
		ItemID:              id,
		SourceType:          domain.SourceLetter,
		RawText:             "the lecture videos will not load since the update",
		Topic:               domain.TopicServiceIssue,
		TopicConfidence:     0.91,
		Sentiment:           domain.SentimentNegative,
		SentimentConfidence: 0.88,
	}
}

func TestPutOrMergeInsertAndGet(t *testing.T) {
	s := testStore(t)
	want := classifiedFixture("letter:1")
	if err := s.PutOrMerge(want); err != nil {
		t.Fatalf("PutOrMerge: %v", err)
	}

	got, ok, err := s.Get("letter:1")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v", ok, err)
	}
	if got.Topic != want.Topic || got.Sentiment != want.Sentiment {
		t.Errorf("got topic=%s sentiment=%s, want %s/%s", got.Topic, got.Sentiment, want.Topic, want.Sentiment)
	}
	if got.TopicConfidence != 0.91 {
		t.Errorf("topic confidence = %f, want 0.91", got.TopicConfidence)
	}
	if got.Tagged() {
		t.Error("fresh item must not be tagged")
	}
}

func TestGetAbsent(t *testing.T) {
	s := testStore(t)
	_, ok, err := s.Get("letter:missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get on absent item returned ok=true")
	}
}

func TestPutOrMergeFillsDetailTags(t *testing.T) {
	s := testStore(t)
	if err := s.PutOrMerge(classifiedFixture("letter:1")); err != nil {
		t.Fatal(err)
	}

	detail := &domain.DetailTags{
		CategoryTags: []string{"content_access_problem"},
		FreeTags:     []string{"lecture video loading failure"},
		Summary:      "lectures stopped loading after the app update",
	}
	err := s.PutOrMerge(domain.ClassifiedItem{
		ItemID:           "letter:1",
		DetailTags:       detail,
		DetailConfidence: 1.0,
	})
	if err != nil {
		t.Fatalf("merge detail: %v", err)
	}

	got, _, err := s.Get("letter:1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Tagged() {
		t.Fatal("item should be tagged after merge")
	}
	if got.DetailTags.CategoryTags[0] != "content_access_problem" {
		t.Errorf("category tags = %v", got.DetailTags.CategoryTags)
	}
	// Topic-axis fields must survive the detail merge untouched.
	if got.Topic != domain.TopicServiceIssue || got.TopicConfidence != 0.91 {
		t.Errorf("topic layer mutated: %s/%f", got.Topic, got.TopicConfidence)
	}
}

func TestPutOrMergeConflictOnDivergingTopic(t *testing.T) {
	s := testStore(t)
	if err := s.PutOrMerge(classifiedFixture("letter:1")); err != nil {
		t.Fatal(err)
	}

	diverging := classifiedFixture("letter:1")
	diverging.Topic = domain.TopicCommunityChat
	err := s.PutOrMerge(diverging)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPutOrMergeConflictOnDetailOverwrite(t *testing.T) {
	s := testStore(t)
	item := classifiedFixture("letter:1")
	item.DetailTags = &domain.DetailTags{CategoryTags: []string{"app_feature_bug"}}
	if err := s.PutOrMerge(item); err != nil {
		t.Fatal(err)
	}

	err := s.PutOrMerge(domain.ClassifiedItem{
		ItemID:     "letter:1",
		DetailTags: &domain.DetailTags{CategoryTags: []string{"delivery_schedule"}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPutOrMergeIdenticalReplayIsNoop(t *testing.T) {
	s := testStore(t)
	item := classifiedFixture("letter:1")
	if err := s.PutOrMerge(item); err != nil {
		t.Fatal(err)
	}
	// Replaying the same labels must not conflict.
	if err := s.PutOrMerge(item); err != nil {
		t.Fatalf("identical replay: %v", err)
	}
}

func TestItemsOrderedAndScoped(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"post:9", "letter:2", "letter:1"} {
		item := classifiedFixture(id)
		if err := s.PutOrMerge(item); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ItemID >= items[i].ItemID {
			t.Fatalf("items not ordered: %s before %s", items[i-1].ItemID, items[i].ItemID)
		}
	}

	// Another period must see nothing.
	other := NewStore(s.db, "2026-08-31")
	items, err = other.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("other period sees %d items, want 0", len(items))
	}
}

func TestItemsByTopic(t *testing.T) {
	s := testStore(t)
	service := classifiedFixture("letter:1")
	chat := classifiedFixture("letter:2")
	chat.Topic = domain.TopicCommunityChat
	for _, item := range []domain.ClassifiedItem{service, chat} {
		if err := s.PutOrMerge(item); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.ItemsByTopic(domain.TopicServiceIssue)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ItemID != "letter:1" {
		t.Fatalf("ItemsByTopic = %v", items)
	}
}

func TestQualityEvents(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 3; i++ {
		if err := s.AddQualityEvent("letter:1", QualityOffListTag, "refund"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddQualityEvent("letter:2", QualityParseFailure, ""); err != nil {
		t.Fatal(err)
	}

	count, err := s.CountQualityEvents(QualityOffListTag)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("off_list_tag count = %d, want 3", count)
	}
	count, err = s.CountQualityEvents(QualityParseFailure)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("parse_failure count = %d, want 1", count)
	}
}

func TestInsertReviewRecordsNeverClobbers(t *testing.T) {
	s := testStore(t)
	records := []domain.ReviewRecord{{
		ItemID:           "letter:1",
		Text:             "refund please",
		AutoTopic:        domain.TopicServiceIssue,
		AutoSentiment:    domain.SentimentNegative,
		AutoCategoryTags: []string{"payment_refund_subscription"},
		SelectionReason:  domain.SelectionLowConfidence,
	}}
	n, err := s.InsertReviewRecords(records)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("inserted %d, want 1", n)
	}

	// The reviewer corrects the record; a rerun of the export must not undo it.
	corrected := records[0]
	corrected.ReviewTopic = domain.TopicInvestmentTalk
	corrected.ReviewSentiment = domain.SentimentNeutral
	corrected.TagsReviewed = true
	if err := s.ApplyReview(corrected); err != nil {
		t.Fatal(err)
	}

	n, err = s.InsertReviewRecords(records)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rerun inserted %d, want 0", n)
	}

	stored, err := s.ReviewRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d records, want 1", len(stored))
	}
	got := stored[0]
	if got.ReviewTopic != domain.TopicInvestmentTalk {
		t.Errorf("review_topic = %s, want investment_talk", got.ReviewTopic)
	}
	if !got.TagsReviewed {
		t.Error("tags_reviewed lost on rerun")
	}
	if got.AutoCategoryTags[0] != "payment_refund_subscription" {
		t.Errorf("auto tags = %v", got.AutoCategoryTags)
	}
	if got.ReviewedAt.IsZero() {
		t.Error("reviewed_at not set")
	}
}

func TestApplyReviewUnknownItem(t *testing.T) {
	s := testStore(t)
	err := s.ApplyReview(domain.ReviewRecord{
		ItemID:      "letter:typo",
		ReviewTopic: domain.TopicServiceIssue,
	})
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
}

func TestJoinSplitTags(t *testing.T) {
	tags := []string{"app_feature_bug", "delivery_schedule"}
	joined := JoinTags(tags)
	if joined != "app_feature_bug|delivery_schedule" {
		t.Fatalf("JoinTags = %q", joined)
	}
	back := SplitTags(joined)
	if len(back) != 2 || back[0] != tags[0] || back[1] != tags[1] {
		t.Fatalf("SplitTags = %v", back)
	}
	if SplitTags("") != nil {
		t.Error("SplitTags(\"\") should be nil")
	}
}
