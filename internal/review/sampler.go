package review

import (
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/gayunlee/letter-post-weekly-report/internal/confidence"
	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// SampleParams fully determine the review selection: identical (item set,
// threshold, fraction, seed) must always produce the identical sample.
type SampleParams struct {
	Threshold float64
	Fraction  float64
	Seed      int64
}

// DefaultSampleParams mirror the operating defaults: every item with any
// tracked layer under 0.7 is reviewed exhaustively, plus a 20% random slice
// of the confident rest.
var DefaultSampleParams = SampleParams{Threshold: 0.7, Fraction: 0.2, Seed: 42}

// SelectForReview partitions items by confidence and emits one ReviewRecord
// per selected item, snapshotting current machine labels. Selection is a pure
// function of its inputs; the seeded source makes the high-confidence sample
// reproducible for audits and regression tests.
//
// The detail layer is tracked only when it was scored by the verifier policy;
// the constant policy is a placeholder with no discriminating power.
func SelectForReview(items []domain.ClassifiedItem, confs map[string]confidence.LayerConfidence, p SampleParams) []domain.ReviewRecord {
	sorted := make([]domain.ClassifiedItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	var low, high []domain.ClassifiedItem
	for _, item := range sorted {
		lc, ok := confs[item.ItemID]
		if !ok {
			lc = confidence.LayerConfidence{Topic: item.TopicConfidence, Sentiment: item.SentimentConfidence}
		}
		if isLowConfidence(lc, p.Threshold) {
			low = append(low, item)
		} else {
			high = append(high, item)
		}
	}

	sampleSize := int(math.Round(p.Fraction * float64(len(high))))
	rng := rand.New(rand.NewSource(p.Seed))
	rng.Shuffle(len(high), func(i, j int) { high[i], high[j] = high[j], high[i] })
	sampled := high[:sampleSize]

	records := make([]domain.ReviewRecord, 0, len(low)+len(sampled))
	for _, item := range low {
		records = append(records, newRecord(item, domain.SelectionLowConfidence))
	}
	for _, item := range sampled {
		records = append(records, newRecord(item, domain.SelectionHighSample))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ItemID < records[j].ItemID })

	log.Printf("review sample total=%d low=%d high=%d sampled=%d threshold=%.2f fraction=%.2f seed=%d",
		len(sorted), len(low), len(high), len(sampled), p.Threshold, p.Fraction, p.Seed)
	return records
}

func isLowConfidence(lc confidence.LayerConfidence, threshold float64) bool {
	if lc.Topic < threshold || lc.Sentiment < threshold {
		return true
	}
	if lc.DetailPolicy == confidence.PolicyVerifier && lc.Detail < threshold {
		return true
	}
	return false
}

func newRecord(item domain.ClassifiedItem, reason string) domain.ReviewRecord {
	var tags []string
	if item.DetailTags != nil {
		tags = append(tags, item.DetailTags.CategoryTags...)
	}
	return domain.ReviewRecord{
		ItemID:           item.ItemID,
		Text:             item.RawText,
		AutoTopic:        item.Topic,
		AutoSentiment:    item.Sentiment,
		AutoCategoryTags: tags,
		SelectionReason:  reason,
	}
}
