package review

import (
	"sort"

	"github.com/gayunlee/letter-post-weekly-report/internal/confidence"
	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// Reconcile compares machine labels against human-corrected labels per layer.
// A record only enters a layer's denominator when both the auto and review
// values for that layer are present; missing reviews are excluded, not
// counted as incorrect. Output is deterministic for a fixed record set.
func Reconcile(period string, records []domain.ReviewRecord) domain.AccuracyReport {
	report := domain.AccuracyReport{
		Period:    period,
		Topic:     newLayerReport(),
		Sentiment: newLayerReport(),
		CategoryTag: domain.TagLayerReport{
			LayerReport: newLayerReport(),
		},
	}

	var jaccardSum float64
	for _, r := range records {
		if r.AutoTopic != "" && r.ReviewTopic != "" {
			tally(&report.Topic, string(r.AutoTopic), string(r.ReviewTopic))
		}
		if r.AutoSentiment != "" && r.ReviewSentiment != "" {
			tally(&report.Sentiment, string(r.AutoSentiment), string(r.ReviewSentiment))
		}
		if r.TagsReviewed {
			report.CategoryTag.Reviewed++
			if sameTagSet(r.AutoCategoryTags, r.ReviewCategoryTags) {
				report.CategoryTag.Matches++
			}
			jaccardSum += confidence.Jaccard(r.AutoCategoryTags, r.ReviewCategoryTags)
			tallyTagConfusion(report.CategoryTag.Confusion, r.AutoCategoryTags, r.ReviewCategoryTags)
		}
	}

	finalize(&report.Topic)
	finalize(&report.Sentiment)
	finalize(&report.CategoryTag.LayerReport)
	if report.CategoryTag.Reviewed > 0 {
		report.CategoryTag.MeanJaccard = jaccardSum / float64(report.CategoryTag.Reviewed)
	}
	return report
}

func newLayerReport() domain.LayerReport {
	return domain.LayerReport{Confusion: make(map[string]map[string]int)}
}

func tally(layer *domain.LayerReport, auto, review string) {
	layer.Reviewed++
	if auto == review {
		layer.Matches++
	}
	if layer.Confusion[auto] == nil {
		layer.Confusion[auto] = make(map[string]int)
	}
	layer.Confusion[auto][review]++
}

func finalize(layer *domain.LayerReport) {
	if layer.Reviewed > 0 {
		layer.Accuracy = float64(layer.Matches) / float64(layer.Reviewed)
	}
}

// tallyTagConfusion records pairwise tag disagreements: tags the machine
// chose and the reviewer did not, paired against the reviewer's additions.
// Agreed tags land on the diagonal.
func tallyTagConfusion(confusion map[string]map[string]int, auto, reviewed []string) {
	reviewedSet := make(map[string]bool, len(reviewed))
	for _, t := range reviewed {
		reviewedSet[t] = true
	}
	autoSet := make(map[string]bool, len(auto))
	for _, t := range auto {
		autoSet[t] = true
	}

	var autoOnly, reviewOnly []string
	for _, t := range auto {
		if reviewedSet[t] {
			add(confusion, t, t)
		} else {
			autoOnly = append(autoOnly, t)
		}
	}
	for _, t := range reviewed {
		if !autoSet[t] {
			reviewOnly = append(reviewOnly, t)
		}
	}
	sort.Strings(autoOnly)
	sort.Strings(reviewOnly)
	for _, a := range autoOnly {
		if len(reviewOnly) == 0 {
			add(confusion, a, "")
			continue
		}
		for _, r := range reviewOnly {
			add(confusion, a, r)
		}
	}
	if len(autoOnly) == 0 {
		for _, r := range reviewOnly {
			add(confusion, "", r)
		}
	}
}

func add(confusion map[string]map[string]int, auto, review string) {
	if confusion[auto] == nil {
		confusion[auto] = make(map[string]int)
	}
	confusion[auto][review]++
}

func sameTagSet(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for t := range setA {
		if !setB[t] {
			return false
		}
	}
	return true
}
