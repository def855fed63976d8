package artifacts

import (
	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// Stats is the per-period summary document written next to the classified
// data: totals by source, topic x sentiment distribution, tag aggregation,
// and confidence buckets.
type Stats struct {
	Period  string                    `json:"period"`
	Total   TotalStats                `json:"total"`
	ByTopic map[string]int            `json:"by_topic"`
	Matrix  map[string]map[string]int `json:"topic_sentiment_matrix"`
	Tags    TagStats                  `json:"tags"`
	Buckets BucketStats               `json:"confidence_buckets"`
}

type TotalStats struct {
	Letters int `json:"letters"`
	Posts   int `json:"posts"`
	Total   int `json:"total"`
}

// TagStats aggregates category tag frequency overall and per axis, plus the
// share of items that carry at least one category tag.
type TagStats struct {
	TaggedItems int                       `json:"tagged_items"`
	Coverage    float64                   `json:"coverage"`
	Overall     map[string]int            `json:"overall"`
	ByTopic     map[string]map[string]int `json:"by_topic"`
	BySentiment map[string]map[string]int `json:"by_sentiment"`
}

// BucketStats buckets topic-layer confidence for the run summary.
type BucketStats struct {
	Below50  int     `json:"below_50"`
	From50   int     `json:"from_50_to_70"`
	From70   int     `json:"from_70_to_90"`
	Above90  int     `json:"above_90"`
	AvgTopic float64 `json:"avg_topic_confidence"`
}

// ComputeStats derives the period stats from the classified item set.
func ComputeStats(period string, items []domain.ClassifiedItem) Stats {
	stats := Stats{
		Period:  period,
		ByTopic: make(map[string]int),
		Matrix:  make(map[string]map[string]int),
		Tags: TagStats{
			Overall:     make(map[string]int),
			ByTopic:     make(map[string]map[string]int),
			BySentiment: make(map[string]map[string]int),
		},
	}

	var confidenceSum float64
	for _, item := range items {
		switch item.SourceType {
		case domain.SourceLetter:
			stats.Total.Letters++
		case domain.SourcePost:
			stats.Total.Posts++
		}
		stats.Total.Total++

		topic := string(item.Topic)
		sentiment := string(item.Sentiment)
		stats.ByTopic[topic]++
		if stats.Matrix[topic] == nil {
			stats.Matrix[topic] = make(map[string]int)
		}
		stats.Matrix[topic][sentiment]++

		confidenceSum += item.TopicConfidence
		switch {
		case item.TopicConfidence < 0.50:
			stats.Buckets.Below50++
		case item.TopicConfidence < 0.70:
			stats.Buckets.From50++
		case item.TopicConfidence < 0.90:
			stats.Buckets.From70++
		default:
			stats.Buckets.Above90++
		}

		if item.DetailTags == nil {
			continue
		}
		if len(item.DetailTags.CategoryTags) > 0 {
			stats.Tags.TaggedItems++
		}
		for _, tag := range item.DetailTags.CategoryTags {
			stats.Tags.Overall[tag]++
			if stats.Tags.ByTopic[topic] == nil {
				stats.Tags.ByTopic[topic] = make(map[string]int)
			}
			stats.Tags.ByTopic[topic][tag]++
			if stats.Tags.BySentiment[sentiment] == nil {
				stats.Tags.BySentiment[sentiment] = make(map[string]int)
			}
			stats.Tags.BySentiment[sentiment][tag]++
		}
	}

	if stats.Total.Total > 0 {
		stats.Tags.Coverage = float64(stats.Tags.TaggedItems) / float64(stats.Total.Total)
		stats.Buckets.AvgTopic = confidenceSum / float64(stats.Total.Total)
	}
	return stats
}
