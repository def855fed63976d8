package domain

import "time"

// Selection reasons for review sampling.
const (
	SelectionLowConfidence = "low_confidence"
	SelectionHighSample    = "high_confidence_sample"
)

// ReviewRecord snapshots machine labels at export time and collects the
// human-corrected labels. Auto fields are immutable once exported; review
// fields stay empty until a reviewer fills them. Records are never deleted.
type ReviewRecord struct {
	ItemID             string
	Text               string
	AutoTopic          Topic
	AutoSentiment      Sentiment
	AutoCategoryTags   []string
	ReviewTopic        Topic
	ReviewSentiment    Sentiment
	ReviewCategoryTags []string
	TagsReviewed       bool // distinguishes "reviewed as empty set" from "not reviewed"
	SelectionReason    string
	ExportedAt         time.Time
	ReviewedAt         time.Time
}

// LayerReport is the per-layer accuracy result over reviewed records.
type LayerReport struct {
	Reviewed  int                       `json:"reviewed"`
	Matches   int                       `json:"matches"`
	Accuracy  float64                   `json:"accuracy"`
	Confusion map[string]map[string]int `json:"confusion"`
}

// TagLayerReport adds the Jaccard partial-match metric for the set-valued
// category tag layer, since strict set equality is stricter than
// operationally meaningful.
type TagLayerReport struct {
	LayerReport
	MeanJaccard float64 `json:"mean_jaccard"`
}

// AccuracyReport is derived and recomputed on demand from the full set of
// ReviewRecords for a period, never persisted as mutable state.
type AccuracyReport struct {
	Period      string         `json:"period"`
	Topic       LayerReport    `json:"topic"`
	Sentiment   LayerReport    `json:"sentiment"`
	CategoryTag TagLayerReport `json:"category_tag"`
}
