package domain

import (
	"fmt"
	"time"
)

const (
	SourceLetter = "letter"
	SourcePost   = "post"
)

// RawRecord is one row from the warehouse collaborator, not yet classified.
type RawRecord struct {
	SourceType string            `json:"source_type"`
	SourcePK   string            `json:"source_pk"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ItemID builds the stable item identifier "{source_type}:{source_pk}".
func ItemID(sourceType, sourcePK string) string {
	return fmt.Sprintf("%s:%s", sourceType, sourcePK)
}

// DetailTags is written atomically as a whole structure, never field by field.
type DetailTags struct {
	CategoryTags []string `json:"category_tags"`
	FreeTags     []string `json:"free_tags"`
	Summary      string   `json:"summary"`
}

// ClassifiedItem accumulates classification layers for one letter or post.
// Topic/sentiment fields are set once by the two-axis classifier; DetailTags
// is attached once by the detail tag extractor. Machine fields are never
// overwritten afterwards; human corrections live in ReviewRecord instead.
type ClassifiedItem struct {
	ItemID              string      `json:"item_id"`
	SourceType          string      `json:"source_type"`
	RawText             string      `json:"raw_text"`
	Topic               Topic       `json:"topic"`
	TopicConfidence     float64     `json:"topic_confidence"`
	Sentiment           Sentiment   `json:"sentiment"`
	SentimentConfidence float64     `json:"sentiment_confidence"`
	DetailTags          *DetailTags `json:"detail_tags,omitempty"`
	DetailConfidence    float64     `json:"detail_confidence,omitempty"`
	ClassifiedAt        time.Time   `json:"classified_at"`
}

// Classified reports whether the two-axis pass has run for this item.
func (c ClassifiedItem) Classified() bool {
	return c.Topic != ""
}

// Tagged reports whether the detail tag pass has run for this item.
func (c ClassifiedItem) Tagged() bool {
	return c.DetailTags != nil
}
