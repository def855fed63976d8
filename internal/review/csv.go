package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/storage"
)

// Review CSV schema. Auto columns are filled at export; review columns are
// filled by a human. Tag sets use "|" inside a cell.
var csvHeader = []string{
	"id", "text",
	"auto_topic", "auto_sentiment", "auto_category_tags",
	"review_topic", "review_sentiment", "review_category_tags",
}

// WriteCSV writes the review export in a stable order so identical inputs
// produce byte-identical files.
func WriteCSV(w io.Writer, records []domain.ReviewRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ItemID,
			r.Text,
			string(r.AutoTopic),
			string(r.AutoSentiment),
			storage.JoinTags(r.AutoCategoryTags),
			string(r.ReviewTopic),
			string(r.ReviewSentiment),
			storage.JoinTags(r.ReviewCategoryTags),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowError is one rejected row from a reviewed CSV.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ParseReviewedCSV reads back a human-edited review CSV. The format is a
// strict schema: rows with out-of-range labels or unknown tags are rejected
// with a RowError rather than silently accepted, and valid rows still parse.
func ParseReviewedCSV(r io.Reader) ([]domain.ReviewRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i, col := range csvHeader {
		if i >= len(header) || strings.TrimSpace(header[i]) != col {
			return nil, nil, fmt.Errorf("unexpected CSV header: want %v, got %v", csvHeader, header)
		}
	}

	var records []domain.ReviewRecord
	var rowErrs []RowError
	line := 1
	for {
		line++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func parseRow(row []string) (domain.ReviewRecord, error) {
	rec := domain.ReviewRecord{
		ItemID:           strings.TrimSpace(row[0]),
		Text:             row[1],
		AutoTopic:        domain.Topic(strings.TrimSpace(row[2])),
		AutoSentiment:    domain.Sentiment(strings.TrimSpace(row[3])),
		AutoCategoryTags: storage.SplitTags(strings.TrimSpace(row[4])),
	}
	if rec.ItemID == "" {
		return rec, fmt.Errorf("empty id")
	}

	reviewTopic := strings.TrimSpace(row[5])
	if reviewTopic != "" {
		if !domain.ValidTopic(reviewTopic) {
			return rec, fmt.Errorf("review_topic %q not in taxonomy", reviewTopic)
		}
		rec.ReviewTopic = domain.Topic(reviewTopic)
	}

	reviewSentiment := strings.TrimSpace(row[6])
	if reviewSentiment != "" {
		if !domain.ValidSentiment(reviewSentiment) {
			return rec, fmt.Errorf("review_sentiment %q not in taxonomy", reviewSentiment)
		}
		rec.ReviewSentiment = domain.Sentiment(reviewSentiment)
	}

	reviewTags := strings.TrimSpace(row[7])
	if reviewTags != "" {
		for _, tag := range storage.SplitTags(reviewTags) {
			tag = strings.TrimSpace(tag)
			if !domain.ValidCategoryTag(tag) {
				return rec, fmt.Errorf("review_category_tags value %q not in vocabulary", tag)
			}
			rec.ReviewCategoryTags = append(rec.ReviewCategoryTags, tag)
		}
		rec.TagsReviewed = true
	}
	return rec, nil
}
