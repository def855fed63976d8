package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// ErrUnknownItem marks a review correction whose item_id was never sampled
// for the period, usually a typo in the reviewed CSV's id column.
var ErrUnknownItem = errors.New("no review record for item")

// tagSeparator joins tag sets inside a single column/CSV cell.
const tagSeparator = "|"

func JoinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, tagSeparator)
}

// InsertReviewRecords stores the sampled records. Existing records for the
// same (period, item_id) are left untouched so re-running a period never
// clobbers a reviewer's work.
func (s *Store) InsertReviewRecords(records []domain.ReviewRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO review_records
		 (period, item_id, text, auto_topic, auto_sentiment, auto_category_tags, selection_reason, exported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(period, item_id) DO NOTHING`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		exportedAt := r.ExportedAt
		if exportedAt.IsZero() {
			exportedAt = time.Now().UTC()
		}
		res, err := stmt.Exec(
			s.period, r.ItemID, r.Text, r.AutoTopic, r.AutoSentiment,
			JoinTags(r.AutoCategoryTags), r.SelectionReason, exportedAt,
		)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// ApplyReview writes human-corrected labels onto an existing review record.
// It never touches classified_items: machine labels stay auditable.
func (s *Store) ApplyReview(r domain.ReviewRecord) error {
	tagsReviewed := 0
	if r.TagsReviewed {
		tagsReviewed = 1
	}
	res, err := s.db.Exec(
		`UPDATE review_records
		 SET review_topic = ?, review_sentiment = ?, review_category_tags = ?,
		     tags_reviewed = ?, reviewed_at = ?
		 WHERE period = ? AND item_id = ?`,
		r.ReviewTopic, r.ReviewSentiment, JoinTags(r.ReviewCategoryTags),
		tagsReviewed, time.Now().UTC(), s.period, r.ItemID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", r.ItemID, ErrUnknownItem)
	}
	return nil
}

// ReviewRecords returns the period's review records ordered by item_id.
func (s *Store) ReviewRecords() ([]domain.ReviewRecord, error) {
	rows, err := s.db.Query(
		`SELECT item_id, text, auto_topic, auto_sentiment, auto_category_tags,
		        review_topic, review_sentiment, review_category_tags, tags_reviewed,
		        selection_reason, exported_at, reviewed_at
		 FROM review_records WHERE period = ? ORDER BY item_id`,
		s.period,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewRecord
	for rows.Next() {
		var r domain.ReviewRecord
		var autoTags, reviewTags string
		var tagsReviewed int
		var reviewedAt sql.NullTime
		if err := rows.Scan(
			&r.ItemID, &r.Text, &r.AutoTopic, &r.AutoSentiment, &autoTags,
			&r.ReviewTopic, &r.ReviewSentiment, &reviewTags, &tagsReviewed,
			&r.SelectionReason, &r.ExportedAt, &reviewedAt,
		); err != nil {
			return nil, err
		}
		r.AutoCategoryTags = SplitTags(autoTags)
		r.ReviewCategoryTags = SplitTags(reviewTags)
		r.TagsReviewed = tagsReviewed != 0
		if reviewedAt.Valid {
			r.ReviewedAt = reviewedAt.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
