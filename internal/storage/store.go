package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// ErrConflict indicates a merge tried to change an already-populated field.
// That is a logic bug (duplicate item_id with diverging data), never a
// transient condition, so callers surface it loudly instead of retrying.
var ErrConflict = errors.New("conflicting populated field")

const lockStripes = 64

// Store is the identity & cache store for one period. Every item_id maps to
// one accumulated classification record; merges only ever fill unset fields.
// Writers to the same item_id are serialized through striped locks so the
// merge rule cannot lose updates under concurrent classification.
type Store struct {
	db     *sql.DB
	period string
	locks  [lockStripes]sync.Mutex
}

func NewStore(db *sql.DB, period string) *Store {
	return &Store{db: db, period: period}
}

func (s *Store) Period() string { return s.period }

func (s *Store) lockFor(itemID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(itemID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Get returns the stored record for itemID, with ok=false when absent.
func (s *Store) Get(itemID string) (domain.ClassifiedItem, bool, error) {
	item, err := s.scanItem(s.db.QueryRow(
		`SELECT item_id, source_type, raw_text, topic, topic_confidence,
		        sentiment, sentiment_confidence, detail_tags, detail_confidence, classified_at
		 FROM classified_items WHERE period = ? AND item_id = ?`,
		s.period, itemID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClassifiedItem{}, false, nil
	}
	if err != nil {
		return domain.ClassifiedItem{}, false, err
	}
	return item, true, nil
}

// PutOrMerge inserts the item if absent, otherwise merges only fields that
// are currently unset on the stored record. A populated field that differs
// from the incoming value fails with ErrConflict.
func (s *Store) PutOrMerge(item domain.ClassifiedItem) error {
	mu := s.lockFor(item.ItemID)
	mu.Lock()
	defer mu.Unlock()

	existing, ok, err := s.Get(item.ItemID)
	if err != nil {
		return fmt.Errorf("loading %s: %w", item.ItemID, err)
	}
	if !ok {
		return s.insert(item)
	}

	merged := existing
	if existing.Topic == "" {
		merged.Topic = item.Topic
		merged.TopicConfidence = item.TopicConfidence
		merged.Sentiment = item.Sentiment
		merged.SentimentConfidence = item.SentimentConfidence
	} else if item.Topic != "" && (item.Topic != existing.Topic || item.Sentiment != existing.Sentiment) {
		return fmt.Errorf("item %s topic/sentiment already set: %w", item.ItemID, ErrConflict)
	}
	if existing.DetailTags == nil {
		merged.DetailTags = item.DetailTags
		merged.DetailConfidence = item.DetailConfidence
	} else if item.DetailTags != nil {
		return fmt.Errorf("item %s detail_tags already set: %w", item.ItemID, ErrConflict)
	}
	return s.update(merged)
}

func (s *Store) insert(item domain.ClassifiedItem) error {
	detail, err := marshalDetail(item.DetailTags)
	if err != nil {
		return err
	}
	classifiedAt := item.ClassifiedAt
	if classifiedAt.IsZero() {
		classifiedAt = time.Now().UTC()
	}
	_, err = s.db.Exec(
		`INSERT INTO classified_items
		 (period, item_id, source_type, raw_text, topic, topic_confidence,
		  sentiment, sentiment_confidence, detail_tags, detail_confidence, classified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.period, item.ItemID, item.SourceType, item.RawText,
		item.Topic, item.TopicConfidence, item.Sentiment, item.SentimentConfidence,
		detail, item.DetailConfidence, classifiedAt,
	)
	return err
}

func (s *Store) update(item domain.ClassifiedItem) error {
	detail, err := marshalDetail(item.DetailTags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE classified_items
		 SET topic = ?, topic_confidence = ?, sentiment = ?, sentiment_confidence = ?,
		     detail_tags = ?, detail_confidence = ?
		 WHERE period = ? AND item_id = ?`,
		item.Topic, item.TopicConfidence, item.Sentiment, item.SentimentConfidence,
		detail, item.DetailConfidence, s.period, item.ItemID,
	)
	return err
}

// Items returns every record for the period ordered by item_id.
func (s *Store) Items() ([]domain.ClassifiedItem, error) {
	return s.queryItems(
		`SELECT item_id, source_type, raw_text, topic, topic_confidence,
		        sentiment, sentiment_confidence, detail_tags, detail_confidence, classified_at
		 FROM classified_items WHERE period = ? ORDER BY item_id`,
		s.period,
	)
}

// ItemsByTopic returns the period's records with the given topic, ordered by item_id.
func (s *Store) ItemsByTopic(topic domain.Topic) ([]domain.ClassifiedItem, error) {
	return s.queryItems(
		`SELECT item_id, source_type, raw_text, topic, topic_confidence,
		        sentiment, sentiment_confidence, detail_tags, detail_confidence, classified_at
		 FROM classified_items WHERE period = ? AND topic = ? ORDER BY item_id`,
		s.period, topic,
	)
}

func (s *Store) queryItems(query string, args ...any) ([]domain.ClassifiedItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ClassifiedItem
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanItem(row rowScanner) (domain.ClassifiedItem, error) {
	var item domain.ClassifiedItem
	var detail string
	err := row.Scan(
		&item.ItemID, &item.SourceType, &item.RawText,
		&item.Topic, &item.TopicConfidence,
		&item.Sentiment, &item.SentimentConfidence,
		&detail, &item.DetailConfidence, &item.ClassifiedAt,
	)
	if err != nil {
		return item, err
	}
	if detail != "" {
		var tags domain.DetailTags
		if err := json.Unmarshal([]byte(detail), &tags); err != nil {
			return item, fmt.Errorf("corrupt detail_tags for %s: %w", item.ItemID, err)
		}
		item.DetailTags = &tags
	}
	return item, nil
}

func marshalDetail(tags *domain.DetailTags) (string, error) {
	if tags == nil {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshaling detail_tags: %w", err)
	}
	return string(data), nil
}
