package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
	"github.com/gayunlee/letter-post-weekly-report/internal/storage"
)

const retryBase = 500 * time.Millisecond

// Result counts what happened to each record of a batch.
type Result struct {
	Total         int
	Classified    int
	SkippedCached int
	Failed        int
	Conflicts     int
}

// Classifier runs the two-axis pass over raw records. Each item gets one call
// per axis model; results are cached through the store's merge rule so an
// item is classified at most once across runs and within a run.
type Classifier struct {
	Topic      Model
	Sentiment  Model
	Store      *storage.Store
	Workers    int
	MaxRetries int
}

// Run classifies records concurrently with a bounded worker pool. Items whose
// model calls fail are left unclassified for the next run, never cached with
// sentinel labels. Conflicting merges surface loudly.
func (c *Classifier) Run(ctx context.Context, records []domain.RawRecord) (Result, error) {
	workers := c.Workers
	if workers < 1 {
		workers = 5
	}

	// In-run dedupe: the same item_id twice in one batch is classified once.
	seen := make(map[string]bool, len(records))
	var unique []domain.RawRecord
	for _, rec := range records {
		id := domain.ItemID(rec.SourceType, rec.SourcePK)
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, rec)
	}

	var (
		mu     sync.Mutex
		result = Result{Total: len(unique)}
	)
	jobs := make(chan domain.RawRecord)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcome := c.classifyOne(ctx, rec)
				mu.Lock()
				switch outcome {
				case outcomeClassified:
					result.Classified++
				case outcomeCached:
					result.SkippedCached++
				case outcomeFailed:
					result.Failed++
				case outcomeConflict:
					result.Conflicts++
				}
				mu.Unlock()
			}
		}()
	}

	for _, rec := range unique {
		select {
		case jobs <- rec:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("classify done total=%d classified=%d cached=%d failed=%d conflicts=%d",
		result.Total, result.Classified, result.SkippedCached, result.Failed, result.Conflicts)
	return result, nil
}

type outcome int

const (
	outcomeClassified outcome = iota
	outcomeCached
	outcomeFailed
	outcomeConflict
)

func (c *Classifier) classifyOne(ctx context.Context, rec domain.RawRecord) outcome {
	itemID := domain.ItemID(rec.SourceType, rec.SourcePK)

	existing, ok, err := c.Store.Get(itemID)
	if err != nil {
		log.Printf("classify store read item=%s err=%v", itemID, err)
		return outcomeFailed
	}
	if ok && existing.Classified() {
		return outcomeCached
	}
	if rec.Text == "" {
		log.Printf("classify skipped empty text item=%s", itemID)
		return outcomeFailed
	}

	topicPred, err := c.predict(ctx, c.Topic, "topic", rec.Text)
	if err != nil {
		log.Printf("classify topic item=%s err=%v", itemID, err)
		return outcomeFailed
	}
	sentPred, err := c.predict(ctx, c.Sentiment, "sentiment", rec.Text)
	if err != nil {
		log.Printf("classify sentiment item=%s err=%v", itemID, err)
		return outcomeFailed
	}

	if !domain.ValidTopic(topicPred.Label) || !domain.ValidSentiment(sentPred.Label) {
		// Off-enum labels would poison the corpus; flag and leave unclassified.
		detail := fmt.Sprintf("topic=%q sentiment=%q", topicPred.Label, sentPred.Label)
		if qerr := c.Store.AddQualityEvent(itemID, storage.QualityBadLabel, detail); qerr != nil {
			log.Printf("classify quality event item=%s err=%v", itemID, qerr)
		}
		log.Printf("classify bad label item=%s %s", itemID, detail)
		return outcomeFailed
	}

	err = c.Store.PutOrMerge(domain.ClassifiedItem{
		ItemID:              itemID,
		SourceType:          rec.SourceType,
		RawText:             rec.Text,
		Topic:               domain.Topic(topicPred.Label),
		TopicConfidence:     topicPred.Confidence,
		Sentiment:           domain.Sentiment(sentPred.Label),
		SentimentConfidence: sentPred.Confidence,
	})
	if errors.Is(err, storage.ErrConflict) {
		log.Printf("classify CONFLICT item=%s err=%v", itemID, err)
		return outcomeConflict
	}
	if err != nil {
		log.Printf("classify store write item=%s err=%v", itemID, err)
		return outcomeFailed
	}
	return outcomeClassified
}

func (c *Classifier) predict(ctx context.Context, model Model, axis, text string) (Prediction, error) {
	attempts := c.MaxRetries + 1
	var pred Prediction
	err := httpx.Retry(ctx, "classify "+axis, attempts, retryBase, func() error {
		var callErr error
		pred, callErr = model.Predict(ctx, text)
		return callErr
	})
	return pred, err
}
