package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
	"github.com/gayunlee/letter-post-weekly-report/internal/llm"
	"github.com/gayunlee/letter-post-weekly-report/internal/storage"
)

const (
	maxFreeTags    = 3
	maxSummaryLen  = 60
	maxPromptChars = 500
	minTextLen     = 10

	retryBase = 500 * time.Millisecond
)

const systemPromptTemplate = `You are a VOC (Voice of Customer) analyst for a financial education platform.
Read a user's letter or post and extract two kinds of tags.

## Extraction rules

### 1. Category tags (category_tags)
Pick 1-2 tags from this list. Only tags from the list are allowed:
%s

### 2. Free tags (free_tags)
Extract 2-3 specific noun phrases (2-5 words each) that other teams could
search for, e.g. "board shutdown notice missing", "ARKK portfolio weighting dispute".

### 3. One-line summary (summary)
Summarize the core content in one short line.

## Response format
Output only this JSON, nothing else:
{"category_tags": ["tag1"], "free_tags": ["tag1", "tag2"], "summary": "one line"}`

// Result counts what happened during one extraction batch.
type Result struct {
	Total         int
	Tagged        int
	SkippedCached int
	Failed        int
	OffListTags   int
}

// Extractor attaches detail tags to two-axis-classified items. Category tags
// are validated against the topic-scoped controlled vocabulary; off-list tags
// are dropped and counted, never stored.
type Extractor struct {
	LLM        llm.Completer
	Store      *storage.Store
	Workers    int
	MaxRetries int
}

// Run extracts tags for every classified-but-untagged item in the batch.
// Items whose responses stay malformed past the retry bound are left without
// detail_tags so the next run picks them up.
func (e *Extractor) Run(ctx context.Context, items []domain.ClassifiedItem) (Result, error) {
	workers := e.Workers
	if workers < 1 {
		workers = 5
	}

	var (
		mu     sync.Mutex
		result = Result{Total: len(items)}
	)
	jobs := make(chan domain.ClassifiedItem)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				tagged, offList, err := e.extractOne(ctx, item)
				mu.Lock()
				result.OffListTags += offList
				switch {
				case err == errAlreadyTagged:
					result.SkippedCached++
				case err != nil:
					result.Failed++
				case tagged:
					result.Tagged++
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("detail-tags done total=%d tagged=%d cached=%d failed=%d off_list=%d",
		result.Total, result.Tagged, result.SkippedCached, result.Failed, result.OffListTags)
	return result, nil
}

var errAlreadyTagged = errors.New("already tagged")

func (e *Extractor) extractOne(ctx context.Context, item domain.ClassifiedItem) (bool, int, error) {
	if !item.Classified() {
		return false, 0, fmt.Errorf("item %s not two-axis classified", item.ItemID)
	}

	// Cache-consistent skip: re-read the store under the item's identity in
	// case the batch snapshot is stale.
	current, ok, err := e.Store.Get(item.ItemID)
	if err != nil {
		return false, 0, err
	}
	if ok && current.Tagged() {
		return false, 0, errAlreadyTagged
	}

	text := item.RawText
	if len(strings.TrimSpace(text)) < minTextLen {
		// Too short to carry tags; store the empty structure so it is not retried.
		err := e.Store.PutOrMerge(domain.ClassifiedItem{
			ItemID:     item.ItemID,
			DetailTags: &domain.DetailTags{CategoryTags: []string{}, FreeTags: []string{}},
		})
		return err == nil, 0, err
	}

	system := buildSystemPrompt(item.Topic)
	user := fmt.Sprintf("[sentiment: %s]\n\n%s", item.Sentiment, truncateRunes(text, maxPromptChars))

	var detail *domain.DetailTags
	var offList int
	attempts := e.MaxRetries + 1
	retryErr := httpx.Retry(ctx, "detail-tags "+item.ItemID, attempts, retryBase, func() error {
		raw, callErr := e.LLM.Complete(ctx, system, user)
		if callErr != nil {
			return callErr
		}
		parsed, dropped, parseErr := ParseResponse(raw, item.Topic)
		if parseErr != nil {
			return parseErr
		}
		detail = parsed
		offList = dropped
		return nil
	})
	if retryErr != nil {
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		// Retry ceiling hit: leave the item untagged, no error placeholder.
		if qerr := e.Store.AddQualityEvent(item.ItemID, storage.QualityParseFailure, ""); qerr != nil {
			log.Printf("detail-tags quality event item=%s err=%v", item.ItemID, qerr)
		}
		return false, 0, fmt.Errorf("item %s: %w", item.ItemID, retryErr)
	}

	for i := 0; i < offList; i++ {
		if qerr := e.Store.AddQualityEvent(item.ItemID, storage.QualityOffListTag, ""); qerr != nil {
			log.Printf("detail-tags quality event item=%s err=%v", item.ItemID, qerr)
		}
	}

	err = e.Store.PutOrMerge(domain.ClassifiedItem{
		ItemID:     item.ItemID,
		DetailTags: detail,
	})
	if err != nil {
		return false, offList, err
	}
	return true, offList, nil
}

func buildSystemPrompt(topic domain.Topic) string {
	var list strings.Builder
	for _, tag := range domain.CategoryTags[topic] {
		list.WriteString("- " + tag + "\n")
	}
	return fmt.Sprintf(systemPromptTemplate, list.String())
}

type tagResponse struct {
	CategoryTags []string `json:"category_tags"`
	FreeTags     []string `json:"free_tags"`
	Summary      string   `json:"summary"`
}

// ParseResponse parses one LLM tag response and validates category tags
// against the topic's vocabulary subset. It returns the validated structure
// and the number of off-list tags that were dropped.
func ParseResponse(raw string, topic domain.Topic) (*domain.DetailTags, int, error) {
	text := llm.StripFences(raw)
	// Some models echo the doubled braces from prompt examples.
	if strings.HasPrefix(text, "{{") && strings.HasSuffix(text, "}}") {
		text = text[1 : len(text)-1]
	}

	var parsed tagResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, 0, fmt.Errorf("parsing tag response: %w", err)
	}

	validated := []string{}
	dropped := 0
	for _, tag := range parsed.CategoryTags {
		tag = strings.TrimSpace(tag)
		if domain.ValidCategoryTagForTopic(topic, tag) {
			validated = append(validated, tag)
		} else {
			dropped++
		}
	}

	free := parsed.FreeTags
	if len(free) > maxFreeTags {
		free = free[:maxFreeTags]
	}
	if free == nil {
		free = []string{}
	}

	return &domain.DetailTags{
		CategoryTags: validated,
		FreeTags:     free,
		Summary:      truncateRunes(parsed.Summary, maxSummaryLen),
	}, dropped, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
