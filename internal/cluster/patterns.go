package cluster

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
)

// Negative items in a non-service topic trigger one LLM theme summary once
// they reach this count.
const notableNegativeThreshold = 5

const maxPatternSamples = 20

const patternPrompt = `The following are samples of %d user posts classified as negative within the
"%s" topic on a financial content platform.

Summarize the 2-3 common themes or complaints concisely.
Write each theme as one line, as a bullet point ("- ").

[Negative VOC samples]
%s`

// NotablePatterns scans the non-service topics and summarizes recurring
// negative sentiment. Service issues are covered by clustering instead.
func (c *Clusterer) NotablePatterns(ctx context.Context, items []domain.ClassifiedItem) []domain.NotablePattern {
	var patterns []domain.NotablePattern
	for _, topic := range domain.Topics {
		if topic == domain.TopicServiceIssue {
			continue
		}

		var topicItems, negative []domain.ClassifiedItem
		for _, item := range items {
			if item.Topic != topic {
				continue
			}
			topicItems = append(topicItems, item)
			if item.Sentiment == domain.SentimentNegative {
				negative = append(negative, item)
			}
		}
		if len(negative) < notableNegativeThreshold {
			continue
		}

		log.Printf("notable pattern topic=%s negative=%d total=%d", topic, len(negative), len(topicItems))
		patterns = append(patterns, domain.NotablePattern{
			Topic:         topic,
			NegativeCount: len(negative),
			TotalInTopic:  len(topicItems),
			NegativeRatio: float64(len(negative)) / float64(len(topicItems)),
			Summary:       c.summarizeNegative(ctx, topic, negative),
		})
	}
	return patterns
}

func (c *Clusterer) summarizeNegative(ctx context.Context, topic domain.Topic, items []domain.ClassifiedItem) string {
	samples := make([]string, 0, maxPatternSamples)
	for _, item := range items {
		if len(samples) == maxPatternSamples {
			break
		}
		samples = append(samples, truncate(item.RawText, maxSampleChars))
	}
	joined := strings.Join(samples, "\n---\n")

	var response string
	err := httpx.Retry(ctx, "notable pattern summary", c.MaxRetries+1, retryBase, func() error {
		var callErr error
		response, callErr = c.LLM.Complete(ctx, "", fmt.Sprintf(patternPrompt, len(items), topic, joined))
		return callErr
	})
	if err != nil {
		log.Printf("notable pattern summary topic=%s err=%v", topic, err)
		return "- summary unavailable"
	}
	return strings.TrimSpace(response)
}
