package cluster

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
	"github.com/gayunlee/letter-post-weekly-report/internal/llm"
)

const (
	// Below this size clustering degenerates; the subset is reported as one
	// unlabeled group instead of forcing k=1.
	minItemsForClustering = 10
	minK                  = 2
	maxKCeiling           = 20
	maxEmbedChars         = 500
	maxLabelSamples       = 5
	maxSampleChars        = 200

	retryBase = 500 * time.Millisecond
)

const labelPrompt = `The following is a group of service-related VOC (customer feedback) items
from a financial content platform. Name the group's common issue as a short
noun phrase of 2-4 words, e.g. "refund request", "lecture access failure",
"membership cancellation question".

Answer with the name only, no quotes.

[VOC samples]
%s`

// Clusterer groups the service-issue subset into sub-themes: embed, pick a
// cluster count by silhouette score, then label each cluster with one LLM
// call over member samples (never one call per item).
type Clusterer struct {
	Embedder   Embedder
	LLM        llm.Completer
	Seed       int64
	MaxRetries int
}

func (c *Clusterer) Run(ctx context.Context, items []domain.ClassifiedItem) ([]domain.Cluster, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) < minItemsForClustering {
		log.Printf("cluster skipped items=%d min=%d", len(items), minItemsForClustering)
		return []domain.Cluster{singleGroup(items)}, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = truncate(item.RawText, maxEmbedChars)
	}
	vectors, err := c.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d items: %w", len(items), err)
	}

	maxK := len(items) / 5
	if maxK > maxKCeiling {
		maxK = maxKCeiling
	}

	bestK, bestScore := minK, -1.0
	var bestAssignments []int
	for k := minK; k <= maxK; k++ {
		assignments := kMeans(vectors, k, c.Seed)
		score := silhouette(vectors, assignments, k)
		if score > bestScore {
			bestK, bestScore = k, score
			bestAssignments = assignments
		}
	}
	log.Printf("cluster items=%d best_k=%d silhouette=%.3f", len(items), bestK, bestScore)

	clusters := make([]domain.Cluster, 0, bestK)
	for cid := 0; cid < bestK; cid++ {
		var members []domain.ClassifiedItem
		for i, assigned := range bestAssignments {
			if assigned == cid {
				members = append(members, items[i])
			}
		}
		if len(members) == 0 {
			continue
		}
		clusters = append(clusters, c.describe(ctx, cid, members))
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Size > clusters[j].Size })
	for i := range clusters {
		clusters[i].ID = i
	}
	return clusters, nil
}

func (c *Clusterer) describe(ctx context.Context, id int, members []domain.ClassifiedItem) domain.Cluster {
	cluster := domain.Cluster{
		ID:            id,
		Size:          len(members),
		SentimentDist: make(map[domain.Sentiment]int),
	}
	for _, m := range members {
		cluster.MemberItemIDs = append(cluster.MemberItemIDs, m.ItemID)
		cluster.SentimentDist[m.Sentiment]++
		if len(cluster.Samples) < maxLabelSamples {
			cluster.Samples = append(cluster.Samples, truncate(m.RawText, maxSampleChars))
		}
	}
	sort.Strings(cluster.MemberItemIDs)
	cluster.Label = c.labelCluster(ctx, cluster.Samples)
	return cluster
}

func (c *Clusterer) labelCluster(ctx context.Context, samples []string) string {
	joined := strings.Join(samples, "\n---\n")
	var response string
	err := httpx.Retry(ctx, "cluster label", c.MaxRetries+1, retryBase, func() error {
		var callErr error
		response, callErr = c.LLM.Complete(ctx, "", fmt.Sprintf(labelPrompt, joined))
		return callErr
	})
	if err != nil {
		log.Printf("cluster label err=%v", err)
		return "service issue"
	}
	return strings.Trim(strings.TrimSpace(response), `"'`)
}

func singleGroup(items []domain.ClassifiedItem) domain.Cluster {
	cluster := domain.Cluster{
		ID:            0,
		Label:         "",
		Size:          len(items),
		SentimentDist: make(map[domain.Sentiment]int),
	}
	for _, m := range items {
		cluster.MemberItemIDs = append(cluster.MemberItemIDs, m.ItemID)
		cluster.SentimentDist[m.Sentiment]++
	}
	sort.Strings(cluster.MemberItemIDs)
	return cluster
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
