package domain

// Cluster is one sub-theme group from a clustering run. IDs are run-scoped:
// re-clustering may renumber clusters, so consumers must not persist them as
// stable identity.
type Cluster struct {
	ID            int               `json:"cluster_id"`
	Label         string            `json:"label"`
	Size          int               `json:"size"`
	MemberItemIDs []string          `json:"member_item_ids"`
	SentimentDist map[Sentiment]int `json:"sentiment_dist,omitempty"`
	Samples       []string          `json:"samples,omitempty"`
}

// NotablePattern is an LLM summary of negative items within one non-service
// topic, produced when the negative count crosses a threshold.
type NotablePattern struct {
	Topic         Topic   `json:"topic"`
	NegativeCount int     `json:"negative_count"`
	TotalInTopic  int     `json:"total_in_topic"`
	NegativeRatio float64 `json:"negative_ratio"`
	Summary       string  `json:"summary"`
}
