package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/artifacts"
	"github.com/gayunlee/letter-post-weekly-report/internal/classify"
	"github.com/gayunlee/letter-post-weekly-report/internal/cluster"
	"github.com/gayunlee/letter-post-weekly-report/internal/confidence"
	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/review"
	"github.com/gayunlee/letter-post-weekly-report/internal/storage"
	"github.com/gayunlee/letter-post-weekly-report/internal/tags"
	"github.com/gayunlee/letter-post-weekly-report/internal/warehouse"
)

// Pipeline holds the collaborators for one run; the store is period-scoped
// and created fresh at run start.
type Pipeline struct {
	Source     warehouse.Source
	Classifier *classify.Classifier
	Extractor  *tags.Extractor
	Aggregator *confidence.Aggregator
	Clusterer  *cluster.Clusterer
	Store      *storage.Store
	Writer     *artifacts.Writer
	Sample     review.SampleParams
	Location   *time.Location
}

// RunSummary is printed (and optionally posted) at the end of every run.
type RunSummary struct {
	Period        string
	Fetched       int
	Classified    int
	SkippedCached int
	Failed        int
	Conflicts     int
	Tagged        int
	TagFailed     int
	OffListTags   int
	ParseFailures int
	Sampled       int
	LowConfidence int
	Clusters      int
}

func (s RunSummary) String() string {
	return fmt.Sprintf(
		"period=%s fetched=%d classified=%d cached=%d failed=%d conflicts=%d "+
			"tagged=%d tag_failed=%d off_list_tags=%d parse_failures=%d "+
			"review_sampled=%d low_confidence=%d clusters=%d",
		s.Period, s.Fetched, s.Classified, s.SkippedCached, s.Failed, s.Conflicts,
		s.Tagged, s.TagFailed, s.OffListTags, s.ParseFailures,
		s.Sampled, s.LowConfidence, s.Clusters,
	)
}

// Run executes the full pass for one period: fetch, classify, tag, score,
// sample for review, write artifacts, cluster sub-themes. Transient and
// validation failures downgrade to per-item skips; integrity conflicts and
// artifact write errors abort.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	period := p.Store.Period()
	summary := RunSummary{Period: period}

	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	from, to, err := domain.PeriodRange(period, loc)
	if err != nil {
		return summary, err
	}

	records, err := p.Source.Fetch(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("fetching raw records: %w", err)
	}
	summary.Fetched = len(records)

	classifyResult, err := p.Classifier.Run(ctx, records)
	if err != nil {
		return summary, fmt.Errorf("two-axis classification: %w", err)
	}
	summary.Classified = classifyResult.Classified
	summary.SkippedCached = classifyResult.SkippedCached
	summary.Failed = classifyResult.Failed
	summary.Conflicts = classifyResult.Conflicts
	if classifyResult.Conflicts > 0 {
		return summary, fmt.Errorf("%d merge conflicts during classification: %w",
			classifyResult.Conflicts, storage.ErrConflict)
	}

	items, err := p.Store.Items()
	if err != nil {
		return summary, fmt.Errorf("loading classified items: %w", err)
	}

	tagResult, err := p.Extractor.Run(ctx, items)
	if err != nil {
		return summary, fmt.Errorf("detail tag extraction: %w", err)
	}
	summary.Tagged = tagResult.Tagged
	summary.TagFailed = tagResult.Failed
	summary.OffListTags = tagResult.OffListTags

	if summary.ParseFailures, err = p.Store.CountQualityEvents(storage.QualityParseFailure); err != nil {
		return summary, err
	}

	// Reload so sampled records carry fresh detail tags.
	if items, err = p.Store.Items(); err != nil {
		return summary, fmt.Errorf("reloading items: %w", err)
	}

	confs := make(map[string]confidence.LayerConfidence, len(items))
	for _, item := range items {
		lc, err := p.Aggregator.Confidences(ctx, item)
		if err != nil {
			// The topic/sentiment posteriors stand on their own; only the
			// unscored detail layer degrades.
			log.Printf("confidence item=%s err=%v", item.ItemID, err)
			lc.Detail = 0
		}
		confs[item.ItemID] = lc
	}

	reviewRecords := review.SelectForReview(items, confs, p.Sample)
	summary.Sampled = len(reviewRecords)
	for _, r := range reviewRecords {
		if r.SelectionReason == domain.SelectionLowConfidence {
			summary.LowConfidence++
		}
	}
	if _, err := p.Store.InsertReviewRecords(reviewRecords); err != nil {
		return summary, fmt.Errorf("storing review records: %w", err)
	}

	if _, err := p.Writer.WriteClassified(period, items); err != nil {
		return summary, fmt.Errorf("writing classified artifact: %w", err)
	}
	if _, err := p.Writer.WriteStats(period, artifacts.ComputeStats(period, items)); err != nil {
		return summary, fmt.Errorf("writing stats artifact: %w", err)
	}
	if _, err := p.Writer.WriteReviewCSV(period, reviewRecords); err != nil {
		return summary, fmt.Errorf("writing review artifact: %w", err)
	}

	serviceItems, err := p.Store.ItemsByTopic(domain.TopicServiceIssue)
	if err != nil {
		return summary, fmt.Errorf("loading service-issue items: %w", err)
	}
	clusters, err := p.Clusterer.Run(ctx, serviceItems)
	if err != nil {
		// Clustering is additive analysis; its failure should not lose the
		// classification artifacts already written.
		log.Printf("cluster run err=%v", err)
	} else {
		summary.Clusters = len(clusters)
		patterns := p.Clusterer.NotablePatterns(ctx, items)
		if _, err := p.Writer.WriteSubThemes(period, clusters, patterns); err != nil {
			return summary, fmt.Errorf("writing sub-themes artifact: %w", err)
		}
	}

	log.Printf("run summary %s", summary)
	return summary, nil
}

// ImportReview applies a human-edited review CSV and regenerates the
// accuracy report from the full ReviewRecord set.
func (p *Pipeline) ImportReview(records []domain.ReviewRecord, rowErrs []review.RowError) (domain.AccuracyReport, error) {
	period := p.Store.Period()
	for _, re := range rowErrs {
		log.Printf("review import rejected %v", re)
	}
	applied := 0
	rejected := len(rowErrs)
	for _, r := range records {
		if r.ReviewTopic == "" && r.ReviewSentiment == "" && !r.TagsReviewed {
			continue
		}
		if err := p.Store.ApplyReview(r); err != nil {
			if errors.Is(err, storage.ErrUnknownItem) {
				log.Printf("review import rejected %v", err)
				rejected++
				continue
			}
			return domain.AccuracyReport{}, fmt.Errorf("applying review for %s: %w", r.ItemID, err)
		}
		applied++
	}
	log.Printf("review import period=%s applied=%d rejected=%d", period, applied, rejected)

	stored, err := p.Store.ReviewRecords()
	if err != nil {
		return domain.AccuracyReport{}, fmt.Errorf("loading review records: %w", err)
	}
	report := review.Reconcile(period, stored)
	if _, err := p.Writer.WriteAccuracy(report); err != nil {
		return report, fmt.Errorf("writing accuracy artifact: %w", err)
	}
	return report, nil
}
