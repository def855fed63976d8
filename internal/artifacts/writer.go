package artifacts

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/review"
)

// Writer persists the per-period output documents. Artifacts are append-only
// across periods: a file that already exists is never rewritten, which makes
// period reruns idempotent.
type Writer struct {
	BaseDir string
}

func (w *Writer) classifiedPath(period string) string {
	return filepath.Join(w.BaseDir, "classified", period+".json")
}

func (w *Writer) statsPath(period string) string {
	return filepath.Join(w.BaseDir, "stats", period+".json")
}

func (w *Writer) subThemesPath(period string) string {
	return filepath.Join(w.BaseDir, "sub_themes", period+".json")
}

func (w *Writer) reviewPath(period string) string {
	return filepath.Join(w.BaseDir, "review", period+".csv")
}

func (w *Writer) accuracyPath(period string) string {
	return filepath.Join(w.BaseDir, "accuracy", period+".json")
}

type classifiedDoc struct {
	Period string                  `json:"period"`
	Items  []domain.ClassifiedItem `json:"items"`
}

// WriteClassified writes the period's full classified item array.
func (w *Writer) WriteClassified(period string, items []domain.ClassifiedItem) (string, error) {
	return w.writeJSON(w.classifiedPath(period), classifiedDoc{Period: period, Items: items})
}

// WriteStats writes the period's stats summary document.
func (w *Writer) WriteStats(period string, stats Stats) (string, error) {
	return w.writeJSON(w.statsPath(period), stats)
}

type subThemesDoc struct {
	Period          string                  `json:"period"`
	ServiceClusters []domain.Cluster        `json:"service_clusters"`
	NotablePatterns []domain.NotablePattern `json:"notable_patterns"`
}

// WriteSubThemes writes the clustering + notable pattern results.
func (w *Writer) WriteSubThemes(period string, clusters []domain.Cluster, patterns []domain.NotablePattern) (string, error) {
	return w.writeJSON(w.subThemesPath(period), subThemesDoc{
		Period:          period,
		ServiceClusters: clusters,
		NotablePatterns: patterns,
	})
}

// WriteReviewCSV writes the human-review export.
func (w *Writer) WriteReviewCSV(period string, records []domain.ReviewRecord) (string, error) {
	path := w.reviewPath(period)
	if exists(path) {
		log.Printf("artifact exists, skipping path=%s", path)
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := review.WriteCSV(f, records); err != nil {
		return "", fmt.Errorf("writing review CSV: %w", err)
	}
	return path, nil
}

// WriteAccuracy writes the per-layer accuracy report. Unlike the other
// artifacts it overwrites: the report is always regenerated from the full
// ReviewRecord set so reruns stay reproducible.
func (w *Writer) WriteAccuracy(report domain.AccuracyReport) (string, error) {
	path := w.accuracyPath(report.Period)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling accuracy report: %w", err)
	}
	return path, os.WriteFile(path, data, 0644)
}

func (w *Writer) writeJSON(path string, v any) (string, error) {
	if exists(path) {
		log.Printf("artifact exists, skipping path=%s", path)
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", path, err)
	}
	return path, os.WriteFile(path, data, 0644)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
