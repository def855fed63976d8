package warehouse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// Source is the warehouse query collaborator: a date range in, a finite
// ordered sequence of raw records out, one-shot per call.
type Source interface {
	Fetch(ctx context.Context, from, to time.Time) ([]domain.RawRecord, error)
}

// FileSource reads raw records from a JSONL export, one record per line:
//
//	{"source_type":"letter","source_pk":"abc123","text":"...","metadata":{"created_at":"2026-08-24T10:00:00Z"}}
//
// Records carrying a created_at outside the requested range are filtered out;
// records without one are kept.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context, from, to time.Time) ([]domain.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse export: %w", err)
	}
	defer f.Close()

	var records []domain.RawRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec domain.RawRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("warehouse export line %d: %w", line, err)
		}
		if rec.SourceType != domain.SourceLetter && rec.SourceType != domain.SourcePost {
			return nil, fmt.Errorf("warehouse export line %d: unknown source_type %q", line, rec.SourceType)
		}
		if !inRange(rec, from, to) {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading warehouse export: %w", err)
	}
	log.Printf("warehouse fetched records=%d path=%s range=%s..%s",
		len(records), s.Path, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return records, nil
}

func inRange(rec domain.RawRecord, from, to time.Time) bool {
	raw, ok := rec.Metadata["created_at"]
	if !ok {
		return true
	}
	createdAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return !createdAt.Before(from) && createdAt.Before(to)
}
