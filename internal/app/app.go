package app

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gayunlee/letter-post-weekly-report/internal/artifacts"
	"github.com/gayunlee/letter-post-weekly-report/internal/classify"
	"github.com/gayunlee/letter-post-weekly-report/internal/cluster"
	"github.com/gayunlee/letter-post-weekly-report/internal/confidence"
	"github.com/gayunlee/letter-post-weekly-report/internal/config"
	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
	"github.com/gayunlee/letter-post-weekly-report/internal/llm"
	"github.com/gayunlee/letter-post-weekly-report/internal/notify"
	"github.com/gayunlee/letter-post-weekly-report/internal/review"
	"github.com/gayunlee/letter-post-weekly-report/internal/storage"
	"github.com/gayunlee/letter-post-weekly-report/internal/tags"
	"github.com/gayunlee/letter-post-weekly-report/internal/warehouse"
)

// Main wires the collaborators and runs either a one-shot period pass, a
// review import, or the weekly scheduler.
func Main() {
	periodFlag := flag.String("period", "", "period to process (Monday, YYYY-MM-DD); defaults to the current week")
	importFlag := flag.String("import-review", "", "path to a reviewed CSV to reconcile into an accuracy report")
	serveFlag := flag.Bool("serve", false, "run the weekly scheduler instead of a one-shot pass")
	flag.Parse()

	cfg := config.LoadConfig()
	appliedTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Threshold=%.2f Fraction=%.2f Seed=%d DetailPolicy=%s Workers=%d Timezone=%s HTTPTimeout=%s",
		cfg.ConfidenceThreshold, cfg.SampleFraction, cfg.SampleSeed,
		cfg.DetailPolicy, cfg.Workers, cfg.Timezone, appliedTimeout,
	)

	db, err := storage.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	period := *periodFlag
	if period == "" {
		period = domain.PeriodFor(time.Now().In(cfg.Location))
	}

	notifier := notify.NewNotifier(cfg.SlackBotToken, cfg.SlackChannelID)

	if *importFlag != "" {
		if err := runImport(cfg, db, period, *importFlag); err != nil {
			log.Fatalf("Review import error: %v", err)
		}
		return
	}

	if *serveFlag {
		if cfg.Schedule == "" {
			log.Fatalf("Required config 'schedule' is not set for -serve mode")
		}
		startScheduler(cfg, db, notifier)
		return
	}

	if err := runOnce(cfg, db, notifier, period); err != nil {
		log.Fatalf("Run error: %v", err)
	}
}

func runOnce(cfg config.Config, db *sql.DB, notifier *notify.Notifier, period string) error {
	pipeline := buildPipeline(cfg, db, period)
	summary, err := pipeline.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(summary)
	if err := notifier.Post(context.Background(), "Weekly VOC classification finished: "+summary.String()); err != nil {
		// Notification failure should not fail an otherwise complete run.
		log.Printf("slack notify err=%v", err)
	}
	return nil
}

func runImport(cfg config.Config, db *sql.DB, period, csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening reviewed CSV: %w", err)
	}
	defer f.Close()

	records, rowErrs, err := review.ParseReviewedCSV(f)
	if err != nil {
		return err
	}
	pipeline := buildPipeline(cfg, db, period)
	report, err := pipeline.ImportReview(records, rowErrs)
	if err != nil {
		return err
	}
	fmt.Printf("accuracy period=%s topic=%.3f sentiment=%.3f tags=%.3f jaccard=%.3f\n",
		report.Period, report.Topic.Accuracy, report.Sentiment.Accuracy,
		report.CategoryTag.Accuracy, report.CategoryTag.MeanJaccard)
	return nil
}

func startScheduler(cfg config.Config, db *sql.DB, notifier *notify.Notifier) {
	c := cron.New(cron.WithLocation(cfg.Location))
	_, err := c.AddFunc(cfg.Schedule, func() {
		period := domain.PeriodFor(time.Now().In(cfg.Location))
		log.Printf("scheduled run starting period=%s", period)
		if err := runOnce(cfg, db, notifier, period); err != nil {
			log.Printf("scheduled run period=%s err=%v", period, err)
		}
	})
	if err != nil {
		log.Fatalf("invalid schedule '%s': %v", cfg.Schedule, err)
	}
	log.Printf("Scheduler started schedule=%q timezone=%s", cfg.Schedule, cfg.Timezone)
	c.Run()
}

func buildPipeline(cfg config.Config, db *sql.DB, period string) *Pipeline {
	store := storage.NewStore(db, period)
	completer := llm.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.LLMModel, 300)

	var detailPolicy confidence.DetailPolicy
	if cfg.DetailPolicy == "verifier" {
		detailPolicy = confidence.VerifierPolicy{LLM: completer}
	} else {
		detailPolicy = confidence.ConstantPolicy{Value: 1.0}
	}

	return &Pipeline{
		Source: &warehouse.FileSource{Path: cfg.WarehousePath},
		Classifier: &classify.Classifier{
			Topic:      &classify.HTTPModel{Endpoint: cfg.TopicModelURL, Axis: "topic"},
			Sentiment:  &classify.HTTPModel{Endpoint: cfg.SentimentModelURL, Axis: "sentiment"},
			Store:      store,
			Workers:    cfg.Workers,
			MaxRetries: cfg.LLMMaxRetries,
		},
		Extractor: &tags.Extractor{
			LLM:        completer,
			Store:      store,
			Workers:    cfg.Workers,
			MaxRetries: cfg.LLMMaxRetries,
		},
		Aggregator: &confidence.Aggregator{Detail: detailPolicy},
		Clusterer: &cluster.Clusterer{
			Embedder:   &cluster.OpenAIEmbedder{APIKey: cfg.OpenAIAPIKey, Model: cfg.EmbeddingModel},
			LLM:        completer,
			Seed:       cfg.SampleSeed,
			MaxRetries: cfg.LLMMaxRetries,
		},
		Store:  store,
		Writer: &artifacts.Writer{BaseDir: cfg.DataDir},
		Sample: review.SampleParams{
			Threshold: cfg.ConfidenceThreshold,
			Fraction:  cfg.SampleFraction,
			Seed:      cfg.SampleSeed,
		},
		Location: cfg.Location,
	}
}
