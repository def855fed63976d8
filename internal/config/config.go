package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TopicModelURL     string `yaml:"topic_model_url"`
	SentimentModelURL string `yaml:"sentiment_model_url"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`
	LLMMaxRetries   int    `yaml:"llm_max_retries"`

	OpenAIAPIKey   string `yaml:"openai_api_key"`
	EmbeddingModel string `yaml:"embedding_model"`

	DBPath        string `yaml:"db_path"`
	DataDir       string `yaml:"data_dir"`
	WarehousePath string `yaml:"warehouse_path"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	SampleFraction      float64 `yaml:"sample_fraction"`
	SampleSeed          int64   `yaml:"sample_seed"`
	DetailPolicy        string  `yaml:"detail_confidence_policy"`
	Workers             int     `yaml:"workers"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	Location *time.Location `yaml:"-"`
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults, and fails fast on anything missing or out of range. A
// configuration failure must abort before any item is processed.
func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.TopicModelURL, "TOPIC_MODEL_URL")
	envOverride(&cfg.SentimentModelURL, "SENTIMENT_MODEL_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMMaxRetries, "LLM_MAX_RETRIES")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.WarehousePath, "WAREHOUSE_PATH")
	envOverrideFloat(&cfg.ConfidenceThreshold, "CONFIDENCE_THRESHOLD")
	envOverrideFloat(&cfg.SampleFraction, "SAMPLE_FRACTION")
	envOverrideInt64(&cfg.SampleSeed, "SAMPLE_SEED")
	envOverride(&cfg.DetailPolicy, "DETAIL_CONFIDENCE_POLICY")
	envOverrideInt(&cfg.Workers, "WORKERS")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	// Defaults
	if cfg.LLMMaxRetries == 0 {
		cfg.LLMMaxRetries = 2
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./vocweekly.db"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.70
	}
	if cfg.SampleFraction == 0 {
		cfg.SampleFraction = 0.20
	}
	if cfg.SampleSeed == 0 {
		cfg.SampleSeed = 42
	}
	if cfg.DetailPolicy == "" {
		cfg.DetailPolicy = "constant"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 5
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"topic_model_url":     cfg.TopicModelURL,
		"sentiment_model_url": cfg.SentimentModelURL,
		"anthropic_api_key":   cfg.AnthropicAPIKey,
		"openai_api_key":      cfg.OpenAIAPIKey,
		"warehouse_path":      cfg.WarehousePath,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		log.Fatalf("invalid confidence_threshold '%f': must be between 0 and 1", cfg.ConfidenceThreshold)
	}
	if cfg.SampleFraction < 0 || cfg.SampleFraction > 1 {
		log.Fatalf("invalid sample_fraction '%f': must be between 0 and 1", cfg.SampleFraction)
	}
	if cfg.Workers < 1 {
		log.Fatalf("invalid workers '%d': must be >= 1", cfg.Workers)
	}
	if cfg.LLMMaxRetries < 0 {
		log.Fatalf("invalid llm_max_retries '%d': must be >= 0", cfg.LLMMaxRetries)
	}
	switch cfg.DetailPolicy {
	case "constant", "verifier":
	default:
		log.Fatalf("detail_confidence_policy must be 'constant' or 'verifier', got '%s'", cfg.DetailPolicy)
	}

	if cfg.Timezone == "Local" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
