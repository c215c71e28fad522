// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the Google Cloud services behind the video catalog: the video bucket,
// the BigQuery warehouse, the Gemini models, Pub/Sub and the Redis catalog
// store.
//
// Structs:
//   - BigQueryDataSource: Dataset and tables of the warehouse.
//   - PromptTemplates: Text templates for prompts sent to GenAI models.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model (LLM).
//   - TopicSubscription: Configuration for a single Pub/Sub topic subscription.
//   - Topic: Configuration for a Pub/Sub topic the application publishes to.
//   - Storage: Configuration for the Cloud Storage bucket holding the videos.
//   - Indexing: Tuning for the indexing job pool and the reconciliation sweep.
//   - CatalogStore: Redis connection used to make the catalog durable.
//   - Logging: Log file location and rotation.
//   - Telemetry: Trace sampling and metric export period.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object with empty maps.
//   - Validate: Checks required settings once all files have been loaded.
package cloud

import (
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"
)

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// The catalog indexes whatever users upload, so nothing is blocked; a blocked
// response would only turn into a failed indexing job.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the warehouse.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset" validate:"required"`        // The name of the BigQuery dataset.
	VideosTable   string `toml:"videos_table" validate:"required"`   // One row per video record.
	InsightsTable string `toml:"insights_table" validate:"required"` // One row per indexed video.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	InsightsPrompt string `toml:"insights" validate:"required"` // The template for extracting video insights.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model" validate:"required"` // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"`       // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`               // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`                     // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`                     // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`                // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`             // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`                // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name" validate:"required"` // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`        // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`       // The timeout for the subscription in seconds.
}

// Topic is a Pub/Sub topic the application publishes to.
type Topic struct {
	Name string `toml:"name" validate:"required"`
}

// Storage represents the configuration for the video bucket.
type Storage struct {
	VideoBucket      string `toml:"video_bucket" validate:"required"` // Bucket holding "<video id>/<file name>" objects.
	SignedURLMinutes int    `toml:"signed_url_minutes"`               // Lifetime of streaming URLs.
}

// SignedURLTTL returns the streaming URL lifetime, 15 minutes by default.
func (s Storage) SignedURLTTL() time.Duration {
	if s.SignedURLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.SignedURLMinutes) * time.Minute
}

// Indexing tunes the indexing job pool and the reconciliation sweep.
type Indexing struct {
	AgentModel               string `toml:"agent_model" validate:"required"` // Key into AgentModels used for insight extraction.
	SweepIntervalSeconds     int    `toml:"sweep_interval_seconds"`          // How often Indexing videos are polled.
	PollTimeoutSeconds       int    `toml:"poll_timeout_seconds"`            // Upper bound for a single status poll.
	QueueSize                int    `toml:"queue_size"`                      // Jobs waiting for a worker before Submit is refused.
	SweepWorkers             int    `toml:"sweep_workers"`                   // Videos reconciled concurrently by one sweep.
	PreferWarehouseAggregate bool   `toml:"prefer_warehouse_aggregate"`      // Ask BigQuery for aggregates before folding the catalog.
	TopN                     int    `toml:"top_n"`                           // Length of the keyword and topic tables.
}

// SweepInterval returns the sweep period, 30 seconds by default.
func (i Indexing) SweepInterval() time.Duration {
	if i.SweepIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(i.SweepIntervalSeconds) * time.Second
}

// PollTimeout returns the poll bound, 10 seconds by default.
func (i Indexing) PollTimeout() time.Duration {
	if i.PollTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.PollTimeoutSeconds) * time.Second
}

// CatalogStore is the Redis connection backing the catalog. An empty address
// keeps the catalog in memory only.
type CatalogStore struct {
	RedisAddr     string `toml:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db" validate:"gte=0"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Logging configures the rotated log file.
type Logging struct {
	File       string `toml:"file"`         // Empty disables the file sink.
	MaxSizeMB  int    `toml:"max_size_mb"`  // Size at which the file is rotated.
	MaxBackups int    `toml:"max_backups"`  // Rotated files kept.
	MaxAgeDays int    `toml:"max_age_days"` // Age after which rotated files are removed.
	Compress   bool   `toml:"compress"`     // Gzip rotated files.
	Level      string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Telemetry tunes trace sampling and metric export.
type Telemetry struct {
	TraceSampleRatio      float64 `toml:"trace_sample_ratio" validate:"gte=0,lte=1"` // Share of root spans sampled; 0 samples everything.
	MetricIntervalSeconds int     `toml:"metric_interval_seconds" validate:"gte=0"`  // Metric export period.
}

// MetricInterval returns the export period, 60 seconds by default.
func (t Telemetry) MetricInterval() time.Duration {
	if t.MetricIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(t.MetricIntervalSeconds) * time.Second
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name" validate:"required"`              // The name of the application.
		GoogleProjectId           string `toml:"google_project_id" validate:"required"` // The Google Cloud project ID.
		GoogleLocation            string `toml:"location" validate:"required"`          // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size" validate:"gte=0"`     // Workers running Gemini indexing jobs.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`          // The service account email used for signing GCS URLs.
		ListenAddress             string `toml:"listen_address"`                        // HTTP listen address, ":8080" by default.
	} `toml:"application"`
	Storage            Storage            `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource `toml:"big_query_data_source"` // BigQuery data source configuration.
	PromptTemplates    PromptTemplates    `toml:"prompt_templates"`      // Prompt templates configuration.
	Indexing           Indexing           `toml:"indexing"`              // Indexing and sweep tuning.
	CatalogStore       CatalogStore       `toml:"catalog"`               // Redis catalog store.
	Logging            Logging            `toml:"logging"`               // Log file and rotation.
	Telemetry          Telemetry          `toml:"telemetry"`             // Trace sampling and metric export.

	// Pub/Sub subscriptions keyed by a logical name (e.g., "JobNotifications").
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions" validate:"dive"`

	// Pub/Sub topics keyed by a logical name.
	Topics map[string]Topic `toml:"topics" validate:"dive"`

	// Vertex AI LLMs keyed by a logical name (e.g., "creative-flash").
	AgentModels map[string]VertexAiLLMModel `toml:"agent_models" validate:"dive"`
}

// NewConfig is a constructor function that creates a new, initialized Config instance.
// It's important to initialize the maps within the struct to avoid nil pointer panics
// when the configuration loader tries to populate them.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		Topics:             make(map[string]Topic),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

// Validate checks the `validate` tags of the whole configuration and that the
// indexing model refers to a configured agent model.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, ok := c.AgentModels[c.Indexing.AgentModel]; !ok {
		return &MissingModelError{Name: c.Indexing.AgentModel}
	}
	return nil
}

// MissingModelError reports an indexing model that is not in agent_models.
type MissingModelError struct {
	Name string
}

func (e *MissingModelError) Error() string {
	return "indexing.agent_model " + e.Name + " is not configured under agent_models"
}
