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
// Package cloud provides components for interacting with Google Cloud services.
// This file initializes and holds every client the catalog needs. It acts as
// a dependency injection container: one ServiceClients value is built at
// startup and handed to the gateways, workflows and listeners.
//
// Logic Flow:
//  1. NewCloudServiceClients is called at application startup with the loaded Config.
//  2. It creates the Storage, Pub/Sub, GenAI, BigQuery and IAM clients, and a
//     Redis client when a catalog store address is configured.
//  3. It builds the Pub/Sub listeners, the publish topics and the rate limited
//     agent models named in the configuration, keyed by their logical names.
//
// Structs:
//   - ServiceClients: The container of clients and configured wrappers.
//
// Functions:
//   - NewCloudServiceClients: Factory creating every client from the Config.
//   - NewAgentModel: Builds one rate limited Gemini model from its settings.
//   - Close: Releases every client.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/go-redis/redis/v8"
	"google.golang.org/genai"
)

// ServiceClients is the central container for the clients that talk to
// external services.
type ServiceClients struct {
	StorageClient   *storage.Client                   // Video bucket.
	PubsubClient    *pubsub.Client                    // Job notifications.
	GenAIClient     *genai.Client                     // Gemini on Vertex AI.
	BigQueryClient  *bigquery.Client                  // Analytics warehouse.
	IAMClient       *credentials.IamCredentialsClient // Signs streaming URLs.
	RedisClient     *redis.Client                     // Catalog store; nil keeps the catalog in memory.
	PubSubListeners map[string]*PubSubListener        // Keyed by the topic_subscriptions name.
	Topics          map[string]*pubsub.Topic          // Keyed by the topics name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Close releases every client. Errors are ignored; this runs at shutdown.
func (c *ServiceClients) Close() {
	for _, t := range c.Topics {
		t.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
}

// NewAgentModel applies the model settings to a generation config and wraps
// the models handle with rate limiting.
func NewAgentModel(models ContentGenerator, values VertexAiLLMModel) *QuotaAwareGenerativeAIModel {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.SystemInstructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return NewQuotaAwareModel(config, values.Model, models, values.RateLimit)
}

// NewCloudServiceClients initializes every client named by config.
//
// Inputs:
//   - ctx: The root context of the application.
//   - config: The loaded and validated configuration.
//
// Outputs:
//   - *ServiceClients: The initialized clients.
//   - error: The first client that failed to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	slog.Info("creating genai client",
		"project", config.Application.GoogleProjectId,
		"location", config.Application.GoogleLocation)
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	iamClient, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	var rc *redis.Client
	if config.CatalogStore.RedisAddr != "" {
		rc = NewRedisClient(config.CatalogStore)
	}

	// Commands are attached once the workflows are built.
	subscriptions := make(map[string]*PubSubListener)
	for key, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[key] = listener
	}

	topics := make(map[string]*pubsub.Topic)
	for key, values := range config.Topics {
		topics[key] = pc.Topic(values.Name)
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for key, values := range config.AgentModels {
		slog.Debug("configuring agent model", "key", key, "model", values.Model)
		agentModels[key] = NewAgentModel(gc.Models, values)
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		IAMClient:       iamClient,
		RedisClient:     rc,
		PubSubListeners: subscriptions,
		Topics:          topics,
		AgentModels:     agentModels,
	}, nil
}
