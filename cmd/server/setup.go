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
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/workflow"
)

// StateManager holds the components shared by the HTTP routes and the
// background drivers.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	catalog      *catalog.Catalog
	indexer      *cloud.GeminiIndexer
	videoService *services.VideoService
	sweepDone    <-chan struct{}
}

var state = &StateManager{}

// SetupOS defaults the configuration directory and runtime when the
// environment does not name them.
func SetupOS() error {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads and validates the configuration.
func GetConfig() (*cloud.Config, error) {
	if state.config != nil {
		return state.config, nil
	}
	if err := SetupOS(); err != nil {
		return nil, fmt.Errorf("failed to set up configuration environment: %w", err)
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	state.config = config
	return config, nil
}

// newCatalog restores the catalog from Redis when a store is configured.
func newCatalog(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients) (*catalog.Catalog, error) {
	if clients.RedisClient == nil {
		slog.Warn("no catalog store configured, the catalog is kept in memory only")
		return catalog.New(nil), nil
	}
	prefix := config.CatalogStore.KeyPrefix
	if prefix == "" {
		prefix = cloud.DefaultCatalogKeyPrefix
	}
	store := cloud.NewRedisCatalogStore(clients.RedisClient, prefix)
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("catalog store unreachable: %w", err)
	}
	cat := catalog.New(store)
	n, err := cat.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore catalog: %w", err)
	}
	slog.Info("catalog restored", "key", store.Key(), "videos", n)
	return cat, nil
}

// InitState creates the clients and gateways, starts the indexing workers,
// the job notification listener and the reconciliation sweep. Everything
// background stops when ctx is cancelled.
func InitState(ctx context.Context, config *cloud.Config) error {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = clients

	cat, err := newCatalog(ctx, config, clients)
	if err != nil {
		return err
	}
	state.catalog = cat

	var publisher cloud.JobPublisher
	if topic, ok := clients.Topics[JobNotifications]; ok {
		publisher = cloud.NewPubSubJobPublisher(topic)
	}
	indexer := cloud.NewGeminiIndexer(config.Application.ThreadPoolSize, config.Indexing.QueueSize, publisher)
	extraction, err := workflow.NewInsightsExtractionWorkflow(config, clients.AgentModels[config.Indexing.AgentModel])
	if err != nil {
		return err
	}
	indexer.SetCommand(extraction)
	indexer.Start(ctx)
	state.indexer = indexer

	objects := cloud.NewGCSObjectStore(
		clients.StorageClient,
		config.Storage.VideoBucket,
		clients.IAMClient,
		config.Application.SignerServiceAccountEmail)
	warehouse := cloud.NewBigQueryAnalytics(clients.BigQueryClient, config.BigQueryDataSource)

	state.videoService = services.NewVideoService(cat, objects, indexer, warehouse, services.Options{
		Indexing: services.IndexingOptions{
			PollTimeout:  config.Indexing.PollTimeout(),
			SweepWorkers: config.Indexing.SweepWorkers,
		},
		TopN:            config.Indexing.TopN,
		PreferWarehouse: config.Indexing.PreferWarehouseAggregate,
		SignedURLTTL:    config.Storage.SignedURLTTL(),
	})

	SetupListeners(ctx, clients, state.videoService)

	sweep := workflow.NewReconciliationSweepWorkflow(state.videoService, config.Indexing.SweepInterval())
	state.sweepDone = sweep.StartTimer(ctx)
	return nil
}
