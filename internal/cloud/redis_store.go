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
// This file makes the catalog durable across restarts. Every committed entry
// is written as JSON into a single Redis hash keyed by video id; on startup
// the whole hash is read back by catalog.Restore.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
)

// DefaultCatalogKeyPrefix is used when the configuration leaves key_prefix empty.
const DefaultCatalogKeyPrefix = "video-catalog:"

// NewRedisClient connects to the configured Redis server.
func NewRedisClient(cfg CatalogStore) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// RedisCatalogStore implements catalog.Store on a Redis hash.
type RedisCatalogStore struct {
	client *redis.Client
	key    string
}

func NewRedisCatalogStore(client *redis.Client, prefix string) *RedisCatalogStore {
	if prefix == "" {
		prefix = DefaultCatalogKeyPrefix
	}
	return &RedisCatalogStore{client: client, key: prefix + "entries"}
}

// Key is the name of the hash holding the entries.
func (s *RedisCatalogStore) Key() string {
	return s.key
}

func (s *RedisCatalogStore) Save(ctx context.Context, e *catalog.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, e.Record.ID, data).Err()
}

func (s *RedisCatalogStore) Delete(ctx context.Context, id string) error {
	return s.client.HDel(ctx, s.key, id).Err()
}

// LoadAll reads every entry. Entries that no longer decode are skipped.
func (s *RedisCatalogStore) LoadAll(ctx context.Context) ([]*catalog.Entry, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	out := make([]*catalog.Entry, 0, len(values))
	for id, raw := range values {
		e := &catalog.Entry{}
		if err := json.Unmarshal([]byte(raw), e); err != nil {
			slog.Warn("skipping undecodable catalog entry", "video_id", id, "error", err)
			continue
		}
		if e.Record == nil || e.Record.ID != id {
			slog.Warn("skipping catalog entry with a mismatched record", "video_id", id)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Ping checks the connection.
func (s *RedisCatalogStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
