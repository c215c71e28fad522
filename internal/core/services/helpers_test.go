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

// Package services_test exercises the orchestrator end to end against the
// in-memory gateways from the testutil package.
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-catalog/internal/testutil"
	"github.com/stretchr/testify/require"
)

// harness bundles a service with the fakes behind it.
type harness struct {
	catalog   *catalog.Catalog
	store     *test.ObjectStore
	indexer   *test.Indexer
	analytics *test.Analytics
	svc       *services.VideoService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		catalog:   catalog.New(nil),
		store:     test.NewObjectStore(),
		indexer:   test.NewIndexer(),
		analytics: test.NewAnalytics(),
	}
	h.svc = services.NewVideoService(h.catalog, h.store, h.indexer, h.analytics, services.Options{
		Indexing: services.IndexingOptions{PollTimeout: 200 * time.Millisecond, SweepWorkers: 3},
	})
	return h
}

func (h *harness) upload(t *testing.T, name string) *model.VideoRecord {
	t.Helper()
	rec, err := h.svc.Upload(context.Background(), []byte("not really a video"), name, "video/mp4")
	require.NoError(t, err)
	return rec
}

func (h *harness) status(t *testing.T, id string) model.VideoStatus {
	t.Helper()
	rec, err := h.svc.Get(context.Background(), id)
	require.NoError(t, err)
	return rec.Status
}

func bundle(keywords ...string) *model.InsightBundle {
	b := model.NewInsightBundle()
	b.Keywords = append(b.Keywords, keywords...)
	return b
}
