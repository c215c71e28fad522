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

// Package services implements the video lifecycle orchestrator. This file
// provides VideoService, the facade the HTTP layer and the background
// drivers talk to. It owns no state of its own; every call is delegated to
// one of the coordinators sharing the same catalog.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// OverviewTopN is the length of the keyword and topic tables in the
// condensed insights view.
const OverviewTopN = 5

// Options configures a VideoService.
type Options struct {
	Indexing        IndexingOptions
	TopN            int           // Length of the aggregate keyword and topic tables.
	PreferWarehouse bool          // Ask the warehouse for aggregates before folding the catalog.
	SignedURLTTL    time.Duration // Lifetime of streaming URLs.
}

// VideoService is the caller-facing entry point of the orchestrator.
type VideoService struct {
	catalog  *catalog.Catalog
	store    ObjectStore
	uploads  *UploadCoordinator
	indexing *IndexingOrchestrator
	summary  *SummaryProjector
	deletes  *DeleteCoordinator
	urlTTL   time.Duration
}

// NewVideoService wires the coordinators over one catalog.
func NewVideoService(cat *catalog.Catalog, store ObjectStore, indexer Indexer, analytics Analytics, opts Options) *VideoService {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = 15 * time.Minute
	}
	uploads := NewUploadCoordinator(cat, store, analytics)
	indexing := NewIndexingOrchestrator(cat, indexer, analytics, opts.Indexing)
	// Both write video rows; they must share the per-video write order.
	uploads.warehouse = indexing.warehouse
	return &VideoService{
		catalog:  cat,
		store:    store,
		uploads:  uploads,
		indexing: indexing,
		summary:  NewSummaryProjector(cat, analytics, opts.TopN, opts.PreferWarehouse),
		deletes:  NewDeleteCoordinator(cat, store, indexer, analytics),
		urlTTL:   opts.SignedURLTTL,
	}
}

// Upload stores a new video. See UploadCoordinator.Upload.
func (s *VideoService) Upload(ctx context.Context, data []byte, filename, contentType string) (*model.VideoRecord, error) {
	return s.uploads.Upload(ctx, UploadRequest{Filename: filename, Data: data, ContentType: contentType})
}

// SubmitIndexing starts indexing a video. See IndexingOrchestrator.Submit.
func (s *VideoService) SubmitIndexing(ctx context.Context, videoID string) (string, error) {
	return s.indexing.Submit(ctx, videoID)
}

// GetInsights returns the insights of an indexed video.
func (s *VideoService) GetInsights(ctx context.Context, videoID string) (*model.InsightBundle, error) {
	return s.indexing.GetInsights(ctx, videoID)
}

// Aggregate returns the catalog summary.
func (s *VideoService) Aggregate(ctx context.Context) *model.Summary {
	return s.summary.Aggregate(ctx)
}

// InsightsOverview returns the condensed summary with the top five keywords
// and topics.
func (s *VideoService) InsightsOverview(ctx context.Context) *model.InsightsOverview {
	return s.summary.Aggregate(ctx).Overview(OverviewTopN)
}

// Delete removes a video. See DeleteCoordinator.Delete.
func (s *VideoService) Delete(ctx context.Context, videoID string) (bool, error) {
	return s.deletes.Delete(ctx, videoID)
}

// Get returns one video record.
func (s *VideoService) Get(_ context.Context, videoID string) (*model.VideoRecord, error) {
	e, ok := s.catalog.Get(videoID)
	if !ok {
		return nil, ErrVideoNotFound
	}
	return e.Record, nil
}

// List returns the video records in upload order, optionally filtered by
// status. An empty status returns everything.
func (s *VideoService) List(_ context.Context, status model.VideoStatus) []*model.VideoRecord {
	out := make([]*model.VideoRecord, 0)
	for _, e := range s.catalog.Snapshot() {
		if status != "" && e.Record.Status != status {
			continue
		}
		out = append(out, e.Record)
	}
	return out
}

// StreamingURL returns a time-limited read URL for the video's object.
func (s *VideoService) StreamingURL(ctx context.Context, videoID string) (string, error) {
	e, ok := s.catalog.Get(videoID)
	if !ok {
		return "", ErrVideoNotFound
	}
	signer, ok := s.store.(URLSigner)
	if !ok {
		return "", ErrStreamingUnsupported
	}
	url, err := signer.SignedURL(ctx, e.Record.ObjectLocation, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", e.Record.ObjectLocation, err)
	}
	return url, nil
}

// Reconcile polls the current job of a video once.
func (s *VideoService) Reconcile(ctx context.Context, videoID string) error {
	return s.indexing.Reconcile(ctx, videoID)
}

// ReconcileJob handles a completion notification for a specific job.
func (s *VideoService) ReconcileJob(ctx context.Context, videoID, jobID string) error {
	return s.indexing.ReconcileJob(ctx, videoID, jobID)
}

// Sweep reconciles every Indexing video.
func (s *VideoService) Sweep(ctx context.Context) (int, error) {
	return s.indexing.Sweep(ctx)
}

// RepairWarehouse re-attempts failed warehouse writes.
func (s *VideoService) RepairWarehouse(ctx context.Context) (int, error) {
	return s.indexing.RepairWarehouse(ctx)
}
