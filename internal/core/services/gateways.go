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

// Package services implements the video lifecycle orchestrator on top of three
// external services. This file declares the contracts those services must
// satisfy; the Google Cloud implementations live in the cloud package and
// in-memory fakes live in the testutil package.
//
// Interfaces:
//   - ObjectStore: raw video bytes (Cloud Storage).
//   - Indexer: asynchronous AI analysis jobs (Gemini).
//   - Analytics: the warehouse holding video rows and insight rows (BigQuery).
//   - JobDeleter, URLSigner: optional capabilities discovered by type assertion.
package services

import (
	"context"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// ObjectStore holds the raw video bytes addressed by name.
type ObjectStore interface {
	// Put writes data under name and returns its location, e.g. "gs://bucket/name".
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Delete removes the object at location and reports whether it existed.
	Delete(ctx context.Context, location string) (bool, error)
	// List returns the location of every stored object.
	List(ctx context.Context) ([]string, error)
}

// URLSigner is implemented by object stores that can hand out time-limited
// read URLs.
type URLSigner interface {
	SignedURL(ctx context.Context, location string, expires time.Duration) (string, error)
}

// Indexer is the AI analysis service. Submit returns immediately; the job
// completes in the background and is observed through PollStatus.
type Indexer interface {
	Submit(ctx context.Context, req model.IndexRequest) (string, error)
	PollStatus(ctx context.Context, jobID string) (model.JobStatus, error)
	// FetchInsights is only valid once PollStatus reports JobProcessed and may
	// be called any number of times.
	FetchInsights(ctx context.Context, jobID string) (*model.InsightBundle, error)
}

// JobDeleter is implemented by indexers that can discard a job and its results.
type JobDeleter interface {
	DeleteJob(ctx context.Context, jobID string) error
}

// Analytics is the warehouse. Upserts are keyed by video id, last write wins.
type Analytics interface {
	UpsertVideo(ctx context.Context, rec *model.VideoRecord) error
	UpsertInsights(ctx context.Context, videoID string, bundle *model.InsightBundle) error
	Aggregate(ctx context.Context, topN int) (*model.Summary, error)
	DeleteVideo(ctx context.Context, videoID string) error
	// GetInsights returns a nil bundle and a nil error when no row exists.
	GetInsights(ctx context.Context, videoID string) (*model.InsightBundle, error)
}
