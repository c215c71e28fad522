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
// This file implements the asynchronous indexing service on top of Gemini.
// Gemini answers a video prompt synchronously, so the indexer turns that into
// jobs: Submit queues a request and returns a job id at once, a fixed pool of
// workers runs the insight extraction chain for each job, and the outcome is
// kept in a job table that PollStatus and FetchInsights read. When a job
// leaves the pending state a JobNotification is published so the orchestrator
// can reconcile without waiting for the next sweep.
//
// Logic Flow:
//  1. Submit stores a pending job and pushes it on a bounded queue. A full
//     queue refuses the submission.
//  2. A worker builds a cor.Context holding the video file data (CtxIn), the
//     video id and the video name, and executes the configured command.
//  3. The chain's final *model.InsightBundle marks the job processed; any chain
//     error, or a missing bundle, marks it failed.
//  4. The worker publishes the outcome through the JobPublisher, if any.
//
// Structs:
//   - GeminiIndexer: Job table, queue and worker pool.
//   - PubSubJobPublisher: Publishes JobNotifications to a Pub/Sub topic.
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// Chain context keys set by the indexer next to the file data in CtxIn.
const (
	ParamVideoID   = "__VIDEO_ID__"
	ParamVideoName = "__VIDEO_NAME__"
)

var (
	ErrQueueFull   = errors.New("indexing queue is full")
	ErrNoCommand   = errors.New("indexer has no extraction command")
	ErrNoInsights  = errors.New("indexing chain produced no insights")
	ErrJobNotReady = errors.New("indexing job has not been processed")
)

// JobPublisher announces finished jobs.
type JobPublisher interface {
	PublishJob(ctx context.Context, n model.JobNotification) error
}

type indexJob struct {
	id       string
	req      model.IndexRequest
	status   model.JobStatus
	insights *model.InsightBundle
}

// GeminiIndexer runs insight extraction jobs on a worker pool.
type GeminiIndexer struct {
	mu        sync.Mutex
	jobs      map[string]*indexJob
	queue     chan *indexJob
	workers   int
	command   cor.Command
	publisher JobPublisher
	startOnce sync.Once
}

// NewGeminiIndexer creates an indexer with room for queueSize waiting jobs.
// Nothing runs until Start is called. publisher may be nil.
func NewGeminiIndexer(workers, queueSize int, publisher JobPublisher) *GeminiIndexer {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &GeminiIndexer{
		jobs:      make(map[string]*indexJob),
		queue:     make(chan *indexJob, queueSize),
		workers:   workers,
		publisher: publisher,
	}
}

// SetCommand attaches the extraction command. Like PubSubListener, the first
// command set wins.
func (g *GeminiIndexer) SetCommand(command cor.Command) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.command == nil {
		g.command = command
	}
}

// Start launches the workers. They stop when ctx is cancelled; jobs still
// queued at that point stay pending.
func (g *GeminiIndexer) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		slog.Info("starting indexing workers", "workers", g.workers, "queue", cap(g.queue))
		for i := 0; i < g.workers; i++ {
			go g.work(ctx)
		}
	})
}

// Submit queues req and returns the new job id.
func (g *GeminiIndexer) Submit(_ context.Context, req model.IndexRequest) (string, error) {
	job := &indexJob{id: uuid.NewString(), req: req, status: model.JobPending}
	g.mu.Lock()
	if g.command == nil {
		g.mu.Unlock()
		return "", ErrNoCommand
	}
	select {
	case g.queue <- job:
		g.jobs[job.id] = job
		g.mu.Unlock()
	default:
		g.mu.Unlock()
		return "", ErrQueueFull
	}
	slog.Debug("indexing job queued", "job_id", job.id, "video_id", req.VideoID)
	return job.id, nil
}

// PollStatus reports the job state. Unknown jobs, including deleted ones,
// report JobFailed.
func (g *GeminiIndexer) PollStatus(_ context.Context, jobID string) (model.JobStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	job, ok := g.jobs[jobID]
	if !ok {
		return model.JobFailed, nil
	}
	return job.status, nil
}

// FetchInsights returns a copy of the job's bundle.
func (g *GeminiIndexer) FetchInsights(_ context.Context, jobID string) (*model.InsightBundle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	job, ok := g.jobs[jobID]
	if !ok || job.status != model.JobProcessed {
		return nil, fmt.Errorf("%w: %s", ErrJobNotReady, jobID)
	}
	return job.insights.Clone(), nil
}

// DeleteJob forgets the job. A worker still running it drops its result.
func (g *GeminiIndexer) DeleteJob(_ context.Context, jobID string) error {
	g.mu.Lock()
	delete(g.jobs, jobID)
	g.mu.Unlock()
	return nil
}

func (g *GeminiIndexer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-g.queue:
			g.run(ctx, job)
		}
	}
}

func (g *GeminiIndexer) run(ctx context.Context, job *indexJob) {
	g.mu.Lock()
	_, live := g.jobs[job.id]
	command := g.command
	g.mu.Unlock()
	if !live {
		return
	}

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, NewFileData(job.req.Location, job.req.ContentType))
	chCtx.Add(ParamVideoID, job.req.VideoID)
	chCtx.Add(ParamVideoName, job.req.Name)
	command.Execute(chCtx)

	bundle, err := chainResult(chCtx)
	if err != nil && ctx.Err() != nil {
		// Shutting down; leave the job pending.
		return
	}

	status := model.JobProcessed
	if err != nil {
		status = model.JobFailed
		slog.Error("indexing job failed", "job_id", job.id, "video_id", job.req.VideoID, "error", err)
	}

	g.mu.Lock()
	if _, live = g.jobs[job.id]; live {
		job.status = status
		job.insights = bundle
	}
	g.mu.Unlock()
	if !live || g.publisher == nil {
		return
	}

	n := model.JobNotification{VideoID: job.req.VideoID, JobID: job.id, Status: status}
	if err := g.publisher.PublishJob(ctx, n); err != nil {
		// The sweep picks the job up anyway.
		slog.Warn("failed to publish job notification", "job_id", job.id, "error", err)
	}
}

// chainResult reads the bundle a command or chain left behind. A single
// command leaves it in CtxOut, a chain promotes it to CtxIn.
func chainResult(chCtx cor.Context) (*model.InsightBundle, error) {
	if err := chCtx.Err(); err != nil {
		return nil, err
	}
	for _, key := range []string{cor.CtxOut, cor.CtxIn} {
		if b, ok := chCtx.Get(key).(*model.InsightBundle); ok && b != nil {
			return b, nil
		}
	}
	return nil, ErrNoInsights
}

// PubSubJobPublisher publishes job notifications as JSON.
type PubSubJobPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubJobPublisher(topic *pubsub.Topic) *PubSubJobPublisher {
	return &PubSubJobPublisher{topic: topic}
}

// PublishJob blocks until the server has accepted the message.
func (p *PubSubJobPublisher) PublishJob(ctx context.Context, n model.JobNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"video_id": n.VideoID, "status": string(n.Status)},
	})
	_, err = res.Get(ctx)
	return err
}
