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

// Package test provides utility functions and in-memory gateways used by the
// test suites. The fakes in this file stand in for Cloud Storage, the Gemini
// indexer and BigQuery. Each one is safe for concurrent use, counts its calls
// and can be told to fail.
package test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// ErrInjected is returned by a fake when a failure has been switched on.
var ErrInjected = errors.New("injected failure")

// ObjectStore is an in-memory object store with "mem://" locations.
type ObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	FailPut    bool
	FailDelete bool
}

// NewObjectStore creates an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func (s *ObjectStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut {
		return "", ErrInjected
	}
	loc := "mem://videos/" + name
	s.objects[loc] = append([]byte(nil), data...)
	return loc, nil
}

func (s *ObjectStore) Delete(_ context.Context, location string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return false, ErrInjected
	}
	_, ok := s.objects[location]
	delete(s.objects, location)
	return ok, nil
}

func (s *ObjectStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// SignedURL makes the fake a URL signer.
func (s *ObjectStore) SignedURL(_ context.Context, location string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s?ttl=%d", strings.TrimPrefix(location, "mem://"), int(expires.Seconds())), nil
}

// Has reports whether an object is stored at location.
func (s *ObjectStore) Has(location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[location]
	return ok
}

// Job is the state of one fake indexing job.
type Job struct {
	VideoID  string
	Status   model.JobStatus
	Insights *model.InsightBundle
}

// Indexer is a scriptable indexing service. Jobs start Pending and move only
// when a test calls Complete or Fail.
type Indexer struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	order       []string
	submits     int
	fetches     int
	deleted     []string
	FailSubmit  bool
	FailPoll    bool
	FailFetch   bool
	PollDelay   time.Duration // Blocks PollStatus, honouring the context.
	SubmitDelay time.Duration
}

// NewIndexer creates an Indexer with no jobs.
func NewIndexer() *Indexer {
	return &Indexer{jobs: make(map[string]*Job)}
}

func (x *Indexer) Submit(ctx context.Context, req model.IndexRequest) (string, error) {
	if x.SubmitDelay > 0 {
		select {
		case <-time.After(x.SubmitDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.submits++
	if x.FailSubmit {
		return "", ErrInjected
	}
	id := uuid.NewString()
	x.jobs[id] = &Job{VideoID: req.VideoID, Status: model.JobPending}
	x.order = append(x.order, id)
	return id, nil
}

func (x *Indexer) PollStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	x.mu.Lock()
	delay, fail := x.PollDelay, x.FailPoll
	x.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", ErrInjected
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	j, ok := x.jobs[jobID]
	if !ok {
		return model.JobFailed, nil
	}
	return j.Status, nil
}

func (x *Indexer) FetchInsights(_ context.Context, jobID string) (*model.InsightBundle, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fetches++
	if x.FailFetch {
		return nil, ErrInjected
	}
	j, ok := x.jobs[jobID]
	if !ok || j.Status != model.JobProcessed {
		return nil, fmt.Errorf("job %s has no insights", jobID)
	}
	return j.Insights.Clone(), nil
}

func (x *Indexer) DeleteJob(_ context.Context, jobID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.jobs, jobID)
	x.deleted = append(x.deleted, jobID)
	return nil
}

// Complete marks a job processed with the given insights.
func (x *Indexer) Complete(jobID string, insights *model.InsightBundle) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if j, ok := x.jobs[jobID]; ok {
		j.Status = model.JobProcessed
		j.Insights = insights.Clone()
	}
}

// Fail marks a job failed.
func (x *Indexer) Fail(jobID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if j, ok := x.jobs[jobID]; ok {
		j.Status = model.JobFailed
	}
}

// SetFailPoll switches PollStatus failures on or off.
func (x *Indexer) SetFailPoll(v bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.FailPoll = v
}

// SetFailFetch switches FetchInsights failures on or off.
func (x *Indexer) SetFailFetch(v bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.FailFetch = v
}

// Submits returns how many Submit calls were made.
func (x *Indexer) Submits() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.submits
}

// Fetches returns how many FetchInsights calls were made.
func (x *Indexer) Fetches() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fetches
}

// JobCount returns how many jobs were created.
func (x *Indexer) JobCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.order)
}

// Deleted returns the ids passed to DeleteJob.
func (x *Indexer) Deleted() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.deleted...)
}

// Analytics is an in-memory warehouse.
type Analytics struct {
	mu              sync.Mutex
	videos          map[string]*model.VideoRecord
	insights        map[string]*model.InsightBundle
	videoWrites     int
	insightWrites   int
	failVideo       bool
	failInsights    bool
	failAggregate   bool
	AggregateResult *model.Summary
}

// NewAnalytics creates an empty Analytics.
func NewAnalytics() *Analytics {
	return &Analytics{
		videos:   make(map[string]*model.VideoRecord),
		insights: make(map[string]*model.InsightBundle),
	}
}

func (a *Analytics) UpsertVideo(_ context.Context, rec *model.VideoRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failVideo {
		return ErrInjected
	}
	a.videoWrites++
	a.videos[rec.ID] = rec.Clone()
	return nil
}

func (a *Analytics) UpsertInsights(_ context.Context, videoID string, bundle *model.InsightBundle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failInsights {
		return ErrInjected
	}
	a.insightWrites++
	a.insights[videoID] = bundle.Clone()
	return nil
}

func (a *Analytics) Aggregate(context.Context, int) (*model.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failAggregate || a.AggregateResult == nil {
		return nil, ErrInjected
	}
	return a.AggregateResult, nil
}

func (a *Analytics) DeleteVideo(_ context.Context, videoID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.videos, videoID)
	delete(a.insights, videoID)
	return nil
}

func (a *Analytics) GetInsights(_ context.Context, videoID string) (*model.InsightBundle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.insights[videoID].Clone(), nil
}

// SetFailures switches write failures on or off.
func (a *Analytics) SetFailures(video, insights, aggregate bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failVideo, a.failInsights, a.failAggregate = video, insights, aggregate
}

// Video returns the stored row for id.
func (a *Analytics) Video(id string) (*model.VideoRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.videos[id]
	return v.Clone(), ok
}

// Insights returns the stored insights for id.
func (a *Analytics) Insights(id string) (*model.InsightBundle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.insights[id]
	return b.Clone(), ok
}

// InsightWrites returns how many insight upserts succeeded.
func (a *Analytics) InsightWrites() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.insightWrites
}

// VideoWrites returns how many video upserts succeeded.
func (a *Analytics) VideoWrites() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.videoWrites
}

// PutInsights seeds the warehouse with insights for id.
func (a *Analytics) PutInsights(id string, b *model.InsightBundle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.insights[id] = b.Clone()
}
