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

// Package services implements the video lifecycle orchestrator. This file,
// `indexing.go`, holds the IndexingOrchestrator: the only component allowed
// to move a record through its state machine.
//
//	Uploaded --Submit--> Indexing --Reconcile--> Indexed
//	                        |   ^
//	                        v   |
//	                      Failed (resubmit)
//
// Logic Flow (Submit and Reconcile share the same shape):
//  1. Under the record lock: check the state and take an in-flight claim.
//  2. With no lock held: call the indexing service.
//  3. Under the record lock again: drop the claim and commit the transition,
//     but only if the record is still present, still in the expected state
//     and still tied to the same job. Anything else is a stale result and is
//     discarded.
//  4. With no lock held: forward the new state to the warehouse (best effort).
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// Defaults applied when IndexingOptions leaves a field at zero.
const (
	DefaultPollTimeout  = 10 * time.Second
	DefaultSweepWorkers = 4
)

// errSkip aborts a catalog update without it being reported to the caller.
var errSkip = errors.New("skip")

// errBusy aborts a job reconcile that must be retried later.
var errBusy = errors.New("busy")

// IndexingOptions tunes the orchestrator.
type IndexingOptions struct {
	PollTimeout  time.Duration // Upper bound for one PollStatus or FetchInsights call.
	SweepWorkers int           // Records reconciled concurrently by Sweep.
}

// IndexingOrchestrator drives the video state machine.
type IndexingOrchestrator struct {
	catalog      *catalog.Catalog
	indexer      Indexer
	warehouse    *warehouseWriter
	pollTimeout  time.Duration
	sweepWorkers int
	now          func() time.Time
}

// NewIndexingOrchestrator wires an orchestrator over the given catalog and
// gateways.
func NewIndexingOrchestrator(cat *catalog.Catalog, indexer Indexer, analytics Analytics, opts IndexingOptions) *IndexingOrchestrator {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.SweepWorkers <= 0 {
		opts.SweepWorkers = DefaultSweepWorkers
	}
	return &IndexingOrchestrator{
		catalog:      cat,
		indexer:      indexer,
		warehouse:    newWarehouseWriter(cat, analytics),
		pollTimeout:  opts.PollTimeout,
		sweepWorkers: opts.SweepWorkers,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Submit starts an indexing job for an Uploaded or Failed video and returns
// the new job id. It does not wait for the job to finish.
//
// Errors: ErrVideoNotFound, ErrAlreadyIndexing (a job is active or another
// submit is in flight), ErrAlreadyIndexed, ErrIndexingSubmitFailed.
func (o *IndexingOrchestrator) Submit(ctx context.Context, videoID string) (string, error) {
	var req model.IndexRequest
	err := o.catalog.Update(ctx, videoID, func(e *catalog.Entry) error {
		if e.Submitting {
			return ErrAlreadyIndexing
		}
		switch e.Record.Status {
		case model.StatusIndexing:
			return ErrAlreadyIndexing
		case model.StatusIndexed:
			return ErrAlreadyIndexed
		}
		e.Submitting = true
		req = model.IndexRequest{
			VideoID:     e.Record.ID,
			Location:    e.Record.ObjectLocation,
			Name:        e.Record.Name,
			ContentType: e.Record.ContentType,
		}
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return "", ErrVideoNotFound
	}
	if err != nil {
		return "", err
	}

	jobID, submitErr := o.indexer.Submit(ctx, req)
	if submitErr == nil && jobID == "" {
		submitErr = errors.New("indexer returned an empty job id")
	}

	var superseded string
	err = o.catalog.Update(ctx, videoID, func(e *catalog.Entry) error {
		e.Submitting = false
		if submitErr != nil {
			return nil
		}
		superseded = e.Record.IndexJobID
		e.Record.Status = model.StatusIndexing
		e.Record.IndexJobID = jobID
		e.Record.IndexedAt = nil
		e.Insights = nil
		e.InsightsPending = false
		e.Generation++
		return nil
	})
	if submitErr != nil {
		slog.WarnContext(ctx, "indexing submit failed", "video_id", videoID, "error", submitErr)
		return "", fmt.Errorf("%w: %v", ErrIndexingSubmitFailed, submitErr)
	}
	if err != nil {
		// Deleted while the job was being submitted; the job has no owner.
		o.discardJob(ctx, jobID)
		if errors.Is(err, catalog.ErrNotFound) {
			return "", ErrVideoNotFound
		}
		return "", err
	}

	slog.InfoContext(ctx, "indexing job submitted", "video_id", videoID, "job_id", jobID)
	if superseded != "" && superseded != jobID {
		o.discardJob(ctx, superseded)
	}
	_ = o.warehouse.writeVideo(ctx, videoID)
	return jobID, nil
}

// Reconcile polls the current job of an Indexing video once and applies the
// outcome. It is safe to call from any number of goroutines: a call that
// finds another reconcile in flight for the same video returns immediately.
//
// A nil error means either a transition was committed or there was nothing
// to do. ErrReconciliationTransient means the job could not be observed and
// the record was left untouched.
func (o *IndexingOrchestrator) Reconcile(ctx context.Context, videoID string) error {
	return o.reconcile(ctx, videoID, "")
}

// ReconcileJob is Reconcile for a notification about a specific job. If jobID
// is no longer the video's current job the notification is discarded. While a
// submit or another reconcile of the video is in flight it returns
// ErrReconciliationTransient so the notification is delivered again. An empty
// jobID behaves like Reconcile.
func (o *IndexingOrchestrator) ReconcileJob(ctx context.Context, videoID, jobID string) error {
	return o.reconcile(ctx, videoID, jobID)
}

func (o *IndexingOrchestrator) reconcile(ctx context.Context, videoID, expectJobID string) error {
	var jobID string
	var generation uint64
	err := o.catalog.Update(ctx, videoID, func(e *catalog.Entry) error {
		// A notification can overtake the submit that created its job.
		if expectJobID != "" && (e.Submitting || e.Reconciling) {
			return errBusy
		}
		if e.Record.Status != model.StatusIndexing || e.Reconciling {
			return errSkip
		}
		if expectJobID != "" && e.Record.IndexJobID != expectJobID {
			return errSkip
		}
		e.Reconciling = true
		jobID = e.Record.IndexJobID
		generation = e.Generation
		return nil
	})
	if errors.Is(err, errSkip) {
		if expectJobID != "" {
			slog.DebugContext(ctx, "ignoring notification", "video_id", videoID, "job_id", expectJobID)
		}
		return nil
	}
	if errors.Is(err, errBusy) {
		return fmt.Errorf("%w: video %s is busy", ErrReconciliationTransient, videoID)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return ErrVideoNotFound
	}
	if err != nil {
		return err
	}

	status, bundle, observeErr := o.observe(ctx, jobID)

	var committed *model.VideoRecord
	var insights *model.InsightBundle
	err = o.catalog.Update(ctx, videoID, func(e *catalog.Entry) error {
		e.Reconciling = false
		if observeErr != nil || status == model.JobPending {
			return nil
		}
		if e.Record.Status != model.StatusIndexing || e.Record.IndexJobID != jobID || e.Generation != generation {
			return nil
		}
		switch status {
		case model.JobProcessed:
			now := o.now()
			e.Record.Status = model.StatusIndexed
			e.Record.IndexedAt = &now
			if e.Record.DurationSeconds == nil && bundle.DurationSeconds != nil {
				d := *bundle.DurationSeconds
				e.Record.DurationSeconds = &d
			}
			e.Insights = bundle
			e.InsightsPending = true
			insights = bundle.Clone()
		case model.JobFailed:
			e.Record.Status = model.StatusFailed
		}
		committed = e.Record.Clone()
		return nil
	})
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	if observeErr != nil {
		slog.InfoContext(ctx, "reconciliation deferred", "video_id", videoID, "job_id", jobID, "error", observeErr)
		return fmt.Errorf("%w: job %s: %v", ErrReconciliationTransient, jobID, observeErr)
	}
	if committed == nil {
		return nil
	}

	slog.InfoContext(ctx, "indexing job reconciled", "video_id", videoID, "job_id", jobID, "status", committed.Status)
	// The outcome now lives in the catalog; the job is no longer needed.
	o.discardJob(ctx, jobID)
	if insights != nil {
		_ = o.warehouse.writeInsights(ctx, videoID, insights)
	}
	_ = o.warehouse.writeVideo(ctx, videoID)
	return nil
}

// observe polls the job and, when it is processed, fetches its insights. Each
// call is bounded by the poll timeout; any failure, including a timeout, is
// reported as an error and means "try again later".
func (o *IndexingOrchestrator) observe(ctx context.Context, jobID string) (model.JobStatus, *model.InsightBundle, error) {
	pollCtx, cancel := context.WithTimeout(ctx, o.pollTimeout)
	status, err := o.indexer.PollStatus(pollCtx, jobID)
	cancel()
	if err != nil {
		return model.JobPending, nil, fmt.Errorf("poll status: %w", err)
	}
	switch status {
	case model.JobPending, model.JobFailed:
		return status, nil, nil
	case model.JobProcessed:
	default:
		return model.JobPending, nil, fmt.Errorf("unknown job status %q", status)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.pollTimeout)
	bundle, err := o.indexer.FetchInsights(fetchCtx, jobID)
	cancel()
	if err != nil {
		return model.JobPending, nil, fmt.Errorf("fetch insights: %w", err)
	}
	if bundle == nil {
		return model.JobPending, nil, errors.New("fetch insights: empty bundle")
	}
	return model.JobProcessed, bundle.Clone().Normalize(), nil
}

// GetInsights returns the insights of an Indexed video. An Indexing video is
// reconciled first so that a caller polling this method drives progress on
// its own.
//
// Errors: ErrVideoNotFound; ErrNotIndexed for Uploaded or still Indexing
// videos; ErrNotIndexed joined with ErrIndexingJobFailed for Failed videos;
// ErrInsightsUnavailable when an Indexed video's insights cannot be read.
func (o *IndexingOrchestrator) GetInsights(ctx context.Context, videoID string) (*model.InsightBundle, error) {
	e, ok := o.catalog.Get(videoID)
	if !ok {
		return nil, ErrVideoNotFound
	}
	if e.Record.Status == model.StatusIndexing {
		if err := o.Reconcile(ctx, videoID); err != nil && !errors.Is(err, ErrReconciliationTransient) {
			return nil, err
		}
		if e, ok = o.catalog.Get(videoID); !ok {
			return nil, ErrVideoNotFound
		}
	}

	switch e.Record.Status {
	case model.StatusIndexed:
	case model.StatusFailed:
		return nil, fmt.Errorf("%w: %w", ErrNotIndexed, ErrIndexingJobFailed)
	default:
		return nil, ErrNotIndexed
	}
	if e.Insights != nil {
		return e.Insights, nil
	}

	bundle, err := o.warehouse.analytics.GetInsights(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsightsUnavailable, err)
	}
	if bundle == nil {
		return nil, ErrInsightsUnavailable
	}
	bundle.Normalize()
	cached := bundle.Clone()
	_ = o.catalog.Update(ctx, videoID, func(e *catalog.Entry) error {
		if e.Record.Status != model.StatusIndexed || e.Insights != nil {
			return errSkip
		}
		e.Insights = cached
		return nil
	})
	return bundle, nil
}

// Sweep reconciles every Indexing video using a bounded pool of workers and
// returns how many were examined. Transient failures are expected and are not
// returned; anything else is joined into the error.
func (o *IndexingOrchestrator) Sweep(ctx context.Context) (int, error) {
	jobs := make(chan string)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for w := 0; w < o.sweepWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := o.Reconcile(ctx, id)
				if err == nil || errors.Is(err, ErrReconciliationTransient) || errors.Is(err, ErrVideoNotFound) {
					continue
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("reconcile %s: %w", id, err))
				mu.Unlock()
			}
		}()
	}

	count := 0
	for _, e := range o.catalog.Snapshot() {
		if e.Record.Status != model.StatusIndexing {
			continue
		}
		select {
		case jobs <- e.Record.ID:
			count++
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return count, errors.Join(errs...)
}

// RepairWarehouse re-attempts warehouse writes that failed earlier and
// returns how many records are now in sync.
func (o *IndexingOrchestrator) RepairWarehouse(ctx context.Context) (int, error) {
	return o.warehouse.repair(ctx)
}

// discardJob releases a job the catalog no longer points at, or whose outcome
// has been committed. Failures are logged only.
func (o *IndexingOrchestrator) discardJob(ctx context.Context, jobID string) {
	deleter, ok := o.indexer.(JobDeleter)
	if !ok {
		return
	}
	if err := deleter.DeleteJob(ctx, jobID); err != nil {
		slog.WarnContext(ctx, "failed to discard indexing job", "job_id", jobID, "error", err)
	}
}
