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
// Package workflow_test runs the background chains end to end: the Gemini
// indexer executes the extraction workflow against a scripted model, job
// notifications loop back into the notification workflow, and the sweep
// picks up what notifications miss.
package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"google.golang.org/genai"
)

const tName = "github.com/jaycherian/gcp-go-video-catalog/tests/workflow"

var logger = otelslog.NewLogger(tName)

const answer = `{"transcript":"A walk by the lake.","keywords":["lake","demo","lake"],` +
	`"topics":["Travel"],"labels":["water"],"brands":[],"sentiments":[{"label":"Positive","score":0.9}],` +
	`"faces":[],"language":"en-US","duration_seconds":42}`

type scriptedModel struct {
	delay time.Duration
	text  string
}

func (m *scriptedModel) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: m.text}}}}},
	}, nil
}

// loopback delivers published notifications to a listener handler and
// redelivers nacked ones, like a subscription would.
type loopback struct {
	mu        sync.Mutex
	handle    cloud.MessageHandler
	delivered int
	nacked    int
}

func (l *loopback) PublishJob(ctx context.Context, n model.JobNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	go func() {
		for attempt := 0; attempt < 20; attempt++ {
			ok := l.handle(ctx, data)
			l.mu.Lock()
			if ok {
				l.delivered++
			} else {
				l.nacked++
			}
			l.mu.Unlock()
			if ok {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	return nil
}

func (l *loopback) deliveries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delivered
}

type pipeline struct {
	svc       *services.VideoService
	analytics *test.Analytics
	bus       *loopback
}

func newPipeline(t *testing.T, ctx context.Context, publish bool) *pipeline {
	t.Helper()
	config := cloud.NewConfig()
	config.Indexing.AgentModel = "flash"
	config.PromptTemplates.InsightsPrompt = "Index {{ .VIDEO_NAME }}. Answer like {{ .EXAMPLE_JSON }}"

	genModel := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-test",
		&scriptedModel{delay: 20 * time.Millisecond, text: answer}, 50)
	extraction, err := workflow.NewInsightsExtractionWorkflow(config, genModel)
	require.NoError(t, err)

	p := &pipeline{analytics: test.NewAnalytics(), bus: &loopback{}}
	var publisher cloud.JobPublisher
	if publish {
		publisher = p.bus
	}
	indexer := cloud.NewGeminiIndexer(2, 8, publisher)
	indexer.SetCommand(extraction)
	indexer.Start(ctx)

	p.svc = services.NewVideoService(catalog.New(nil), test.NewObjectStore(), indexer, p.analytics, services.Options{})
	p.bus.handle = cloud.CommandHandler(workflow.NewJobNotificationWorkflow(p.svc))
	return p
}

func (p *pipeline) status(id string) model.VideoStatus {
	rec, err := p.svc.Get(context.Background(), id)
	if err != nil {
		return ""
	}
	return rec.Status
}

func TestNotificationDrivesIndexing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx, true)

	rec, err := p.svc.Upload(ctx, []byte("frames"), "lake.mp4", "video/mp4")
	require.NoError(t, err)
	_, err = p.svc.SubmitIndexing(ctx, rec.ID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return p.status(rec.ID) == model.StatusIndexed },
		3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, p.bus.deliveries(), 1)

	insights, err := p.svc.GetInsights(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"lake", "demo"}, insights.Keywords)
	assert.Equal(t, "en-US", *insights.Language)

	got, err := p.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 42.0, *got.DurationSeconds)

	stored, ok := p.analytics.Insights(rec.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"Travel"}, stored.Topics)
	logger.InfoContext(ctx, "indexed through notifications", "video_id", rec.ID)
}

func TestSweepDrivesIndexingWithoutNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx, false)

	rec, err := p.svc.Upload(ctx, []byte("frames"), "lake.mp4", "video/mp4")
	require.NoError(t, err)
	_, err = p.svc.SubmitIndexing(ctx, rec.ID)
	require.NoError(t, err)

	sweep := workflow.NewReconciliationSweepWorkflow(p.svc, 10*time.Millisecond)
	done := sweep.StartTimer(ctx)

	assert.Eventually(t, func() bool { return p.status(rec.ID) == model.StatusIndexed },
		3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep timer did not stop")
	}
}

func TestSweepRepairsWarehouse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx, false)

	p.analytics.SetFailures(true, false, false)
	rec, err := p.svc.Upload(ctx, []byte("frames"), "lake.mp4", "video/mp4")
	require.NoError(t, err)
	_, stored := p.analytics.Video(rec.ID)
	assert.False(t, stored)

	p.analytics.SetFailures(false, false, false)
	sweep := workflow.NewReconciliationSweepWorkflow(p.svc, time.Minute)
	require.NoError(t, sweep.RunOnce(ctx, time.Now()))
	_, stored = p.analytics.Video(rec.ID)
	assert.True(t, stored)
}

type failingReconciler struct{}

func (failingReconciler) ReconcileJob(context.Context, string, string) error { return nil }
func (failingReconciler) Sweep(context.Context) (int, error) {
	return 0, errors.New("sweep exploded")
}
func (failingReconciler) RepairWarehouse(context.Context) (int, error) { return 0, nil }

func TestSweepReportsErrors(t *testing.T) {
	sweep := workflow.NewReconciliationSweepWorkflow(failingReconciler{}, time.Minute)
	err := sweep.RunOnce(context.Background(), time.Now())
	assert.ErrorContains(t, err, "sweep exploded")
}

func TestNotificationWorkflowRejectsBadMessages(t *testing.T) {
	w := workflow.NewJobNotificationWorkflow(failingReconciler{})
	chCtx := cor.NewContextWithInput(context.Background(), `{"video_id":"v1"}`)
	w.Execute(chCtx)
	assert.True(t, chCtx.HasErrors())
}

func TestExtractionWorkflowNeedsModel(t *testing.T) {
	config := cloud.NewConfig()
	config.Indexing.AgentModel = "missing"
	_, err := workflow.NewInsightsExtractionWorkflow(config, nil)
	assert.ErrorContains(t, err, `agent model "missing"`)
}
