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

// Package model_test contains unit tests for the catalog data models.
package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestNewVideoRecord verifies the constructor produces a valid Uploaded record
// with a uuid id and a fresh upload timestamp.
func TestNewVideoRecord(t *testing.T) {
	rec := model.NewVideoRecord("clip.mp4", 42, "video/mp4")

	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, rec.Status)
	assert.WithinDuration(t, time.Now(), rec.UploadedAt, time.Second)
	assert.Nil(t, rec.IndexedAt)
	assert.Empty(t, rec.IndexJobID)
	assert.NoError(t, rec.Validate())
}

func TestVideoRecordValidate(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		rec  model.VideoRecord
		want error
	}{
		{"missing id", model.VideoRecord{Status: model.StatusUploaded}, model.ErrMissingVideoID},
		{"unknown status", model.VideoRecord{ID: "a", Status: "bogus"}, model.ErrInvalidStatus},
		{"indexing without job", model.VideoRecord{ID: "a", Status: model.StatusIndexing}, model.ErrJobInvariant},
		{"uploaded with job", model.VideoRecord{ID: "a", Status: model.StatusUploaded, IndexJobID: "j"}, model.ErrJobInvariant},
		{"indexed without timestamp", model.VideoRecord{ID: "a", Status: model.StatusIndexed, IndexJobID: "j"}, model.ErrIndexedAtInvariant},
		{"failed with timestamp", model.VideoRecord{ID: "a", Status: model.StatusFailed, IndexJobID: "j", IndexedAt: &now}, model.ErrIndexedAtInvariant},
		{"indexed ok", model.VideoRecord{ID: "a", Status: model.StatusIndexed, IndexJobID: "j", IndexedAt: &now}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.rec.Validate(), tc.want)
		})
	}
}

// TestStatusTransitions pins down the complete edge set of the state machine.
func TestStatusTransitions(t *testing.T) {
	all := []model.VideoStatus{model.StatusUploaded, model.StatusIndexing, model.StatusIndexed, model.StatusFailed}
	allowed := map[[2]model.VideoStatus]bool{
		{model.StatusUploaded, model.StatusIndexing}: true,
		{model.StatusIndexing, model.StatusIndexed}:  true,
		{model.StatusIndexing, model.StatusFailed}:   true,
		{model.StatusFailed, model.StatusIndexing}:   true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]model.VideoStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestVideoRecordCloneIsDeep(t *testing.T) {
	now := time.Now()
	d := 12.5
	rec := &model.VideoRecord{ID: "a", IndexedAt: &now, DurationSeconds: &d}
	cp := rec.Clone()
	*cp.DurationSeconds = 99
	cp.IndexedAt = nil
	assert.Equal(t, 12.5, *rec.DurationSeconds)
	assert.NotNil(t, rec.IndexedAt)
}

func TestInsightBundleNormalize(t *testing.T) {
	b := &model.InsightBundle{Keywords: []string{"demo", "", "demo", "lake"}}
	b.Normalize()
	assert.Equal(t, []string{"demo", "lake"}, b.Keywords)
	assert.NotNil(t, b.Topics)
	assert.NotNil(t, b.Sentiments)
	assert.NotNil(t, b.Faces)
}

func TestExampleInsightsIsComplete(t *testing.T) {
	b := model.GetExampleInsights()
	assert.NotNil(t, b.Transcript)
	assert.NotEmpty(t, b.Keywords)
	assert.NotEmpty(t, b.Sentiments)

	cp := b.Clone()
	cp.Keywords[0] = "changed"
	assert.Equal(t, "demo", b.Keywords[0])
}

func TestSummarySuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, (&model.Summary{}).SuccessRate())
	assert.Equal(t, 25.0, (&model.Summary{TotalVideos: 4, IndexedCount: 1}).SuccessRate())
}

func TestSummaryOverview(t *testing.T) {
	s := &model.Summary{
		TotalVideos:          3,
		IndexedCount:         2,
		TotalDurationSeconds: 5400,
		TopKeywords: []model.KeywordCount{
			{Keyword: "a", Count: 3},
			{Keyword: "b", Count: 2},
			{Keyword: "c", Count: 1},
		},
	}
	o := s.Overview(2)
	assert.Equal(t, 66.67, o.SuccessRate)
	assert.Equal(t, 1.5, o.TotalDurationHours)
	assert.Len(t, o.TopKeywords, 2)
	assert.Empty(t, o.TopTopics)
	assert.NotNil(t, o.TopTopics)
}
