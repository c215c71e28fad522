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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-catalog/internal/testutil"
)

type server struct {
	router  *gin.Engine
	svc     *services.VideoService
	store   *test.ObjectStore
	indexer *test.Indexer
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &server{store: test.NewObjectStore(), indexer: test.NewIndexer()}
	s.svc = services.NewVideoService(catalog.New(nil), s.store, s.indexer, test.NewAnalytics(), services.Options{
		Indexing:     services.IndexingOptions{PollTimeout: time.Second},
		SignedURLTTL: 10 * time.Minute,
	})
	s.router = NewRouter("video-catalog-test", s.svc)
	return s
}

func (s *server) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) upload(t *testing.T, name string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("pretend this is an mp4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

func (s *server) uploaded(t *testing.T, name string) *model.VideoRecord {
	t.Helper()
	w := s.upload(t, name)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec model.VideoRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	return &rec
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func TestUploadAndFetch(t *testing.T) {
	s := newServer(t)
	rec := s.uploaded(t, "trailer.mp4")
	assert.Equal(t, model.StatusUploaded, rec.Status)
	assert.Equal(t, "trailer.mp4", rec.Name)
	assert.True(t, s.store.Has(rec.ObjectLocation))

	w := s.do(t, get("/api/v1/videos/"+rec.ID))
	require.Equal(t, http.StatusOK, w.Code)
	var fetched model.VideoRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, rec.ID, fetched.ID)

	w = s.do(t, get("/api/v1/videos/unknown"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", bytes.NewBufferString("plain"))
	assert.Equal(t, http.StatusBadRequest, s.do(t, req).Code)

	s.store.FailPut = true
	assert.Equal(t, http.StatusBadGateway, s.upload(t, "a.mp4").Code)
	assert.Empty(t, s.svc.List(context.Background(), ""))
}

func TestListFiltersByStatus(t *testing.T) {
	s := newServer(t)
	first := s.uploaded(t, "a.mp4")
	s.uploaded(t, "b.mp4")

	w := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/videos/"+first.ID+"/index", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var all, indexing []model.VideoRecord
	require.NoError(t, json.Unmarshal(s.do(t, get("/api/v1/videos")).Body.Bytes(), &all))
	require.NoError(t, json.Unmarshal(s.do(t, get("/api/v1/videos?status=indexing")).Body.Bytes(), &indexing))
	assert.Len(t, all, 2)
	require.Len(t, indexing, 1)
	assert.Equal(t, first.ID, indexing[0].ID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, get("/api/v1/videos?status=sideways")).Code)
}

func TestIndexingLifecycle(t *testing.T) {
	s := newServer(t)
	rec := s.uploaded(t, "talk.mp4")
	indexPath := "/api/v1/videos/" + rec.ID + "/index"
	insightsPath := "/api/v1/videos/" + rec.ID + "/insights"
	transcriptPath := "/api/v1/videos/" + rec.ID + "/transcript"

	w := s.do(t, httptest.NewRequest(http.MethodPost, indexPath, nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	var submitted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	jobID := submitted["job_id"]
	require.NotEmpty(t, jobID)

	assert.Equal(t, http.StatusConflict, s.do(t, httptest.NewRequest(http.MethodPost, indexPath, nil)).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, get(insightsPath)).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, get(transcriptPath)).Code)

	insights := model.NewInsightBundle()
	insights.Keywords = []string{"keynote", "cloud"}
	transcript, language := "welcome to the keynote", "en"
	insights.Transcript = &transcript
	insights.Language = &language
	s.indexer.Complete(jobID, insights)
	require.NoError(t, s.svc.Reconcile(context.Background(), rec.ID))

	w = s.do(t, get(insightsPath))
	require.Equal(t, http.StatusOK, w.Code)
	var got model.InsightBundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"keynote", "cloud"}, got.Keywords)

	w = s.do(t, get(transcriptPath))
	require.Equal(t, http.StatusOK, w.Code)
	var tr map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.Equal(t, map[string]string{"video_id": rec.ID, "transcript": transcript, "language": language}, tr)
	assert.Equal(t, http.StatusNotFound, s.do(t, get("/api/v1/videos/missing/transcript")).Code)

	assert.Equal(t, http.StatusConflict, s.do(t, httptest.NewRequest(http.MethodPost, indexPath, nil)).Code)

	w = s.do(t, get("/api/v1/analytics/videos"))
	require.Equal(t, http.StatusOK, w.Code)
	var summary model.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.EqualValues(t, 1, summary.TotalVideos)
	assert.EqualValues(t, 1, summary.IndexedCount)

	w = s.do(t, get("/api/v1/analytics/insights"))
	require.Equal(t, http.StatusOK, w.Code)
	var overview model.InsightsOverview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.Equal(t, 100.0, overview.SuccessRate)
	require.NotEmpty(t, overview.TopKeywords)
}

func TestStreamAndDelete(t *testing.T) {
	s := newServer(t)
	rec := s.uploaded(t, "clip.mp4")
	path := "/api/v1/videos/" + rec.ID

	w := s.do(t, get(path+"/stream"))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["url"], "signed.example")
	assert.Contains(t, body["url"], fmt.Sprintf("ttl=%d", 600))

	assert.Equal(t, http.StatusNoContent, s.do(t, httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.False(t, s.store.Has(rec.ObjectLocation))
	assert.Equal(t, http.StatusNotFound, s.do(t, httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, get(path+"/stream")).Code)
}

func TestDeleteReportsCleanupErrors(t *testing.T) {
	s := newServer(t)
	rec := s.uploaded(t, "clip.mp4")
	s.store.FailDelete = true

	w := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+rec.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cleanup_error")
	assert.Equal(t, http.StatusNotFound, s.do(t, get("/api/v1/videos/"+rec.ID)).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrVideoNotFound, http.StatusNotFound},
		{services.ErrInvalidUpload, http.StatusBadRequest},
		{services.ErrAlreadyIndexing, http.StatusConflict},
		{services.ErrAlreadyIndexed, http.StatusConflict},
		{fmt.Errorf("%w: %w", services.ErrNotIndexed, services.ErrIndexingJobFailed), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", services.ErrStorageWriteFailed), http.StatusBadGateway},
		{services.ErrIndexingSubmitFailed, http.StatusBadGateway},
		{services.ErrInsightsUnavailable, http.StatusBadGateway},
		{services.ErrStreamingUnsupported, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
