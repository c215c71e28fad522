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
// This file implements the analytics warehouse on BigQuery. It keeps two
// tables in one dataset: a videos table mirroring the catalog records and an
// insights table holding one row per indexed video. Writes are MERGE
// statements keyed by video id so retries and repairs are idempotent.
//
// Structs:
//   - BigQueryAnalytics: UpsertVideo, UpsertInsights, Aggregate, DeleteVideo
//     and GetInsights over the two tables.
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"google.golang.org/api/iterator"
)

// BigQueryAnalytics is the warehouse gateway.
type BigQueryAnalytics struct {
	client        *bigquery.Client
	dataset       string
	videosTable   string
	insightsTable string
}

func NewBigQueryAnalytics(client *bigquery.Client, ds BigQueryDataSource) *BigQueryAnalytics {
	return &BigQueryAnalytics{
		client:        client,
		dataset:       ds.DatasetName,
		videosTable:   ds.VideosTable,
		insightsTable: ds.InsightsTable,
	}
}

func (a *BigQueryAnalytics) fqn(table string) string {
	fqn := a.client.Dataset(a.dataset).Table(table).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

func (a *BigQueryAnalytics) videosFQN() string   { return a.fqn(a.videosTable) }
func (a *BigQueryAnalytics) insightsFQN() string { return a.fqn(a.insightsTable) }

// videoRow is the videos table layout.
type videoRow struct {
	ID              string                 `bigquery:"id"`
	Name            string                 `bigquery:"name"`
	ObjectLocation  string                 `bigquery:"object_location"`
	Status          string                 `bigquery:"status"`
	UploadedAt      time.Time              `bigquery:"uploaded_at"`
	IndexedAt       bigquery.NullTimestamp `bigquery:"indexed_at"`
	DurationSeconds bigquery.NullFloat64   `bigquery:"duration_seconds"`
	SizeBytes       int64                  `bigquery:"size_bytes"`
	ContentType     string                 `bigquery:"content_type"`
	IndexJobID      string                 `bigquery:"index_job_id"`
}

// insightsRow is the insights table layout.
type insightsRow struct {
	VideoID         string               `bigquery:"video_id"`
	Transcript      bigquery.NullString  `bigquery:"transcript"`
	Keywords        []string             `bigquery:"keywords"`
	Topics          []string             `bigquery:"topics"`
	Labels          []string             `bigquery:"labels"`
	Brands          []string             `bigquery:"brands"`
	Sentiments      string               `bigquery:"sentiments"`
	Faces           string               `bigquery:"faces"`
	Language        bigquery.NullString  `bigquery:"language"`
	DurationSeconds bigquery.NullFloat64 `bigquery:"duration_seconds"`
	UpdatedAt       time.Time            `bigquery:"updated_at"`
}

func newVideoRow(rec *model.VideoRecord) videoRow {
	row := videoRow{
		ID:             rec.ID,
		Name:           rec.Name,
		ObjectLocation: rec.ObjectLocation,
		Status:         string(rec.Status),
		UploadedAt:     rec.UploadedAt,
		SizeBytes:      rec.SizeBytes,
		ContentType:    rec.ContentType,
		IndexJobID:     rec.IndexJobID,
	}
	if rec.IndexedAt != nil {
		row.IndexedAt = bigquery.NullTimestamp{Timestamp: *rec.IndexedAt, Valid: true}
	}
	if rec.DurationSeconds != nil {
		row.DurationSeconds = bigquery.NullFloat64{Float64: *rec.DurationSeconds, Valid: true}
	}
	return row
}

func (r videoRow) params() []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "id", Value: r.ID},
		{Name: "name", Value: r.Name},
		{Name: "object_location", Value: r.ObjectLocation},
		{Name: "status", Value: r.Status},
		{Name: "uploaded_at", Value: r.UploadedAt},
		{Name: "indexed_at", Value: r.IndexedAt},
		{Name: "duration_seconds", Value: r.DurationSeconds},
		{Name: "size_bytes", Value: r.SizeBytes},
		{Name: "content_type", Value: r.ContentType},
		{Name: "index_job_id", Value: r.IndexJobID},
	}
}

func newInsightsRow(videoID string, b *model.InsightBundle, now time.Time) (insightsRow, error) {
	if b == nil {
		b = model.NewInsightBundle()
	}
	b = b.Clone().Normalize()
	sentiments, err := json.Marshal(b.Sentiments)
	if err != nil {
		return insightsRow{}, err
	}
	faces, err := json.Marshal(b.Faces)
	if err != nil {
		return insightsRow{}, err
	}
	row := insightsRow{
		VideoID:    videoID,
		Keywords:   b.Keywords,
		Topics:     b.Topics,
		Labels:     b.Labels,
		Brands:     b.Brands,
		Sentiments: string(sentiments),
		Faces:      string(faces),
		UpdatedAt:  now,
	}
	if b.Transcript != nil {
		row.Transcript = bigquery.NullString{StringVal: *b.Transcript, Valid: true}
	}
	if b.Language != nil {
		row.Language = bigquery.NullString{StringVal: *b.Language, Valid: true}
	}
	if b.DurationSeconds != nil {
		row.DurationSeconds = bigquery.NullFloat64{Float64: *b.DurationSeconds, Valid: true}
	}
	return row, nil
}

func (r insightsRow) params() []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "video_id", Value: r.VideoID},
		{Name: "transcript", Value: r.Transcript},
		{Name: "keywords", Value: r.Keywords},
		{Name: "topics", Value: r.Topics},
		{Name: "labels", Value: r.Labels},
		{Name: "brands", Value: r.Brands},
		{Name: "sentiments", Value: r.Sentiments},
		{Name: "faces", Value: r.Faces},
		{Name: "language", Value: r.Language},
		{Name: "duration_seconds", Value: r.DurationSeconds},
		{Name: "updated_at", Value: r.UpdatedAt},
	}
}

func (r insightsRow) bundle() (*model.InsightBundle, error) {
	b := &model.InsightBundle{
		Keywords: r.Keywords,
		Topics:   r.Topics,
		Labels:   r.Labels,
		Brands:   r.Brands,
	}
	if r.Sentiments != "" {
		if err := json.Unmarshal([]byte(r.Sentiments), &b.Sentiments); err != nil {
			return nil, fmt.Errorf("decode sentiments of %s: %w", r.VideoID, err)
		}
	}
	if r.Faces != "" {
		if err := json.Unmarshal([]byte(r.Faces), &b.Faces); err != nil {
			return nil, fmt.Errorf("decode faces of %s: %w", r.VideoID, err)
		}
	}
	if r.Transcript.Valid {
		b.Transcript = &r.Transcript.StringVal
	}
	if r.Language.Valid {
		b.Language = &r.Language.StringVal
	}
	if r.DurationSeconds.Valid {
		d := r.DurationSeconds.Float64
		b.DurationSeconds = &d
	}
	return b.Normalize(), nil
}

// exec runs a DML statement and waits for it.
func (a *BigQueryAnalytics) exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := a.client.Query(sql)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

func (a *BigQueryAnalytics) UpsertVideo(ctx context.Context, rec *model.VideoRecord) error {
	if err := a.exec(ctx, fmt.Sprintf(QryMergeVideo, a.videosFQN()), newVideoRow(rec).params()); err != nil {
		return fmt.Errorf("upsert video %s: %w", rec.ID, err)
	}
	return nil
}

func (a *BigQueryAnalytics) UpsertInsights(ctx context.Context, videoID string, bundle *model.InsightBundle) error {
	row, err := newInsightsRow(videoID, bundle, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := a.exec(ctx, fmt.Sprintf(QryMergeInsights, a.insightsFQN()), row.params()); err != nil {
		return fmt.Errorf("upsert insights %s: %w", videoID, err)
	}
	return nil
}

// DeleteVideo removes both rows of the video. Missing rows are not an error.
func (a *BigQueryAnalytics) DeleteVideo(ctx context.Context, videoID string) error {
	params := []bigquery.QueryParameter{{Name: "video_id", Value: videoID}}
	return errors.Join(
		a.exec(ctx, fmt.Sprintf(QryDeleteInsights, a.insightsFQN()), params),
		a.exec(ctx, fmt.Sprintf(QryDeleteVideo, a.videosFQN()), params),
	)
}

// GetInsights reads the stored bundle, or nil when the video has no row.
func (a *BigQueryAnalytics) GetInsights(ctx context.Context, videoID string) (*model.InsightBundle, error) {
	q := a.client.Query(fmt.Sprintf(QryFindInsights, a.insightsFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "video_id", Value: videoID}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	var row insightsRow
	err = itr.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.bundle()
}

// Aggregate computes the summary in the warehouse.
func (a *BigQueryAnalytics) Aggregate(ctx context.Context, topN int) (*model.Summary, error) {
	q := a.client.Query(fmt.Sprintf(QryVideoTotals, a.videosFQN()))
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := &model.Summary{}
	if err = itr.Next(out); err != nil {
		return nil, err
	}

	limit := []bigquery.QueryParameter{{Name: "top_n", Value: topN}}
	out.TopKeywords = make([]model.KeywordCount, 0)
	err = readAll(ctx, a.client, fmt.Sprintf(QryTopKeywords, a.insightsFQN(), a.videosFQN()), limit, func(it *bigquery.RowIterator) error {
		var kc model.KeywordCount
		if err := it.Next(&kc); err != nil {
			return err
		}
		out.TopKeywords = append(out.TopKeywords, kc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.TopTopics = make([]model.TopicCount, 0)
	err = readAll(ctx, a.client, fmt.Sprintf(QryTopTopics, a.insightsFQN(), a.videosFQN()), limit, func(it *bigquery.RowIterator) error {
		var tc model.TopicCount
		if err := it.Next(&tc); err != nil {
			return err
		}
		out.TopTopics = append(out.TopTopics, tc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readAll calls next until the iterator is exhausted.
func readAll(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter, next func(*bigquery.RowIterator) error) error {
	q := client.Query(sql)
	q.Parameters = params
	itr, err := q.Read(ctx)
	if err != nil {
		return err
	}
	for {
		err := next(itr)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
