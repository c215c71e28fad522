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

// Package model defines the core data structures for the application.
// This file, `insights.go`, holds the artifacts produced by the AI analysis
// service for one video and the job states that service reports.
package model

// JobStatus is the state of an indexing job as reported by the AI service.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobProcessed JobStatus = "processed"
	JobFailed    JobStatus = "failed"
)

// Sentiment is one entry of the ordered sentiment timeline.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Face is an opaque face record. The orchestrator never inspects it.
type Face struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InsightBundle is the set of AI-derived artifacts for one video. It is owned
// by the AI service: once fetched it is treated as an immutable value and
// forwarded to the warehouse as is.
type InsightBundle struct {
	Transcript      *string     `json:"transcript,omitempty"`
	Keywords        []string    `json:"keywords"`
	Topics          []string    `json:"topics"`
	Labels          []string    `json:"labels"`
	Brands          []string    `json:"brands"`
	Sentiments      []Sentiment `json:"sentiments"`
	Faces           []Face      `json:"faces"`
	Language        *string     `json:"language,omitempty"`
	DurationSeconds *float64    `json:"duration_seconds,omitempty"`
}

// NewInsightBundle returns a bundle with every collection initialized, so the
// JSON form never carries nulls for the list fields.
func NewInsightBundle() *InsightBundle {
	return &InsightBundle{
		Keywords:   make([]string, 0),
		Topics:     make([]string, 0),
		Labels:     make([]string, 0),
		Brands:     make([]string, 0),
		Sentiments: make([]Sentiment, 0),
		Faces:      make([]Face, 0),
	}
}

// Normalize turns the string collections into sets (first occurrence wins,
// empty strings dropped) and replaces nil slices with empty ones.
func (b *InsightBundle) Normalize() *InsightBundle {
	b.Keywords = dedupe(b.Keywords)
	b.Topics = dedupe(b.Topics)
	b.Labels = dedupe(b.Labels)
	b.Brands = dedupe(b.Brands)
	if b.Sentiments == nil {
		b.Sentiments = make([]Sentiment, 0)
	}
	if b.Faces == nil {
		b.Faces = make([]Face, 0)
	}
	return b
}

// Clone returns a deep copy of the bundle.
func (b *InsightBundle) Clone() *InsightBundle {
	if b == nil {
		return nil
	}
	out := &InsightBundle{
		Keywords:   append(make([]string, 0, len(b.Keywords)), b.Keywords...),
		Topics:     append(make([]string, 0, len(b.Topics)), b.Topics...),
		Labels:     append(make([]string, 0, len(b.Labels)), b.Labels...),
		Brands:     append(make([]string, 0, len(b.Brands)), b.Brands...),
		Sentiments: append(make([]Sentiment, 0, len(b.Sentiments)), b.Sentiments...),
		Faces:      append(make([]Face, 0, len(b.Faces)), b.Faces...),
	}
	if b.Transcript != nil {
		s := *b.Transcript
		out.Transcript = &s
	}
	if b.Language != nil {
		s := *b.Language
		out.Language = &s
	}
	if b.DurationSeconds != nil {
		d := *b.DurationSeconds
		out.DurationSeconds = &d
	}
	return out
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
