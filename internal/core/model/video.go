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
// This file, `video.go`, contains the catalog's unit of truth: the VideoRecord
// and the lifecycle states it moves through while the AI service indexes it.
package model

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus is the lifecycle state of a video in the catalog.
type VideoStatus string

const (
	StatusUploaded VideoStatus = "uploaded" // Stored in the object store, not yet submitted.
	StatusIndexing VideoStatus = "indexing" // An indexing job is in flight.
	StatusIndexed  VideoStatus = "indexed"  // Terminal success; insights are available.
	StatusFailed   VideoStatus = "failed"   // Terminal failure; may be resubmitted.
)

// IsValid reports whether s is one of the known statuses.
func (s VideoStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusIndexing, StatusIndexed, StatusFailed:
		return true
	}
	return false
}

// HasJob reports whether a record in this status must carry an indexing job id.
func (s VideoStatus) HasJob() bool {
	return s == StatusIndexing || s == StatusIndexed || s == StatusFailed
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// The only reachable edges are Uploaded -> Indexing, Indexing -> Indexed,
// Indexing -> Failed and Failed -> Indexing.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case StatusUploaded, StatusFailed:
		return next == StatusIndexing
	case StatusIndexing:
		return next == StatusIndexed || next == StatusFailed
	}
	return false
}

// VideoRecord is a single uploaded video and its lifecycle state.
type VideoRecord struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	ObjectLocation  string      `json:"object_location"`
	Status          VideoStatus `json:"status"`
	UploadedAt      time.Time   `json:"uploaded_at"`
	IndexedAt       *time.Time  `json:"indexed_at,omitempty"`
	DurationSeconds *float64    `json:"duration_seconds,omitempty"`
	SizeBytes       int64       `json:"size_bytes"`
	ContentType     string      `json:"content_type"`
	IndexJobID      string      `json:"index_job_id,omitempty"`
}

// NewVideoRecord creates a record in the Uploaded state with a fresh random id.
func NewVideoRecord(name string, sizeBytes int64, contentType string) *VideoRecord {
	return &VideoRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      StatusUploaded,
		UploadedAt:  time.Now().UTC(),
		SizeBytes:   sizeBytes,
		ContentType: contentType,
	}
}

// Clone returns a deep copy so callers never share the nullable pointers with
// the catalog.
func (v *VideoRecord) Clone() *VideoRecord {
	if v == nil {
		return nil
	}
	out := *v
	if v.IndexedAt != nil {
		t := *v.IndexedAt
		out.IndexedAt = &t
	}
	if v.DurationSeconds != nil {
		d := *v.DurationSeconds
		out.DurationSeconds = &d
	}
	return &out
}

// Equal reports whether two records carry the same values.
func (v *VideoRecord) Equal(o *VideoRecord) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.ID != o.ID || v.Name != o.Name || v.ObjectLocation != o.ObjectLocation ||
		v.Status != o.Status || !v.UploadedAt.Equal(o.UploadedAt) || v.SizeBytes != o.SizeBytes ||
		v.ContentType != o.ContentType || v.IndexJobID != o.IndexJobID {
		return false
	}
	if (v.IndexedAt == nil) != (o.IndexedAt == nil) || (v.IndexedAt != nil && !v.IndexedAt.Equal(*o.IndexedAt)) {
		return false
	}
	if (v.DurationSeconds == nil) != (o.DurationSeconds == nil) ||
		(v.DurationSeconds != nil && *v.DurationSeconds != *o.DurationSeconds) {
		return false
	}
	return true
}

// Validate checks the record invariants tying the status to the job id and
// the indexing timestamp.
func (v *VideoRecord) Validate() error {
	if v.ID == "" {
		return ErrMissingVideoID
	}
	if !v.Status.IsValid() {
		return ErrInvalidStatus
	}
	if v.Status.HasJob() != (v.IndexJobID != "") {
		return ErrJobInvariant
	}
	if (v.Status == StatusIndexed) != (v.IndexedAt != nil) {
		return ErrIndexedAtInvariant
	}
	return nil
}
