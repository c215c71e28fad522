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
// This file, `transient.go`, contains the messages that travel between the
// orchestrator and the indexing service. They are never stored in the catalog
// or the warehouse.
package model

// IndexRequest is what the orchestrator hands to the indexing service when it
// submits a video.
type IndexRequest struct {
	VideoID     string // Catalog id, echoed back in job notifications.
	Location    string // Object store location, e.g. "gs://bucket/<id>/clip.mp4".
	Name        string // Original file name.
	ContentType string // MIME type of the object, e.g. "video/mp4".
}

// JobNotification is the Pub/Sub payload published when an indexing job
// leaves the pending state.
type JobNotification struct {
	VideoID string    `json:"video_id" validate:"required"`
	JobID   string    `json:"job_id" validate:"required"`
	Status  JobStatus `json:"status" validate:"required,oneof=pending processed failed"`
}
