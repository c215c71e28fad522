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

package services

import "errors"

// The named conditions callers of the video service can observe. Gateway
// errors are always folded into one of these before they leave the package.
var (
	// ErrStorageWriteFailed means the upload was aborted and nothing was recorded.
	ErrStorageWriteFailed = errors.New("storage write failed")
	// ErrAlreadyIndexing rejects a submit while a job is active or being submitted.
	ErrAlreadyIndexing = errors.New("video is already being indexed")
	// ErrAlreadyIndexed rejects a submit for a video that is already indexed.
	ErrAlreadyIndexed = errors.New("video is already indexed")
	// ErrNotIndexed means insights were requested before they are available.
	ErrNotIndexed = errors.New("video is not indexed")
	// ErrIndexingJobFailed marks a video whose last indexing job failed. It is
	// returned joined with ErrNotIndexed.
	ErrIndexingJobFailed = errors.New("indexing job failed")
	// ErrReconciliationTransient is a timeout or transport failure while
	// polling a job. The record is left unchanged and retried later.
	ErrReconciliationTransient = errors.New("transient reconciliation failure")
	// ErrIndexingSubmitFailed means the indexing service refused the job.
	ErrIndexingSubmitFailed = errors.New("indexing submit failed")
	// ErrVideoNotFound is returned for unknown video ids.
	ErrVideoNotFound = errors.New("video not found")
	// ErrInvalidUpload rejects uploads with no content or no file name.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrInsightsUnavailable means the video is indexed but neither the
	// catalog nor the warehouse could produce its insights.
	ErrInsightsUnavailable = errors.New("insights unavailable")
	// ErrStreamingUnsupported means the object store cannot sign URLs.
	ErrStreamingUnsupported = errors.New("streaming urls are not supported by the object store")
)
