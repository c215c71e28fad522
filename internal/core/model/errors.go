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

package model

import "errors"

// Record validation errors.
var (
	ErrMissingVideoID     = errors.New("video record has no id")
	ErrInvalidStatus      = errors.New("video record has an unknown status")
	ErrJobInvariant       = errors.New("index job id must be set exactly when status is indexing, indexed or failed")
	ErrIndexedAtInvariant = errors.New("indexed_at must be set exactly when status is indexed")
)
