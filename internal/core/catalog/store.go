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

package catalog

import "context"

// Store is the durable backing of the catalog. Implementations must be safe
// for concurrent use; Save may be called for different ids at the same time.
type Store interface {
	Save(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]*Entry, error)
}

// NopStore keeps nothing.
type NopStore struct{}

func (NopStore) Save(context.Context, *Entry) error { return nil }
func (NopStore) Delete(context.Context, string) error { return nil }
func (NopStore) LoadAll(context.Context) ([]*Entry, error) { return nil, nil }
