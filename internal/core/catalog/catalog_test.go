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

package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]*catalog.Entry
	saves   int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*catalog.Entry)}
}

func (m *memStore) Save(_ context.Context, e *catalog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Record.ID] = e.Clone()
	m.saves++
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memStore) LoadAll(context.Context) ([]*catalog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*catalog.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

func newRecord(name string) *model.VideoRecord {
	rec := model.NewVideoRecord(name, 10, "video/mp4")
	rec.ObjectLocation = "gs://bucket/" + rec.ID + "/" + name
	return rec
}

func TestInsertGetRemove(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(nil)
	rec := newRecord("a.mp4")

	require.NoError(t, c.Insert(ctx, rec))
	assert.ErrorIs(t, c.Insert(ctx, rec), catalog.ErrDuplicate)

	got, ok := c.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.Record.ID)

	// Mutating the copy must not leak into the catalog.
	got.Record.Name = "changed"
	again, _ := c.Get(rec.ID)
	assert.Equal(t, "a.mp4", again.Record.Name)

	removed, ok := c.Remove(ctx, rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.ID, removed.Record.ID)

	_, ok = c.Remove(ctx, rec.ID)
	assert.False(t, ok)
	_, ok = c.Get(rec.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, c.Update(ctx, rec.ID, func(*catalog.Entry) error { return nil }), catalog.ErrNotFound)
}

func TestUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(nil)
	rec := newRecord("a.mp4")
	require.NoError(t, c.Insert(ctx, rec))

	abort := errors.New("abort")
	err := c.Update(ctx, rec.ID, func(e *catalog.Entry) error {
		e.Record.Status = model.StatusIndexing
		e.Record.IndexJobID = "job-1"
		return abort
	})
	assert.ErrorIs(t, err, abort)
	got, _ := c.Get(rec.ID)
	assert.Equal(t, model.StatusUploaded, got.Record.Status)

	// A change that breaks the record invariants is rejected as a whole.
	err = c.Update(ctx, rec.ID, func(e *catalog.Entry) error {
		e.Record.Status = model.StatusIndexing
		return nil
	})
	assert.ErrorIs(t, err, model.ErrJobInvariant)
	got, _ = c.Get(rec.ID)
	assert.Equal(t, model.StatusUploaded, got.Record.Status)
	assert.Equal(t, uint64(0), got.Revision)

	require.NoError(t, c.Update(ctx, rec.ID, func(e *catalog.Entry) error {
		e.Record.Status = model.StatusIndexing
		e.Record.IndexJobID = "job-1"
		return nil
	}))
	got, _ = c.Get(rec.ID)
	assert.Equal(t, model.StatusIndexing, got.Record.Status)
	assert.Equal(t, uint64(1), got.Revision)

	// Flag-only changes do not bump the revision.
	require.NoError(t, c.Update(ctx, rec.ID, func(e *catalog.Entry) error {
		e.VideoPending = true
		return nil
	}))
	got, _ = c.Get(rec.ID)
	assert.True(t, got.VideoPending)
	assert.Equal(t, uint64(1), got.Revision)
}

func TestSnapshotOrder(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(nil)
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	late := newRecord("late.mp4")
	late.UploadedAt = base.Add(time.Hour)
	early := newRecord("early.mp4")
	early.UploadedAt = base
	tieA := newRecord("tie.mp4")
	tieA.ID = "aaaa"
	tieA.UploadedAt = base.Add(time.Minute)
	tieB := newRecord("tie.mp4")
	tieB.ID = "bbbb"
	tieB.UploadedAt = base.Add(time.Minute)

	for _, r := range []*model.VideoRecord{late, tieB, early, tieA} {
		require.NoError(t, c.Insert(ctx, r))
	}

	snap := c.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, early.ID, snap[0].Record.ID)
	assert.Equal(t, "aaaa", snap[1].Record.ID)
	assert.Equal(t, "bbbb", snap[2].Record.ID)
	assert.Equal(t, late.ID, snap[3].Record.ID)
	assert.Equal(t, 4, c.Len())
}

// TestSnapshotNeverSeesPartialTransition flips records between two valid
// states while snapshots are taken; every observed record must be valid.
func TestSnapshotNeverSeesPartialTransition(t *testing.T) {
	ctx := context.Background()
	c := catalog.New(nil)
	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		rec := newRecord("v.mp4")
		rec.Status = model.StatusIndexing
		rec.IndexJobID = "job"
		require.NoError(t, c.Insert(ctx, rec))
		ids = append(ids, rec.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = c.Update(ctx, id, func(e *catalog.Entry) error {
				now := time.Now()
				e.Record.Status = model.StatusIndexed
				e.Record.IndexedAt = &now
				return nil
			})
		}(id)
	}
	for i := 0; i < 50; i++ {
		for _, e := range c.Snapshot() {
			assert.NoError(t, e.Record.Validate())
		}
	}
	wg.Wait()
}

func TestWriteThroughAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := catalog.New(store)

	rec := newRecord("a.mp4")
	require.NoError(t, c.Insert(ctx, rec))
	require.NoError(t, c.Update(ctx, rec.ID, func(e *catalog.Entry) error {
		e.Submitting = true
		e.InsightsPending = true
		return nil
	}))
	other := newRecord("b.mp4")
	require.NoError(t, c.Insert(ctx, other))
	_, ok := c.Remove(ctx, other.ID)
	require.True(t, ok)

	restored := catalog.New(store)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := restored.Get(rec.ID)
	require.True(t, ok)
	assert.True(t, got.InsightsPending)
	assert.False(t, got.Submitting)
	_, ok = restored.Get(other.ID)
	assert.False(t, ok)
}
