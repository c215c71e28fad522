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

// Package catalog holds the in-process table of video records, the single
// source of truth for lifecycle state.
//
// Concurrency model:
//   - Membership (insert, remove, lookup) is guarded by a read/write mutex on
//     the table.
//   - Each record lives in its own slot with its own mutex. Mutations go through
//     Update, which runs a caller-supplied function against a working copy of
//     the entry and commits it atomically only if the function succeeds and the
//     resulting record is valid. Different videos never contend on a slot lock.
//   - Readers always receive deep copies, so a snapshot observes a record either
//     before or after a transition, never in between.
//
// When a Store is attached, every committed change is written through to it
// while the slot lock is held, so the durable copy never runs ahead of or
// behind the in-memory one for the same record.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

var (
	// ErrNotFound is returned when the id is not (or no longer) in the catalog.
	ErrNotFound = errors.New("video not found in catalog")
	// ErrDuplicate is returned by Insert when the id is already present.
	ErrDuplicate = errors.New("video already exists in catalog")
)

// Entry is a record plus the orchestration state kept alongside it.
type Entry struct {
	Record   *model.VideoRecord   `json:"record"`
	Insights *model.InsightBundle `json:"insights,omitempty"`

	// Warehouse rows that still need to be (re)written.
	VideoPending    bool `json:"video_pending"`
	InsightsPending bool `json:"insights_pending"`

	// In-flight claims. Never persisted.
	Submitting  bool `json:"-"`
	Reconciling bool `json:"-"`

	// Generation is bumped on every new indexing job; Revision on every
	// committed change to Record. WrittenRevision is the Revision of the
	// last video row the warehouse accepted.
	Generation      uint64 `json:"-"`
	Revision        uint64 `json:"-"`
	WrittenRevision uint64 `json:"-"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Record = e.Record.Clone()
	out.Insights = e.Insights.Clone()
	return &out
}

type slot struct {
	mu      sync.Mutex
	removed bool
	entry   *Entry
}

// Catalog is the concurrent table of video records.
type Catalog struct {
	mu    sync.RWMutex
	slots map[string]*slot
	store Store
}

// New creates an empty catalog. A nil store keeps the catalog memory-only.
func New(store Store) *Catalog {
	if store == nil {
		store = NopStore{}
	}
	return &Catalog{
		slots: make(map[string]*slot),
		store: store,
	}
}

// Restore loads every entry from the store into an empty catalog. In-flight
// claims are not restored, so records caught mid-submit simply keep their
// last committed state.
func (c *Catalog) Restore(ctx context.Context) (int, error) {
	entries, err := c.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range entries {
		if e == nil || e.Record == nil {
			continue
		}
		if err := e.Record.Validate(); err != nil {
			slog.Warn("skipping invalid catalog entry", "video_id", e.Record.ID, "error", err)
			continue
		}
		e.Submitting, e.Reconciling = false, false
		c.slots[e.Record.ID] = &slot{entry: e}
		n++
	}
	return n, nil
}

// Insert adds a new record.
func (c *Catalog) Insert(ctx context.Context, rec *model.VideoRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s := &slot{entry: &Entry{Record: rec.Clone()}}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.mu.Lock()
	if _, ok := c.slots[rec.ID]; ok {
		c.mu.Unlock()
		return ErrDuplicate
	}
	c.slots[rec.ID] = s
	c.mu.Unlock()

	c.persist(ctx, s.entry)
	return nil
}

// Get returns a copy of the entry for id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	s := c.lookup(id)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, false
	}
	return s.entry.Clone(), true
}

// Update runs fn against a working copy of the entry while holding the entry's
// lock. The copy replaces the stored entry only if fn returns nil and the
// record still validates; otherwise nothing changes and fn's error (or the
// validation error) is returned. Update never holds the table lock while fn
// runs.
func (c *Catalog) Update(ctx context.Context, id string, fn func(e *Entry) error) error {
	s := c.lookup(id)
	if s == nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return ErrNotFound
	}

	work := s.entry.Clone()
	if err := fn(work); err != nil {
		return err
	}
	if work.Record == nil || work.Record.ID != id {
		return model.ErrMissingVideoID
	}
	if err := work.Record.Validate(); err != nil {
		return err
	}
	if !work.Record.Equal(s.entry.Record) {
		work.Revision = s.entry.Revision + 1
	}
	s.entry = work
	c.persist(ctx, work)
	return nil
}

// Remove deletes the entry for id and returns its last state. Any Update that
// was waiting on the entry's lock observes ErrNotFound afterwards.
func (c *Catalog) Remove(ctx context.Context, id string) (*Entry, bool) {
	c.mu.Lock()
	s, ok := c.slots[id]
	if ok {
		delete(c.slots, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, false
	}
	s.removed = true
	if err := c.store.Delete(ctx, id); err != nil {
		slog.Warn("failed to delete catalog entry from store", "video_id", id, "error", err)
	}
	return s.entry.Clone(), true
}

// Snapshot returns a copy of every entry, ordered by upload time then id. Each
// entry is copied under its own lock, so no record is observed mid-transition.
func (c *Catalog) Snapshot() []*Entry {
	c.mu.RLock()
	slots := make([]*slot, 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	c.mu.RUnlock()

	out := make([]*Entry, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		if !s.removed {
			out = append(out, s.entry.Clone())
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Record, out[j].Record
		if !a.UploadedAt.Equal(b.UploadedAt) {
			return a.UploadedAt.Before(b.UploadedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

func (c *Catalog) lookup(id string) *slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots[id]
}

func (c *Catalog) persist(ctx context.Context, e *Entry) {
	if err := c.store.Save(ctx, e); err != nil {
		slog.Warn("failed to write catalog entry to store", "video_id", e.Record.ID, "error", err)
	}
}
