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

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

const writeStripes = 64

// warehouseWriter forwards catalog state to the warehouse. Writes are best
// effort: a failure raises the entry's pending flag and the next repair pass
// writes the then-current state again.
//
// Video rows for one id are written one at a time, each carrying the record
// as it is in the catalog when the write starts, so the last row to land is
// never older than the last revision recorded as written.
type warehouseWriter struct {
	catalog   *catalog.Catalog
	analytics Analytics
	stripes   [writeStripes]sync.Mutex
}

func newWarehouseWriter(cat *catalog.Catalog, analytics Analytics) *warehouseWriter {
	return &warehouseWriter{catalog: cat, analytics: analytics}
}

func (w *warehouseWriter) stripe(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &w.stripes[h.Sum32()%writeStripes]
}

// writeVideo upserts the current record for id. VideoPending is cleared only
// when the written revision is still the record's revision.
func (w *warehouseWriter) writeVideo(ctx context.Context, id string) error {
	mu := w.stripe(id)
	mu.Lock()
	defer mu.Unlock()

	e, ok := w.catalog.Get(id)
	if !ok {
		// Deleted; the delete path owns the row.
		return nil
	}
	revision := e.Revision
	err := w.analytics.UpsertVideo(ctx, e.Record)
	if err != nil {
		slog.WarnContext(ctx, "warehouse video write failed, will repair", "video_id", id, "error", err)
	}
	w.settle(ctx, id, func(e *catalog.Entry) {
		if err == nil {
			e.WrittenRevision = revision
		}
		e.VideoPending = err != nil || e.WrittenRevision != e.Revision
	})
	return err
}

func (w *warehouseWriter) writeInsights(ctx context.Context, videoID string, bundle *model.InsightBundle) error {
	err := w.analytics.UpsertInsights(ctx, videoID, bundle)
	if err != nil {
		slog.WarnContext(ctx, "warehouse insights write failed, will repair", "video_id", videoID, "error", err)
	}
	w.settle(ctx, videoID, func(e *catalog.Entry) {
		e.InsightsPending = err != nil
	})
	return err
}

func (w *warehouseWriter) settle(ctx context.Context, id string, fn func(e *catalog.Entry)) {
	err := w.catalog.Update(ctx, id, func(e *catalog.Entry) error {
		fn(e)
		return nil
	})
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		slog.WarnContext(ctx, "failed to record warehouse state", "video_id", id, "error", err)
	}
}

// repair re-attempts every pending warehouse write. Insights are written
// before the video row, matching the order used on the Indexed commit.
func (w *warehouseWriter) repair(ctx context.Context) (int, error) {
	var errs []error
	repaired := 0
	for _, e := range w.catalog.Snapshot() {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}
		if !e.VideoPending && !e.InsightsPending {
			continue
		}
		id := e.Record.ID
		ok := true
		if e.InsightsPending {
			if e.Insights == nil {
				// Nothing left to write.
				w.settle(ctx, id, func(e *catalog.Entry) { e.InsightsPending = false })
			} else if err := w.writeInsights(ctx, id, e.Insights); err != nil {
				errs = append(errs, err)
				ok = false
			}
		}
		if e.VideoPending {
			if err := w.writeVideo(ctx, id); err != nil {
				errs = append(errs, err)
				ok = false
			}
		}
		if ok {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}
