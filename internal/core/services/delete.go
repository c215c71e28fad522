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
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
)

// DeleteCoordinator removes a video from every place it lives.
type DeleteCoordinator struct {
	catalog   *catalog.Catalog
	store     ObjectStore
	indexer   Indexer
	analytics Analytics
}

// NewDeleteCoordinator creates a DeleteCoordinator.
func NewDeleteCoordinator(cat *catalog.Catalog, store ObjectStore, indexer Indexer, analytics Analytics) *DeleteCoordinator {
	return &DeleteCoordinator{catalog: cat, store: store, indexer: indexer, analytics: analytics}
}

// Delete removes the catalog entry first, so no in-flight submit or reconcile
// can commit against it afterwards, and then cleans up the blob, the
// warehouse rows and the indexing job. It reports whether the entry existed;
// cleanup failures are returned joined alongside true.
func (d *DeleteCoordinator) Delete(ctx context.Context, videoID string) (bool, error) {
	e, ok := d.catalog.Remove(ctx, videoID)
	if !ok {
		return false, nil
	}
	rec := e.Record

	var errs []error
	if rec.ObjectLocation != "" {
		existed, err := d.store.Delete(ctx, rec.ObjectLocation)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete object %s: %w", rec.ObjectLocation, err))
		} else if !existed {
			slog.InfoContext(ctx, "object already gone", "video_id", videoID, "location", rec.ObjectLocation)
		}
	}
	if err := d.analytics.DeleteVideo(ctx, videoID); err != nil {
		errs = append(errs, fmt.Errorf("delete warehouse rows: %w", err))
	}
	if deleter, ok := d.indexer.(JobDeleter); ok && rec.IndexJobID != "" {
		if err := deleter.DeleteJob(ctx, rec.IndexJobID); err != nil {
			errs = append(errs, fmt.Errorf("delete indexing job %s: %w", rec.IndexJobID, err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		slog.WarnContext(ctx, "video deleted with cleanup errors", "video_id", videoID, "error", err)
	} else {
		slog.InfoContext(ctx, "video deleted", "video_id", videoID)
	}
	return true, err
}
