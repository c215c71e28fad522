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
	"fmt"
	"log/slog"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// DefaultContentType is used when the caller gives none and the bytes are not
// recognised.
const DefaultContentType = "video/mp4"

// UploadRequest is the input of an upload.
type UploadRequest struct {
	Filename    string `validate:"required,max=1024"`
	Data        []byte `validate:"required,min=1"`
	ContentType string `validate:"omitempty,max=255"`
}

// UploadCoordinator writes the bytes to the object store and, only once that
// succeeded, creates the catalog record.
type UploadCoordinator struct {
	catalog   *catalog.Catalog
	store     ObjectStore
	warehouse *warehouseWriter
	validate  *validator.Validate
}

// NewUploadCoordinator creates an UploadCoordinator.
func NewUploadCoordinator(cat *catalog.Catalog, store ObjectStore, analytics Analytics) *UploadCoordinator {
	return &UploadCoordinator{
		catalog:   cat,
		store:     store,
		warehouse: newWarehouseWriter(cat, analytics),
		validate:  validator.New(),
	}
}

// Upload stores a new video and returns its Uploaded record. The object is
// written under "<video id>/<file name>".
//
// Errors: ErrInvalidUpload, ErrStorageWriteFailed. On either error nothing is
// recorded in the catalog.
func (u *UploadCoordinator) Upload(ctx context.Context, req UploadRequest) (*model.VideoRecord, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	name := path.Base(req.Filename)
	if name == "." || name == "/" {
		return nil, fmt.Errorf("%w: bad file name %q", ErrInvalidUpload, req.Filename)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = sniffContentType(req.Data)
	}

	rec := model.NewVideoRecord(name, int64(len(req.Data)), contentType)
	location, err := u.store.Put(ctx, rec.ID+"/"+name, req.Data, contentType)
	if err != nil {
		slog.ErrorContext(ctx, "object store write failed", "video_id", rec.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	rec.ObjectLocation = location

	if err := u.catalog.Insert(ctx, rec); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "video uploaded", "video_id", rec.ID, "location", location, "size", rec.SizeBytes)

	_ = u.warehouse.writeVideo(ctx, rec.ID)
	return rec, nil
}

// sniffContentType looks at the leading bytes; anything unrecognised is
// assumed to be an mp4.
func sniffContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return DefaultContentType
	}
	return kind.MIME.Value
}
