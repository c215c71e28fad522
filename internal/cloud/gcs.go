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

// Package cloud contains the Google Cloud implementations of the catalog's
// gateways. This file implements the object store on Google Cloud Storage
// (GCS). Videos are stored in a single bucket as "<video id>/<file name>" and
// addressed by "gs://bucket/object" locations, the form Gemini accepts as
// file data.
//
// Structs:
//   - GCSObjectStore: Put, Delete, List and SignedURL over one bucket.
//   - GCSObject: A parsed "gs://" location.
//
// Functions:
//   - ParseGCSURI: Splits a "gs://bucket/object" location.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const gcsScheme = "gs://"

// GCSObject is a bucket and object name pair.
type GCSObject struct {
	Bucket string // The name of the GCS bucket.
	Name   string // The name of the object.
}

// URI returns the "gs://bucket/name" form.
func (o GCSObject) URI() string {
	return gcsScheme + o.Bucket + "/" + o.Name
}

// ParseGCSURI splits a "gs://bucket/object" location.
func ParseGCSURI(uri string) (GCSObject, error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return GCSObject{}, fmt.Errorf("invalid GCS URI %q: missing %s prefix", uri, gcsScheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return GCSObject{}, fmt.Errorf("invalid GCS URI %q: unable to determine bucket and object", uri)
	}
	return GCSObject{Bucket: parts[0], Name: parts[1]}, nil
}

// GCSObjectStore stores videos in one Cloud Storage bucket.
type GCSObjectStore struct {
	client      *storage.Client
	bucket      string
	iamClient   *credentials.IamCredentialsClient // Optional; signs URLs through IAM when set with signerEmail.
	signerEmail string
}

// NewGCSObjectStore creates a store over bucket. iamClient and signerEmail may
// be empty, in which case URLs are signed with the client's own credentials.
func NewGCSObjectStore(client *storage.Client, bucket string, iamClient *credentials.IamCredentialsClient, signerEmail string) *GCSObjectStore {
	return &GCSObjectStore{client: client, bucket: bucket, iamClient: iamClient, signerEmail: signerEmail}
}

// Put uploads data to name and returns its "gs://" location.
func (s *GCSObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.bucket, name, err)
	}
	// The object only exists once Close succeeds.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", s.bucket, name, err)
	}
	return GCSObject{Bucket: s.bucket, Name: name}.URI(), nil
}

// Delete removes the object at location. A missing object is not an error.
func (s *GCSObjectStore) Delete(ctx context.Context, location string) (bool, error) {
	obj, err := ParseGCSURI(location)
	if err != nil {
		return false, err
	}
	err = s.client.Bucket(obj.Bucket).Object(obj.Name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the location of every object in the bucket.
func (s *GCSObjectStore) List(ctx context.Context) ([]string, error) {
	out := make([]string, 0)
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, GCSObject{Bucket: attrs.Bucket, Name: attrs.Name}.URI())
	}
	return out, nil
}

// SignedURL returns a V4 signed GET URL for the object at location.
func (s *GCSObjectStore) SignedURL(ctx context.Context, location string, expires time.Duration) (string, error) {
	obj, err := ParseGCSURI(location)
	if err != nil {
		return "", err
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if s.iamClient != nil && s.signerEmail != "" {
		opts.GoogleAccessID = s.signerEmail
		opts.SignBytes = func(payload []byte) ([]byte, error) {
			resp, err := s.iamClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    "projects/-/serviceAccounts/" + s.signerEmail,
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := s.client.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", obj.Bucket, obj.Name, err)
	}
	return u, nil
}
