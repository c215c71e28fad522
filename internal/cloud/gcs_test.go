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
package cloud_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/stretchr/testify/assert"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		in      string
		want    cloud.GCSObject
		wantErr bool
	}{
		{in: "gs://videos/v1/clip.mp4", want: cloud.GCSObject{Bucket: "videos", Name: "v1/clip.mp4"}},
		{in: "gs://videos/clip.mp4", want: cloud.GCSObject{Bucket: "videos", Name: "clip.mp4"}},
		{in: "https://storage.googleapis.com/videos/clip.mp4", wantErr: true},
		{in: "gs://videos", wantErr: true},
		{in: "gs://videos/", wantErr: true},
		{in: "gs:///clip.mp4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cloud.ParseGCSURI(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.URI())
		})
	}
}
