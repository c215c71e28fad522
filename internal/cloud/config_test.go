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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-catalog/internal/testutil"
)

func TestTestConfigLoads(t *testing.T) {
	config := test.GetConfig(t)

	assert.Equal(t, "video-catalog", config.Application.Name)
	assert.Equal(t, "test-project", config.Application.GoogleProjectId)
	assert.Equal(t, "test_video_catalog_uploads", config.Storage.VideoBucket)
	assert.Equal(t, time.Second, config.Indexing.SweepInterval())
	assert.Contains(t, config.PromptTemplates.InsightsPrompt, "{{ .EXAMPLE_JSON }}")
	assert.Equal(t, "video-index-jobs-sub", config.TopicSubscriptions["JobNotifications"].Name)
	assert.Empty(t, config.Logging.File)
	require.NoError(t, config.Validate())
}

// TestConfiguredTopNKeepsFullTables folds more distinct keywords than the
// configured table length and checks the tables are cut at 100.
func TestConfiguredTopNKeepsFullTables(t *testing.T) {
	config := test.GetConfig(t)
	assert.Equal(t, services.DefaultTopN, config.Indexing.TopN)

	now := time.Now().UTC()
	entries := make([]*catalog.Entry, 0, 120)
	for i := 0; i < 120; i++ {
		rec := model.NewVideoRecord(fmt.Sprintf("v%03d.mp4", i), 1, "video/mp4")
		rec.Status = model.StatusIndexed
		rec.IndexJobID = fmt.Sprintf("job-%d", i)
		rec.IndexedAt = &now
		b := model.NewInsightBundle()
		b.Keywords = []string{fmt.Sprintf("keyword-%03d", i)}
		b.Topics = []string{fmt.Sprintf("topic-%03d", i)}
		entries = append(entries, &catalog.Entry{Record: rec, Insights: b})
	}

	s := services.Fold(entries, config.Indexing.TopN)
	assert.Len(t, s.TopKeywords, 100)
	assert.Len(t, s.TopTopics, 100)
	assert.Equal(t, "keyword-000", s.TopKeywords[0].Keyword)
}

func writeConfig(t *testing.T, dir string, name string, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

const minimalConfig = `
[application]
name = "catalog"
google_project_id = "p"
location = "us-central1"

[storage]
video_bucket = "videos"

[big_query_data_source]
dataset = "d"
videos_table = "v"
insights_table = "i"

[prompt_templates]
insights = "describe {{ .VIDEO_NAME }}"

[indexing]
agent_model = "flash"

[agent_models.flash]
model = "gemini-2.5-flash"
`

func TestLoadConfigRuntimeOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env.toml", minimalConfig)
	writeConfig(t, dir, ".env.local.toml", "[storage]\nvideo_bucket = \"local-videos\"\n")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "local")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "local-videos", config.Storage.VideoBucket)
	assert.Equal(t, "catalog", config.Application.Name)
	assert.Equal(t, 15*time.Minute, config.Storage.SignedURLTTL())
	assert.Equal(t, 30*time.Second, config.Indexing.SweepInterval())
	assert.Equal(t, 10*time.Second, config.Indexing.PollTimeout())
	assert.NoError(t, config.Validate())
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env.toml", "[application\nname = ")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "missing")

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env.toml", minimalConfig)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "none")

	load := func() *cloud.Config {
		config := cloud.NewConfig()
		require.NoError(t, cloud.LoadConfig(config))
		return config
	}

	t.Run("missing bucket", func(t *testing.T) {
		config := load()
		config.Storage.VideoBucket = ""
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(config.Validate(), &verrs))
	})

	t.Run("unknown agent model", func(t *testing.T) {
		config := load()
		config.Indexing.AgentModel = "pro"
		var missing *cloud.MissingModelError
		require.True(t, errors.As(config.Validate(), &missing))
		assert.Equal(t, "pro", missing.Name)
	})

	t.Run("bad redis address", func(t *testing.T) {
		config := load()
		config.CatalogStore.RedisAddr = "not an address"
		assert.Error(t, config.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		config := load()
		config.Logging.Level = "loud"
		assert.Error(t, config.Validate())
	})
}
