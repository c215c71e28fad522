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
// Package commands contains the individual steps of the catalog's background
// chains. This file holds the Gemini call that turns a stored video into the
// raw JSON of an insight bundle.
//
// Logic Flow:
//  1. The input is the *genai.FileData of the video (its "gs://" location and
//     MIME type), set by the indexer together with the video name.
//  2. The prompt template is rendered with an example bundle as JSON, so the
//     model answers in the exact shape InsightsJsonToBundle expects.
//  3. The prompt and the video are sent through the rate limited model; token
//     usage and retries are counted per command.
//  4. The response text is written to the output parameter.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// InsightsGenerator asks Gemini for the insights of one video.
type InsightsGenerator struct {
	cor.BaseCommand
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewInsightsGenerator creates the command and its token counters.
func NewInsightsGenerator(
	name string,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *InsightsGenerator {

	out := &InsightsGenerator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template,
	}
	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	return out
}

// GenerateParams builds the template parameters: EXAMPLE_JSON and VIDEO_NAME.
func (t *InsightsGenerator) GenerateParams(chCtx cor.Context) map[string]interface{} {
	params := make(map[string]interface{})
	example, _ := json.Marshal(model.GetExampleInsights())
	params["EXAMPLE_JSON"] = string(example)
	params["VIDEO_NAME"] = ""
	if name, ok := chCtx.Get(cloud.ParamVideoName).(string); ok {
		params["VIDEO_NAME"] = name
	}
	return params
}

func (t *InsightsGenerator) Execute(chCtx cor.Context) {
	mediaFile, ok := chCtx.Get(t.GetInputParam()).(*genai.FileData)
	if !ok {
		t.Fail(chCtx, fmt.Errorf("input %s is not video file data", t.GetInputParam()))
		return
	}

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(chCtx)); err != nil {
		t.Fail(chCtx, fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buffer.String()},
				{FileData: &genai.FileData{FileURI: mediaFile.FileURI, MIMEType: mediaFile.MIMEType}},
			},
		},
	}

	out, err := cloud.GenerateMultiModalResponse(chCtx.GetContext(),
		t.geminiInputTokenCounter, t.geminiOutputTokenCounter, t.geminiRetryCounter,
		0, t.generativeAIModel, contents)
	if err != nil {
		t.Fail(chCtx, fmt.Errorf("gemini request failed: %w", err))
		return
	}
	t.Succeed(chCtx, out)
}
