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
// Package workflow assembles commands into the catalog's background chains.
// This file builds the chain each Gemini indexing job runs: the video goes to
// the model together with the insights prompt, and the JSON answer is decoded
// into a normalized InsightBundle that becomes the job's result.
package workflow

import (
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
)

// InsightsExtractionWorkflow turns the *genai.FileData of a video into a
// *model.InsightBundle.
type InsightsExtractionWorkflow struct {
	cor.BaseCommand
	genaiModel      *cloud.QuotaAwareGenerativeAIModel
	insightTemplate *template.Template
	chain           cor.Chain
}

func (w *InsightsExtractionWorkflow) Execute(chCtx cor.Context) {
	w.chain.Execute(chCtx)
}

func (w *InsightsExtractionWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewInsightsGenerator("generate-video-insights", w.genaiModel, w.insightTemplate))
	out.AddCommand(commands.NewInsightsJsonToBundle("convert-video-insights"))
	w.chain = out
}

// NewInsightsExtractionWorkflow parses the insights prompt and builds the chain.
func NewInsightsExtractionWorkflow(config *cloud.Config, genaiModel *cloud.QuotaAwareGenerativeAIModel) (*InsightsExtractionWorkflow, error) {
	if genaiModel == nil {
		return nil, fmt.Errorf("agent model %q is not configured", config.Indexing.AgentModel)
	}
	insightTemplate, err := template.New("insights-template").Parse(config.PromptTemplates.InsightsPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse insights prompt: %w", err)
	}
	w := &InsightsExtractionWorkflow{
		BaseCommand:     *cor.NewBaseCommand("insights-extraction-workflow"),
		genaiModel:      genaiModel,
		insightTemplate: insightTemplate,
	}
	w.initializeChain()
	return w, nil
}
