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
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// InsightsJsonToBundle decodes the model's answer into a normalized
// *model.InsightBundle.
type InsightsJsonToBundle struct {
	cor.BaseCommand
}

func NewInsightsJsonToBundle(name string) *InsightsJsonToBundle {
	return &InsightsJsonToBundle{BaseCommand: *cor.NewBaseCommand(name)}
}

func (s *InsightsJsonToBundle) Execute(chCtx cor.Context) {
	in, ok := chCtx.Get(s.GetInputParam()).(string)
	if !ok {
		s.Fail(chCtx, fmt.Errorf("input %s is not a string", s.GetInputParam()))
		return
	}
	doc := model.NewInsightBundle()
	if err := json.Unmarshal([]byte(in), doc); err != nil {
		s.Fail(chCtx, fmt.Errorf("failed to unmarshal insights JSON: %w", err))
		return
	}
	s.Succeed(chCtx, doc.Normalize())
}
