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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides a hardcoded insight bundle used as the "few-shot"
// example in the indexing prompt, so the model answers with JSON that
// unmarshals straight into an InsightBundle.
package model

// GetExampleInsights creates a sample InsightBundle for a short product demo.
//
// Outputs:
//   - *InsightBundle: A pointer to a hardcoded bundle with every field populated.
func GetExampleInsights() *InsightBundle {
	transcript := "Welcome to the demo. Today we unbox the new camera and take it out for a test shoot by the lake."
	language := "en-US"
	duration := 94.5

	b := NewInsightBundle()
	b.Transcript = &transcript
	b.Language = &language
	b.DurationSeconds = &duration
	b.Keywords = append(b.Keywords, "demo", "camera", "unboxing")
	b.Topics = append(b.Topics, "Consumer Electronics", "Photography")
	b.Labels = append(b.Labels, "person", "lake", "outdoor", "box")
	b.Brands = append(b.Brands, "Pixel")
	b.Sentiments = append(b.Sentiments,
		Sentiment{Label: "Positive", Score: 0.82},
		Sentiment{Label: "Neutral", Score: 0.15},
	)
	b.Faces = append(b.Faces, Face{ID: "face-1", Name: "Presenter"})
	return b
}
