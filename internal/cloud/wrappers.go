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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements a wrapper around the Generative AI models handle using
// the Decorator design pattern: it adds rate limiting and a bounded retry with
// backoff to every GenerateContent call without changing how callers use it.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a model name, its generation config
//     and the shared `genai.Models` handle behind a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor to create a new instance of the wrapped model.
//   - GenerateContent: Waits for the limiter, calls the model and retries failures.
package cloud

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai Models API the wrapper needs.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel is a decorator that adds rate limiting and
// retries in front of a generative model.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Generation settings sent with every request.
	ModelName               string                       // e.g. "gemini-2.0-flash".
	ModelHandle             ContentGenerator             // Usually the client's *genai.Models.
	RateLimit               *rate.Limiter                // Requests per second, with a burst of the same size.
	RetryBackoff            time.Duration                // Base delay between attempts, doubled each time.
	MaxAttempts             int                          // Total attempts per call.
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel.
//
// Inputs:
//   - wrapped: The generation config applied to every request.
//   - name: The model name.
//   - handle: The models handle that performs the call.
//   - requestsPerSecond: The maximum number of API calls allowed per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, handle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		RetryBackoff:            2 * time.Second,
		MaxAttempts:             3,
	}
}

// GenerateContent waits for a rate limiter token, calls the model and retries
// failed calls with exponential backoff. Every wait honours ctx.
//
// Inputs:
//   - ctx: The context for the request.
//   - content: The parts of the multi-modal prompt (text, video, etc.).
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the AI model if successful.
//   - error: The last error once all attempts are used, or the context error.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	attempts := q.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := q.RetryBackoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
}
