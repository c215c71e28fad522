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

	"github.com/go-playground/validator/v10"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// JobNotificationReader parses a Pub/Sub payload into a *model.JobNotification.
type JobNotificationReader struct {
	cor.BaseCommand
	validate *validator.Validate
}

func NewJobNotificationReader(name string) *JobNotificationReader {
	return &JobNotificationReader{BaseCommand: *cor.NewBaseCommand(name), validate: validator.New()}
}

func (c *JobNotificationReader) Execute(chCtx cor.Context) {
	in, ok := chCtx.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(chCtx, fmt.Errorf("input %s is not a string", c.GetInputParam()))
		return
	}
	var out model.JobNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(chCtx, fmt.Errorf("failed to unmarshal job notification: %w", err))
		return
	}
	if err := c.validate.Struct(out); err != nil {
		c.Fail(chCtx, fmt.Errorf("invalid job notification: %w", err))
		return
	}
	c.Succeed(chCtx, &out)
}
