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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
)

// Reconciler is the part of the video service the background chains drive.
type Reconciler interface {
	ReconcileJob(ctx context.Context, videoID, jobID string) error
	Sweep(ctx context.Context) (int, error)
	RepairWarehouse(ctx context.Context) (int, error)
}

// JobReconciler reconciles the video named by a *model.JobNotification.
// Notifications for videos that were deleted meanwhile are consumed
// silently; transient failures are errors so the message is redelivered.
type JobReconciler struct {
	cor.BaseCommand
	reconciler Reconciler
}

func NewJobReconciler(name string, reconciler Reconciler) *JobReconciler {
	return &JobReconciler{BaseCommand: *cor.NewBaseCommand(name), reconciler: reconciler}
}

func (c *JobReconciler) Execute(chCtx cor.Context) {
	n, ok := chCtx.Get(c.GetInputParam()).(*model.JobNotification)
	if !ok {
		c.Fail(chCtx, fmt.Errorf("input %s is not a job notification", c.GetInputParam()))
		return
	}
	err := c.reconciler.ReconcileJob(chCtx.GetContext(), n.VideoID, n.JobID)
	if errors.Is(err, services.ErrVideoNotFound) {
		slog.InfoContext(chCtx.GetContext(), "notification for unknown video", "video_id", n.VideoID, "job_id", n.JobID)
		err = nil
	}
	if err != nil {
		c.Fail(chCtx, err)
		return
	}
	c.Succeed(chCtx, n)
}
