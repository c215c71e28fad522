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
package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/workflow"
)

// JobNotifications is the logical name of the job completion topic and its
// subscription in the configuration.
const JobNotifications = "JobNotifications"

// SetupListeners attaches the job notification workflow to its subscription
// and starts receiving. Without a configured subscription the sweep alone
// drives reconciliation.
func SetupListeners(ctx context.Context, clients *cloud.ServiceClients, reconciler commands.Reconciler) {
	listener, ok := clients.PubSubListeners[JobNotifications]
	if !ok {
		slog.Warn("no job notification subscription configured, relying on the reconciliation sweep")
		return
	}
	listener.SetCommand(workflow.NewJobNotificationWorkflow(reconciler))
	listener.Listen(ctx)
}
