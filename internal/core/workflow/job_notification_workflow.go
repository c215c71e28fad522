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
package workflow

import (
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
)

// JobNotificationWorkflow is attached to the job notification subscription:
// it parses the message and reconciles the video it names.
type JobNotificationWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewJobNotificationWorkflow(reconciler commands.Reconciler) *JobNotificationWorkflow {
	w := &JobNotificationWorkflow{BaseCommand: *cor.NewBaseCommand("job-notification-workflow")}
	w.chain = cor.NewBaseChain(w.GetName()).
		AddCommand(commands.NewJobNotificationReader("read-job-notification")).
		AddCommand(commands.NewJobReconciler("reconcile-job", reconciler))
	return w
}

func (w *JobNotificationWorkflow) Execute(chCtx cor.Context) {
	w.chain.Execute(chCtx)
}
