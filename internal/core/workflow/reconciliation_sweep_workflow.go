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
// This file holds the periodic sweep. Job notifications and reads reconcile
// most videos, but a lost message or a restart can leave a video Indexing
// with nobody looking at it; the sweep polls every such video on a timer and
// retries warehouse writes that failed earlier.
package workflow

import (
	"context"
	"time"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const sweepScope = "github.com/jaycherian/gcp-go-video-catalog/workflow/sweep"

var sweepLogger = otelslog.NewLogger(sweepScope)

// ReconciliationSweepWorkflow runs the indexing sweep and the warehouse repair
// on every tick. A failed sweep does not stop the repair.
type ReconciliationSweepWorkflow struct {
	cor.BaseCommand
	interval time.Duration
	chain    cor.Chain
}

func NewReconciliationSweepWorkflow(reconciler commands.Reconciler, interval time.Duration) *ReconciliationSweepWorkflow {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &ReconciliationSweepWorkflow{
		BaseCommand: *cor.NewBaseCommand("reconciliation-sweep-workflow"),
		interval:    interval,
	}
	w.chain = cor.NewBaseChain(w.GetName()).
		ContinueOnFailure(true).
		AddCommand(commands.NewIndexingSweep("sweep-indexing-videos", reconciler)).
		AddCommand(commands.NewWarehouseRepair("repair-warehouse", reconciler))
	return w
}

// IsExecutable only needs a span context; the tick is added by RunOnce.
func (w *ReconciliationSweepWorkflow) IsExecutable(chCtx cor.Context) bool {
	return chCtx != nil && chCtx.GetContext() != nil
}

func (w *ReconciliationSweepWorkflow) Execute(chCtx cor.Context) {
	if chCtx.Get(commands.ParamTick) == nil {
		chCtx.Add(commands.ParamTick, time.Now())
	}
	w.chain.Execute(chCtx)
}

// RunOnce runs one sweep in its own trace and returns the chain errors.
func (w *ReconciliationSweepWorkflow) RunOnce(ctx context.Context, tick time.Time) error {
	traceCtx, span := otel.Tracer("reconciliation-sweep").Start(ctx, "reconciliation-sweep")
	defer span.End()

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(traceCtx)
	chCtx.Add(commands.ParamTick, tick)
	w.Execute(chCtx)

	if err := chCtx.Err(); err != nil {
		span.SetStatus(codes.Error, "sweep failed")
		sweepLogger.ErrorContext(traceCtx, "reconciliation sweep failed", "error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// StartTimer runs the sweep every interval until ctx is cancelled. The
// returned channel is closed once the timer goroutine has stopped.
func (w *ReconciliationSweepWorkflow) StartTimer(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(w.interval)
	sweepLogger.InfoContext(ctx, "starting reconciliation sweep", "interval", w.interval.String())
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case tick := <-ticker.C:
				_ = w.RunOnce(ctx, tick)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
