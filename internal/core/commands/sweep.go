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
	"log/slog"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
)

// ParamTick holds the time of the timer tick that started a sweep. Both sweep
// commands read it, so the repair runs even when the sweep failed.
const ParamTick = "__TICK__"

// IndexingSweep reconciles every video still Indexing and outputs how many
// videos it examined.
type IndexingSweep struct {
	cor.BaseCommand
	reconciler Reconciler
}

func NewIndexingSweep(name string, reconciler Reconciler) *IndexingSweep {
	out := &IndexingSweep{BaseCommand: *cor.NewBaseCommand(name), reconciler: reconciler}
	out.InputParamName = ParamTick
	return out
}

func (c *IndexingSweep) Execute(chCtx cor.Context) {
	n, err := c.reconciler.Sweep(chCtx.GetContext())
	if err != nil {
		c.Fail(chCtx, err)
		return
	}
	if n > 0 {
		slog.InfoContext(chCtx.GetContext(), "indexing sweep", "reconciled", n)
	}
	c.Succeed(chCtx, n)
}

// WarehouseRepair rewrites warehouse rows whose earlier writes failed.
type WarehouseRepair struct {
	cor.BaseCommand
	reconciler Reconciler
}

func NewWarehouseRepair(name string, reconciler Reconciler) *WarehouseRepair {
	out := &WarehouseRepair{BaseCommand: *cor.NewBaseCommand(name), reconciler: reconciler}
	out.InputParamName = ParamTick
	return out
}

func (c *WarehouseRepair) Execute(chCtx cor.Context) {
	n, err := c.reconciler.RepairWarehouse(chCtx.GetContext())
	if err != nil {
		c.Fail(chCtx, err)
		return
	}
	if n > 0 {
		slog.InfoContext(chCtx.GetContext(), "warehouse repaired", "rows", n)
	}
	c.Succeed(chCtx, n)
}
