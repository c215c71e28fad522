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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope shared by every command.
const MeterName = "github.com/jaycherian/gcp-go-video-catalog"

// BaseCommand holds the plumbing every command shares. Concrete commands embed
// it and implement Execute.
type BaseCommand struct {
	Name            string
	InputParamName  string // defaults to CtxIn
	OutputParamName string // defaults to CtxOut
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter
	ErrorCounter    metric.Int64Counter
}

// NewBaseCommand creates the tracer and the "<name>.counter.success" and
// "<name>.counter.error" counters for a command. Counter creation failures are
// logged and leave a nil counter; callers must not rely on counters existing.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterName)
	success, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Error("failed to create success counter", "command", name, "error", err)
	}
	failure, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Error("failed to create error counter", "command", name, "error", err)
	}
	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: success,
		ErrorCounter:   failure,
	}
}

func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a span context and a non-nil input.
func (c *BaseCommand) IsExecutable(chCtx Context) bool {
	return chCtx != nil && chCtx.GetContext() != nil && chCtx.Get(c.GetInputParam()) != nil
}

func (c *BaseCommand) GetInputParam() string {
	if c.InputParamName == "" {
		return CtxIn
	}
	return c.InputParamName
}

func (c *BaseCommand) GetOutputParam() string {
	if c.OutputParamName == "" {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Fail records err under the command name and bumps the error counter.
func (c *BaseCommand) Fail(chCtx Context, err error) {
	chCtx.AddError(c.GetName(), err)
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(chCtx.GetContext(), 1)
	}
}

// Succeed stores out under the output key and bumps the success counter.
func (c *BaseCommand) Succeed(chCtx Context, out interface{}) {
	if out != nil {
		chCtx.Add(c.GetOutputParam(), out)
	}
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(chCtx.GetContext(), 1)
	}
}
