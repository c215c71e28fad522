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

// Package cor is a small Chain of Responsibility used by the background side of
// the catalog: the Gemini indexing workers, the job notification listener and
// the reconciliation sweep all run as chains of commands over a shared Context.
//
// Each command reads its input from the context (CtxIn unless it names another
// key) and writes its result to CtxOut. Between two commands the chain moves
// CtxOut into CtxIn, so the final result of a chain is found under CtxIn.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the key holding the input of the command about to run.
	CtxIn = "__IN__"
	// CtxOut is the key a command writes its result to.
	CtxOut = "__OUT__"
)

// Context carries data and errors between the commands of a chain, along with
// the context.Context of the current span.
type Context interface {
	SetContext(ctx context.Context)
	GetContext() context.Context
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, or returns nil.
	Err() error
}

// Executable is anything that runs against a Context.
type Executable interface {
	Execute(chCtx Context)
}

// Command is one step of a chain, instrumented with a tracer, a meter and a
// pair of success/error counters.
type Command interface {
	Executable
	GetName() string
	GetInputParam() string
	GetOutputParam() string
	IsExecutable(chCtx Context) bool
	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands, run in order.
type Chain interface {
	Command
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
