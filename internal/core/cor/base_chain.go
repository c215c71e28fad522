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

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands in order inside one parent span. Unless
// ContinueOnFailure is set, the first recorded error stops the chain.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a span context; the first command checks the input.
func (c *BaseChain) IsExecutable(chCtx Context) bool {
	return chCtx != nil && chCtx.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parent := chCtx.GetContext()
	outer, chainSpan := c.Tracer.Start(parent, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parent)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		cmdCtx, span := c.Tracer.Start(outer, command.GetName())
		if command.IsExecutable(chCtx) {
			chCtx.SetContext(cmdCtx)
			command.Execute(chCtx)
			chCtx.SetContext(outer)
		} else {
			span.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}
		if chCtx.HasErrors() {
			span.SetStatus(codes.Error, "command failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		promoteOutput(chCtx)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(outer, 1)
		}
		return
	}
	chainSpan.SetStatus(codes.Ok, "")
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(outer, 1)
	}
}

// promoteOutput makes the last output the next input. A command that wrote
// nothing clears the input.
func promoteOutput(chCtx Context) {
	out := chCtx.Get(CtxOut)
	chCtx.Remove(CtxIn)
	if out != nil {
		chCtx.Add(CtxIn, out)
	}
	chCtx.Remove(CtxOut)
}
