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

package cor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"github.com/stretchr/testify/assert"
)

type upper struct {
	cor.BaseCommand
	calls int
}

func (u *upper) Execute(chCtx cor.Context) {
	u.calls++
	u.Succeed(chCtx, strings.ToUpper(chCtx.Get(u.GetInputParam()).(string)))
}

type failing struct {
	cor.BaseCommand
}

func (f *failing) Execute(chCtx cor.Context) {
	f.Fail(chCtx, errors.New("boom"))
}

func TestChainPromotesOutput(t *testing.T) {
	first := &upper{BaseCommand: *cor.NewBaseCommand("first")}
	second := &upper{BaseCommand: *cor.NewBaseCommand("second")}
	chain := cor.NewBaseChain("test").AddCommand(first).AddCommand(second)

	ctx := context.Background()
	chCtx := cor.NewContextWithInput(ctx, "abc")
	chain.Execute(chCtx)

	assert.Equal(t, ctx, chCtx.GetContext())
	assert.False(t, chCtx.HasErrors())
	assert.Nil(t, chCtx.Err())
	assert.Equal(t, "ABC", chCtx.Get(cor.CtxIn))
	assert.Nil(t, chCtx.Get(cor.CtxOut))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChainStopsOnFailure(t *testing.T) {
	after := &upper{BaseCommand: *cor.NewBaseCommand("after")}
	chain := cor.NewBaseChain("test").
		AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("failing")}).
		AddCommand(after)

	chCtx := cor.NewContextWithInput(context.Background(), "abc")
	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.ErrorContains(t, chCtx.Err(), "boom")
	assert.Contains(t, chCtx.GetErrors(), "failing")
	assert.Equal(t, 0, after.calls)
}

func TestChainContinueOnFailure(t *testing.T) {
	after := &upper{BaseCommand: *cor.NewBaseCommand("after")}
	chain := cor.NewBaseChain("test").
		ContinueOnFailure(true).
		AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("before")}).
		AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("failing")}).
		AddCommand(after)

	chCtx := cor.NewContextWithInput(context.Background(), "abc")
	chain.Execute(chCtx)

	// The failing command wrote no output, so the next input is gone and
	// "after" is skipped as not executable.
	assert.Equal(t, 0, after.calls)
	assert.Len(t, chCtx.GetErrors(), 1)
}

func TestCommandNeedsInput(t *testing.T) {
	cmd := &upper{BaseCommand: *cor.NewBaseCommand("upper")}
	assert.False(t, cmd.IsExecutable(cor.NewBaseContext()))

	chCtx := cor.NewBaseContext()
	chCtx.Add(cor.CtxIn, "x")
	assert.False(t, cmd.IsExecutable(chCtx), "missing span context")

	chCtx.SetContext(context.Background())
	assert.True(t, cmd.IsExecutable(chCtx))

	named := &upper{BaseCommand: cor.BaseCommand{Name: "named", InputParamName: "video"}}
	assert.False(t, named.IsExecutable(chCtx))
	chCtx.Add("video", "y")
	assert.True(t, named.IsExecutable(chCtx))
}

func TestErrJoinsInNameOrder(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.AddError("b", errors.New("second"))
	chCtx.AddError("a", errors.New("first"))
	assert.Equal(t, "first\nsecond", chCtx.Err().Error())
}
