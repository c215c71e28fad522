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

// Package cloud provides components for interacting with Google Cloud services.
// This file defines the Pub/Sub listener that feeds job notifications into a
// command chain. A message is acknowledged only when the chain finishes
// without errors; otherwise it is nacked and redelivered under the
// subscription's retry policy.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MessageHandler runs a command against one message payload and reports
// whether the message should be acknowledged.
type MessageHandler func(ctx context.Context, data []byte) bool

// PubSubListener connects one subscription to a command.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener on subscriptionID. command may be nil
// and attached later with SetCommand.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches command unless one is already set.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen receives messages in the background until ctx is cancelled.
func (m *PubSubListener) Listen(ctx context.Context) {
	if m.command == nil {
		slog.Error("listener has no command", "subscription", m.subscription.String())
		return
	}
	slog.Info("listening", "subscription", m.subscription.String())
	handle := CommandHandler(m.command)
	go func() {
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			if handle(msgCtx, msg.Data) {
				msg.Ack()
				return
			}
			msg.Nack()
		})
		if err != nil {
			slog.Error("error receiving messages", "subscription", m.subscription.String(), "error", err)
		}
	}()
}

// CommandHandler wraps command so each payload runs in its own traced chain
// context with the payload, as a string, under CtxIn.
func CommandHandler(command cor.Command) MessageHandler {
	tracer := otel.Tracer("message-listener")
	return func(ctx context.Context, data []byte) bool {
		spanCtx, span := tracer.Start(ctx, "receive-message")
		defer span.End()
		span.SetAttributes(attribute.String("msg", string(data)))

		chCtx := cor.NewContextWithInput(spanCtx, string(data))
		command.Execute(chCtx)
		if err := chCtx.Err(); err != nil {
			span.SetStatus(codes.Error, "failed")
			slog.ErrorContext(spanCtx, "error executing chain", "command", command.GetName(), "error", err)
			return false
		}
		span.SetStatus(codes.Ok, "success")
		return true
	}
}
