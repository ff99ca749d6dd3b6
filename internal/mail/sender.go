// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package mail provides the outbound email collaborator.
//
// Actual delivery belongs to an external service; this package ships a
// logging sender for local use. It satisfies auth.EmailSender.
package mail

import (
	"context"
	"log/slog"
)

// LogSender writes outbound mail to the structured log instead of
// delivering it. Used in development and as the default wiring until a
// real delivery backend is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger falls back to the
// default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message. It never fails; the body is logged at debug
// level only so one-time codes don't land in production logs.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "outbound email", "to", to, "subject", subject)
	s.logger.DebugContext(ctx, "outbound email body", "to", to, "body", body)
	return nil
}
