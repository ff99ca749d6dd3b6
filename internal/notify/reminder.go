// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package notify provides idempotency guards for the external task
// notifier.
package notify

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/taskhive/taskhive/internal/auth"
)

// ReminderGuard records which task reminders were already sent so the
// external notifier never mails the same reminder twice. Markers share
// the session store and live for auth.ReminderTTL.
type ReminderGuard struct {
	store  auth.SessionStore
	logger *slog.Logger
}

// NewReminderGuard creates a ReminderGuard.
func NewReminderGuard(store auth.SessionStore, logger *slog.Logger) (*ReminderGuard, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderGuard{store: store, logger: logger}, nil
}

// ShouldSend reports whether the reminder for (taskID, hoursBefore) has
// not been sent yet. It does not claim the reminder; call MarkSent after
// a successful send.
func (g *ReminderGuard) ShouldSend(ctx context.Context, taskID string, hoursBefore int) (bool, error) {
	sent, err := g.store.HasMarker(ctx, auth.ReminderKey(taskID, hoursBefore))
	if err != nil {
		return false, err
	}
	return !sent, nil
}

// MarkSent records that the reminder went out. The marker expires after
// auth.ReminderTTL, long past any reminder's usefulness.
func (g *ReminderGuard) MarkSent(ctx context.Context, taskID string, hoursBefore int) error {
	if err := g.store.SetMarker(ctx, auth.ReminderKey(taskID, hoursBefore), auth.ReminderTTL); err != nil {
		return err
	}
	g.logger.Debug("reminder marked sent", "task_id", taskID, "hours_before", hoursBefore)
	return nil
}
