// Package notify mirrors session status changes to external subscribers.
package notify

import (
	"context"

	"github.com/okian/dilemma/internal/domain/model"
)

// Notifier receives every status a tournament run writes.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, status model.Status) error
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string, model.Status) error { return nil }
