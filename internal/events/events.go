// Package events fans sync results out to WebSocket clients and NATS.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
)

const (
	// MessageTypeSync tags sync run notifications.
	MessageTypeSync = "menu_sync"
	// MessageTypeConnection tags the greeting sent to new WebSocket clients.
	MessageTypeConnection = "connection"
)

// SyncEvent summarizes one finished sync run.
type SyncEvent struct {
	RunID        string              `json:"run_id"`
	Profile      string              `json:"profile"`
	RestaurantID string              `json:"restaurant_id,omitempty"`
	DryRun       bool                `json:"dry_run"`
	Status       domain.ResultStatus `json:"status"`
	SyncStatus   *domain.SyncStatus  `json:"sync_status,omitempty"`
	Error        string              `json:"error,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// NewSyncEvent builds an event from a sync result. The menu body is left out.
func NewSyncEvent(result domain.SyncResult) SyncEvent {
	return SyncEvent{
		RunID:        result.RunID,
		Profile:      result.Profile,
		RestaurantID: result.RestaurantID,
		DryRun:       result.DryRun,
		Status:       result.Status,
		SyncStatus:   result.SyncStatus,
		Error:        result.Error,
		Timestamp:    result.Timestamp,
	}
}

// Message is the envelope written to WebSocket clients.
type Message struct {
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers sync events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event SyncEvent) error
}

// Fanout publishes to several publishers and reports every sync result.
type Fanout struct {
	publishers []Publisher
}

// NewFanout skips nil publishers.
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, publisher := range publishers {
		if publisher != nil {
			f.publishers = append(f.publishers, publisher)
		}
	}
	return f
}

// Publish sends event to every publisher and joins their errors.
func (f *Fanout) Publish(ctx context.Context, event SyncEvent) error {
	var errs []error
	for _, publisher := range f.publishers {
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Report converts result to an event and publishes it.
func (f *Fanout) Report(ctx context.Context, result domain.SyncResult) error {
	return f.Publish(ctx, NewSyncEvent(result))
}
