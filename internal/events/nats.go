package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectRoot prefixes per-profile subjects.
const DefaultSubjectRoot = "menusync.events"

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes sync events to <root>.<profile>.
type NATSPublisher struct {
	conn        natsConn
	subjectRoot string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subjectRoot string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("otter-menusync"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSPublisher(conn, subjectRoot), nil
}

func newNATSPublisher(conn natsConn, subjectRoot string) *NATSPublisher {
	subjectRoot = strings.Trim(strings.TrimSpace(subjectRoot), ".")
	if subjectRoot == "" {
		subjectRoot = DefaultSubjectRoot
	}
	return &NATSPublisher{conn: conn, subjectRoot: subjectRoot}
}

// Publish encodes event as JSON and publishes it.
func (p *NATSPublisher) Publish(_ context.Context, event SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	subject := p.Subject(event.Profile)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subject returns the subject used for profile.
func (p *NATSPublisher) Subject(profile string) string {
	return p.subjectRoot + "." + subjectToken(profile)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// subjectToken makes profile safe as a single NATS subject token.
func subjectToken(profile string) string {
	profile = strings.TrimSpace(strings.ToLower(profile))
	if profile == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, profile)
}
