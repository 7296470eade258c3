// Package messaging defines the pluggable channel transport abstraction and
// its concrete senders. The engine builds payloads and records outcomes;
// transport-level retry, authentication, and rate limiting live with the
// transports themselves.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/manaaki-care/manaaki/internal/models"
)

// ErrNoSender is returned when a channel has no registered transport.
var ErrNoSender = errors.New("no sender registered for channel")

// Payload is one outbound message, built by the dispatcher. Sound is false
// when the recipient's culture prefers indirect communication.
type Payload struct {
	To                  string            // channel-appropriate address (phone, email, device token)
	Title               string
	Body                string
	Data                map[string]string // opaque data for push payloads
	Sound               bool
	CulturalAdaptations []string
}

// Sender delivers a payload over one channel. Sends are best-effort,
// single-attempt; the caller retries on its next tick.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// Registry maps channels to their transports.
type Registry struct {
	mu      sync.RWMutex
	senders map[models.Channel]Sender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[models.Channel]Sender)}
}

// Register installs a sender for a channel, replacing any previous one.
func (r *Registry) Register(c models.Channel, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[c] = s
}

// Send dispatches the payload over the given channel.
func (r *Registry) Send(ctx context.Context, c models.Channel, p Payload) error {
	r.mu.RLock()
	s, ok := r.senders[c]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSender, c)
	}
	return s.Send(ctx, p)
}

// SentMessage records one delivery made through a MockSender.
type SentMessage struct {
	To    string
	Title string
	Body  string
	Sound bool
}

// MockSender records sends for tests and can be made to fail.
type MockSender struct {
	mu       sync.Mutex
	Sent     []SentMessage
	FailWith error
}

// NewMockSender creates a MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send records the payload, or returns FailWith when set.
func (m *MockSender) Send(_ context.Context, p Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, SentMessage{To: p.To, Title: p.Title, Body: p.Body, Sound: p.Sound})
	return nil
}

// SentCount returns how many payloads were recorded.
func (m *MockSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
