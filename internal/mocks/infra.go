package mocks

import (
	"context"
	"sync"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/captcha"
	"github.com/anon-comments-api/internal/events"
)

// MockCaptcha accepts only ValidToken unless Disabled is set
type MockCaptcha struct {
	mu         sync.Mutex
	ValidToken string
	Disabled   bool
	Calls      int
}

func NewMockCaptcha(validToken string) *MockCaptcha {
	return &MockCaptcha{ValidToken: validToken}
}

func (m *MockCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Disabled {
		return nil
	}
	if token == "" {
		return apperror.Captcha("captcha token is required", nil)
	}
	if token != m.ValidToken {
		return apperror.Captcha("captcha verification failed", nil)
	}
	return nil
}

// PublishedEvent is one event captured by RecordingPublisher
type PublishedEvent struct {
	Subject string
	Payload interface{}
}

// RecordingPublisher keeps every published event in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(subject string, payload interface{}) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Subject: subject, Payload: payload})
	return nil
}

func (p *RecordingPublisher) Close() {}

// Subjects returns the published subjects in order
func (p *RecordingPublisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Subject
	}
	return out
}

// Count returns how many events were published on subject
func (p *RecordingPublisher) Count(subject string) int {
	n := 0
	for _, s := range p.Subjects() {
		if s == subject {
			n++
		}
	}
	return n
}

// Verify interface compliance
var (
	_ captcha.Verifier = (*MockCaptcha)(nil)
	_ events.Publisher = (*RecordingPublisher)(nil)
)
