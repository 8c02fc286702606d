package broker

import (
	"context"
	"sync"

	"github.com/miradorstack/mirador-rca/internal/result"
)

// FakePublisher is an in-memory CausePublisher: it keeps the last
// maxKept envelopes (0 means unbounded) for test assertions.
type FakePublisher struct {
	mu        sync.Mutex
	envelopes []result.Envelope
	maxKept   int
}

// NewFakePublisher constructs a FakePublisher.
func NewFakePublisher(maxKept int) *FakePublisher {
	return &FakePublisher{maxKept: maxKept}
}

// Publish stores env; it never returns an error.
func (p *FakePublisher) Publish(ctx context.Context, env result.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	if p.maxKept > 0 && len(p.envelopes) > p.maxKept {
		p.envelopes = p.envelopes[len(p.envelopes)-p.maxKept:]
	}
	return nil
}

// Envelopes returns a snapshot of every envelope published so far.
func (p *FakePublisher) Envelopes() []result.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]result.Envelope, len(p.envelopes))
	copy(out, p.envelopes)
	return out
}
