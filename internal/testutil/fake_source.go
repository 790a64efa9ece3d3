// Package testutil provides testing utilities for the query loader.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

// FakeResponse defines the behavior of one scripted Execute call.
type FakeResponse[T any] struct {
	Items []T
	Err   error
	Delay time.Duration
}

// FakeSource is a configurable scriptable query.Source for testing.
// Responses queued with QueueResponse are consumed in call order; when the
// queue is empty the handler (or an empty result) answers instead.
type FakeSource[T any] struct {
	mu        sync.Mutex
	responses []FakeResponse[T]
	handler   func(params query.Params) ([]T, error)
	calls     []query.Params
	gate      chan struct{}
}

// NewFakeSource creates a new fake source.
func NewFakeSource[T any]() *FakeSource[T] {
	return &FakeSource[T]{}
}

// SetHandler sets the fallback handler answering calls with no queued response.
func (s *FakeSource[T]) SetHandler(handler func(params query.Params) ([]T, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// QueueResponse appends scripted responses consumed one per Execute call.
func (s *FakeSource[T]) QueueResponse(responses ...FakeResponse[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, responses...)
}

// Block makes subsequent Execute calls wait until Unblock, or until their
// context is cancelled. Useful for holding a load in flight.
func (s *FakeSource[T]) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// Unblock releases all Execute calls held by Block.
func (s *FakeSource[T]) Unblock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Execute implements query.Source.
func (s *FakeSource[T]) Execute(ctx context.Context, params query.Params) ([]T, error) {
	s.mu.Lock()
	s.calls = append(s.calls, params)

	gate := s.gate

	var resp *FakeResponse[T]
	if len(s.responses) > 0 {
		r := s.responses[0]
		s.responses = s.responses[1:]
		resp = &r
	}
	handler := s.handler
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resp != nil {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return resp.Items, resp.Err
	}

	if handler != nil {
		return handler(params)
	}

	return nil, nil
}

// CallCount returns the number of Execute calls made so far.
func (s *FakeSource[T]) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Calls returns a copy of the recorded call parameters in order.
func (s *FakeSource[T]) Calls() []query.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]query.Params, len(s.calls))
	copy(out, s.calls)
	return out
}

// Reset clears recorded calls, queued responses, and any block gate.
func (s *FakeSource[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.responses = nil
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}
