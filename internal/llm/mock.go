package llm

import (
	"context"
	"errors"
	"sync"
)

// Mock is a scripted Client for testing. Responses are returned in order;
// every request is recorded for inspection.
type Mock struct {
	mu        sync.Mutex
	Responses []Response
	Errs      []error
	Requests  []Request
	next      int
}

// Ensure Mock implements the Client interface.
var _ Client = (*Mock)(nil)

// NewMock creates a mock client returning the given responses in order.
func NewMock(responses ...Response) *Mock {
	return &Mock{Responses: responses}
}

// Complete records the request and pops the next scripted response or error.
func (m *Mock) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	i := m.next
	m.next++

	if i < len(m.Errs) && m.Errs[i] != nil {
		return Response{}, m.Errs[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return Response{}, errors.New("mock: no scripted response left")
}
