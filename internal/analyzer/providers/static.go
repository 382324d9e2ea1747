package providers

import (
	"context"
	"errors"
	"sync"
)

// StaticProvider replays canned responses in order, cycling when it runs
// out. It makes dry runs possible without network access.
type StaticProvider struct {
	mu        sync.Mutex
	responses []string
	next      int
	calls     [][]Message
}

// NewStaticProvider returns a provider answering with responses
func NewStaticProvider(responses ...string) *StaticProvider {
	return &StaticProvider{responses: responses}
}

// Name returns the provider name
func (s *StaticProvider) Name() string { return "static" }

// Model returns the model name
func (s *StaticProvider) Model() string { return "static" }

// Complete returns the next canned response
func (s *StaticProvider) Complete(ctx context.Context, messages []Message, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, messages)
	if len(s.responses) == 0 {
		return "", errors.New("static provider has no responses")
	}
	r := s.responses[s.next%len(s.responses)]
	s.next++
	return r, nil
}

// Calls returns the conversations received so far
func (s *StaticProvider) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Message(nil), s.calls...)
}
