package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTurn is a single scripted reply from the mock provider.
type MockTurn struct {
	Text  string        // streamed in small chunks
	Usage Usage         // reported after the text
	Delay time.Duration // wait before the first chunk
	// ChunkDelay waits between chunks so tests can cancel mid-reply.
	ChunkDelay time.Duration
	// Error fails the stream after any text has been sent.
	Error error
	// StartError makes Stream itself fail.
	StartError error
}

// MockProvider returns scripted replies and records every request.
type MockProvider struct {
	name      string
	turns     []MockTurn
	turnIndex int
	Requests  []Request
	mu        sync.Mutex
}

func NewMockProvider(name string) *MockProvider {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

// AddTurn appends a reply and returns the provider for chaining.
func (m *MockProvider) AddTurn(t MockTurn) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return m
}

func (m *MockProvider) AddTextResponse(text string) *MockProvider {
	return m.AddTurn(MockTurn{Text: text})
}

func (m *MockProvider) AddError(err error) *MockProvider {
	return m.AddTurn(MockTurn{Error: err})
}

// RequestCount returns how many requests have been made.
func (m *MockProvider) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return Request{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

func (m *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	if m.turnIndex >= len(m.turns) {
		m.mu.Unlock()
		return nil, fmt.Errorf("mock provider: no more turns configured (expected turn %d, have %d)", m.turnIndex, len(m.turns))
	}
	turn := m.turns[m.turnIndex]
	m.turnIndex++
	m.mu.Unlock()

	if turn.StartError != nil {
		return nil, turn.StartError
	}

	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if err := sleepCtx(ctx, turn.Delay); err != nil {
			return err
		}
		for i, chunk := range chunkText(turn.Text, 10) {
			if i > 0 {
				if err := sleepCtx(ctx, turn.ChunkDelay); err != nil {
					return err
				}
			}
			if err := send(ctx, ch, Event{Type: EventTextDelta, Text: chunk}); err != nil {
				return err
			}
		}
		if turn.Error != nil {
			return turn.Error
		}
		usage := turn.Usage
		if err := send(ctx, ch, Event{Type: EventUsage, Use: &usage}); err != nil {
			return err
		}
		return send(ctx, ch, Event{Type: EventDone})
	}), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// chunkText splits text into pieces of about chunkSize bytes, preferring
// to break after a space and never inside a UTF-8 sequence.
func chunkText(text string, chunkSize int) []string {
	if len(text) == 0 {
		return nil
	}
	var chunks []string
	for len(text) > chunkSize {
		breakPoint := chunkSize
		for i := chunkSize; i > chunkSize/2; i-- {
			if text[i-1] == ' ' {
				breakPoint = i
				break
			}
		}
		for breakPoint < len(text) && !isRuneStart(text[breakPoint]) {
			breakPoint++
		}
		chunks = append(chunks, text[:breakPoint])
		text = text[breakPoint:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
