package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

const defaultRetryBackoff = 500 * time.Millisecond

// Engine wraps a provider with logging and retries.
type Engine struct {
	provider   Provider
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxRetries sets how many times a failed stream start is retried.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) { e.maxRetries = max(n, 0) }
}

// WithBackoff sets the first retry delay. It doubles on each retry.
func WithBackoff(d time.Duration) EngineOption {
	return func(e *Engine) { e.backoff = d }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(provider Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		backoff:  defaultRetryBackoff,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provider returns the wrapped provider.
func (e *Engine) Provider() Provider {
	return e.provider
}

// Stream starts a reply. Failures that happen before any text arrives are
// retried; once text has been delivered errors are passed through.
func (e *Engine) Stream(ctx context.Context, req Request) (Stream, error) {
	delay := e.backoff
	for attempt := 0; ; attempt++ {
		e.logger.Debug("llm request",
			"provider", e.provider.Name(),
			"model", req.Model,
			"messages", len(req.Messages),
			"attempt", attempt+1,
			"last_user", preview(lastUserText(req.Messages)),
		)
		stream, first, err := e.start(ctx, req)
		if err == nil {
			return &peekedStream{first: &first, Stream: stream}, nil
		}
		if attempt >= e.maxRetries || !isRetryable(err) {
			e.logger.Warn("llm request failed", "provider", e.provider.Name(), "error", err)
			return nil, err
		}
		e.logger.Info("retrying llm request", "provider", e.provider.Name(), "attempt", attempt+1, "delay", delay, "error", err)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

// start opens a stream and waits for its first event so that immediate
// failures surface as errors.
func (e *Engine) start(ctx context.Context, req Request) (Stream, Event, error) {
	stream, err := e.provider.Stream(ctx, req)
	if err != nil {
		return nil, Event{}, err
	}
	first, err := stream.Recv()
	if err == io.EOF {
		return stream, Event{Type: EventDone}, nil
	}
	if err == nil && first.Type == EventError {
		err = first.Err
		if err == nil {
			err = errors.New("provider reported an error")
		}
	}
	if err != nil {
		stream.Close()
		return nil, Event{}, err
	}
	return stream, first, nil
}

// Complete runs a request and returns the whole reply.
func (e *Engine) Complete(ctx context.Context, req Request) (string, Usage, error) {
	stream, err := e.Stream(ctx, req)
	if err != nil {
		return "", Usage{}, err
	}
	defer stream.Close()
	return Collect(stream)
}

type peekedStream struct {
	Stream
	first *Event
}

func (s *peekedStream) Recv() (Event, error) {
	if s.first != nil {
		ev := *s.first
		s.first = nil
		return ev, nil
	}
	return s.Stream.Recv()
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status, ok := apiStatus(err); ok {
		return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500
	}
	return true
}

func apiStatus(err error) (int, bool) {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode, true
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode, true
	}
	return 0, false
}

// ErrorSummary renders err for display in the UI.
func ErrorSummary(err error) string {
	if status, ok := apiStatus(err); ok {
		return fmt.Sprintf("%s (HTTP %d)", http.StatusText(status), status)
	}
	return err.Error()
}
