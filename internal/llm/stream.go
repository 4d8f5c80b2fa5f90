package llm

import (
	"context"
	"io"
)

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
	// done is closed once the producer goroutine has returned.
	done   <-chan struct{}
}

// newEventStream runs producer in a goroutine and exposes its events as a
// Stream. An error returned by producer becomes a final EventError.
func newEventStream(ctx context.Context, producer func(context.Context, chan<- Event) error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(ch)
		if err := producer(streamCtx, ch); err != nil && streamCtx.Err() == nil {
			_ = send(streamCtx, ch, Event{Type: EventError, Err: err})
		}
	}()
	return &channelStream{ctx: streamCtx, cancel: cancel, events: ch, done: done}
}

// send delivers ev unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- Event, ev Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- ev:
		return nil
	}
}

func (s *channelStream) Recv() (Event, error) {
	// Buffered events win over cancellation so a trailing usage event is
	// not lost when both are ready.
	select {
	case event, ok := <-s.events:
		if !ok {
			return Event{}, s.endErr()
		}
		return event, nil
	default:
	}

	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return Event{}, s.endErr()
		}
		return event, nil
	}
}

// endErr reports a cancelled stream as cancelled rather than complete.
func (s *channelStream) endErr() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (s *channelStream) Close() error {
	s.cancel()
	return nil
}

// Collect drains a stream into its text and usage. The text read before an
// error is returned along with the error.
func Collect(stream Stream) (string, Usage, error) {
	var (
		text  []byte
		usage Usage
	)
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return string(text), usage, nil
		}
		if err != nil {
			return string(text), usage, err
		}
		switch event.Type {
		case EventTextDelta:
			text = append(text, event.Text...)
		case EventUsage:
			if event.Use != nil {
				usage.Add(*event.Use)
			}
		case EventError:
			return string(text), usage, event.Err
		}
	}
}
