package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDebugProviderVariants(t *testing.T) {
	tests := []struct {
		model     string
		wantName  string
		wantChunk int
	}{
		{"", "debug", 20},
		{"debug", "debug", 20},
		{" fast ", "debug:fast", 50},
		{"realtime", "debug:realtime", 5},
		{"warp-speed", "debug:warp-speed", 20},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			p := NewDebugProvider(tt.model)
			if got := p.Name(); got != tt.wantName {
				t.Errorf("Name() = %q, want %q", got, tt.wantName)
			}
			if p.preset.ChunkSize != tt.wantChunk {
				t.Errorf("chunk size = %d, want %d", p.preset.ChunkSize, tt.wantChunk)
			}
		})
	}
}

func TestDebugProviderEchoesLastUserMessage(t *testing.T) {
	p := NewDebugProvider("fast")
	req := Request{Messages: []Message{
		SystemText("be nice"),
		UserText("first question"),
		AssistantText("an answer"),
		UserText("what\n  about   this?"),
	}}
	stream, err := p.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	text, usage, err := Collect(stream)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !strings.HasPrefix(text, `You said: "what about this?"`) {
		t.Errorf("reply should echo the last user message, got %q", text[:min(60, len(text))])
	}
	if !strings.HasSuffix(text, debugMarkdown) {
		t.Error("reply should end with the canned markdown")
	}
	if usage.InputTokens == 0 || usage.OutputTokens != len(text)/4 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestDebugProviderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := NewDebugProvider("slow").Stream(ctx, Request{})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	first, err := stream.Recv()
	if err != nil || first.Type != EventTextDelta {
		t.Fatalf("first event = %+v, %v", first, err)
	}
	cancel()

	text, _, err := Collect(stream)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(first.Text)+len(text) >= len(debugMarkdown) {
		t.Error("cancelled stream should not deliver the whole reply")
	}
}
