package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// debugPreset controls how fast the debug provider streams.
type debugPreset struct {
	ChunkSize int
	Delay     time.Duration
}

var debugPresets = map[string]debugPreset{
	"fast":     {ChunkSize: 50, Delay: 5 * time.Millisecond},
	"normal":   {ChunkSize: 20, Delay: 20 * time.Millisecond},
	"slow":     {ChunkSize: 10, Delay: 50 * time.Millisecond},
	"realtime": {ChunkSize: 5, Delay: 30 * time.Millisecond},
}

const debugMarkdown = "# Debug reply\n\n" +
	"This reply was produced offline by the **debug** provider. It exercises the chat\n" +
	"screen without an API key.\n\n" +
	"## A code block\n\n" +
	"```go\npackage main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello from elia\")\n}\n```\n\n" +
	"## A list\n\n" +
	"- first item with `inline code`\n" +
	"- second item with *emphasis*\n" +
	"  - nested item\n\n" +
	"| Provider | Streams |\n|---|---|\n| openai | yes |\n| anthropic | yes |\n| google | yes |\n\n" +
	"> Press ctrl+b to copy the code block above.\n"

// DebugProvider streams canned markdown, echoing the last user message.
// The model name picks the speed: fast, normal, slow or realtime.
type DebugProvider struct {
	variant string
	preset  debugPreset
}

func NewDebugProvider(variant string) *DebugProvider {
	variant = strings.TrimSpace(variant)
	if variant == "" || variant == "debug" {
		variant = "normal"
	}
	preset, ok := debugPresets[variant]
	if !ok {
		preset = debugPresets["normal"]
	}
	return &DebugProvider{variant: variant, preset: preset}
}

func (d *DebugProvider) Name() string {
	if d.variant == "normal" {
		return "debug"
	}
	return "debug:" + d.variant
}

func (d *DebugProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	text := debugMarkdown
	if last := lastUserText(req.Messages); last != "" {
		text = fmt.Sprintf("You said: %q\n\n%s", preview(last), debugMarkdown)
	}
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		remaining := text
		for len(remaining) > 0 {
			end := min(d.preset.ChunkSize, len(remaining))
			for end < len(remaining) && !isRuneStart(remaining[end]) {
				end++
			}
			if err := send(ctx, ch, Event{Type: EventTextDelta, Text: remaining[:end]}); err != nil {
				return err
			}
			remaining = remaining[end:]
			if len(remaining) > 0 {
				if err := sleepCtx(ctx, d.preset.Delay); err != nil {
					return err
				}
			}
		}
		usage := Usage{InputTokens: approxTokens(req.Messages), OutputTokens: len(text) / 4}
		if err := send(ctx, ch, Event{Type: EventUsage, Use: &usage}); err != nil {
			return err
		}
		return send(ctx, ch, Event{Type: EventDone})
	}), nil
}

func approxTokens(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n / 4
}
