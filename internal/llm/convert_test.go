package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestBuildAnthropicMessagesMergesRoles(t *testing.T) {
	msgs := buildAnthropicMessages([]Message{
		UserText("first"),
		UserText("second"),
		AssistantText("reply"),
		AssistantText(""),
		UserText("third"),
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != anthropic.MessageParamRoleUser || len(msgs[0].Content) != 2 {
		t.Fatalf("first message should merge two user blocks: %+v", msgs[0])
	}
	if msgs[1].Role != anthropic.MessageParamRoleAssistant {
		t.Fatalf("second message role=%q", msgs[1].Role)
	}
}

func TestBuildOpenAIMessages(t *testing.T) {
	msgs := buildOpenAIMessages([]Message{
		SystemText("sys"),
		UserText("hi"),
		AssistantText("hello"),
		{Role: Role("tool"), Content: "ignored"},
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil || msgs[1].OfUser == nil || msgs[2].OfAssistant == nil {
		t.Fatalf("unexpected message kinds: %+v", msgs)
	}
}

func TestBuildGeminiContents(t *testing.T) {
	contents := buildGeminiContents([]Message{
		SystemText("sys"),
		UserText("hi"),
		AssistantText("hello"),
	})
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("roles=%q,%q", contents[0].Role, contents[1].Role)
	}
}
