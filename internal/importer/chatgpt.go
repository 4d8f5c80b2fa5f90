// Package importer loads conversations exported from other chat tools.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/tidwall/gjson"
)

// DefaultChatGPTModel is used when an export does not name its model.
const DefaultChatGPTModel = "gpt-3.5-turbo"

// ChatCreator is the part of the chat store the importer needs.
type ChatCreator interface {
	CreateChat(ctx context.Context, chat *chats.Chat, messages []*chats.Message) error
}

// Progress reports how far an import has got.
type Progress struct {
	Current int
	Total   int
	Title   string
}

// Result summarises an import.
type Result struct {
	Chats    int
	Messages int
	Skipped  int
}

// Options configures an import.
type Options struct {
	OnProgress func(Progress)
	Logger     *slog.Logger
}

// ImportChatGPT reads a ChatGPT conversations.json export from r and
// stores each conversation as a chat.
func ImportChatGPT(ctx context.Context, store ChatCreator, r io.Reader, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read export: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return Result{}, errors.New("export is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return Result{}, errors.New("export must be a JSON array of conversations")
	}

	conversations := root.Array()
	var res Result
	for i, conv := range conversations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		chat, messages := parseConversation(conv)
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Current: i + 1, Total: len(conversations), Title: chat.Title})
		}
		if len(messages) == 0 {
			logger.Debug("skipping empty conversation", "title", chat.Title)
			res.Skipped++
			continue
		}
		if err := store.CreateChat(ctx, chat, messages); err != nil {
			return res, fmt.Errorf("import %q: %w", chat.Title, err)
		}
		res.Chats++
		res.Messages += len(messages)
		logger.Debug("imported conversation", "title", chat.Title, "chat_id", chat.ID, "messages", len(messages))
	}
	logger.Info("chatgpt import finished", "chats", res.Chats, "messages", res.Messages, "skipped", res.Skipped)
	return res, nil
}

func parseConversation(conv gjson.Result) (*chats.Chat, []*chats.Message) {
	chat := &chats.Chat{
		Title:     strings.TrimSpace(conv.Get("title").String()),
		Model:     DefaultChatGPTModel,
		StartedAt: epoch(conv.Get("create_time")),
	}

	mapping := conv.Get("mapping")
	nodes := activeBranch(mapping, conv.Get("current_node").String())

	var messages []*chats.Message
	for _, node := range nodes {
		msg := node.Get("message")
		if !msg.Exists() || msg.Type == gjson.Null {
			continue
		}
		role := llm.Role(msg.Get("author.role").String())
		if !role.Valid() {
			continue
		}
		if msg.Get("metadata.is_visually_hidden_from_conversation").Bool() {
			continue
		}
		content := joinParts(msg.Get("content.parts"))
		if strings.TrimSpace(content) == "" {
			continue
		}

		ts := epoch(msg.Get("create_time"))
		if ts.IsZero() {
			ts = chat.StartedAt
		}
		model := msg.Get("metadata.model_slug").String()
		if role == llm.RoleAssistant && model != "" {
			chat.Model = model
		}
		messages = append(messages, &chats.Message{
			Role:      role,
			Content:   content,
			Timestamp: ts,
			Model:     model,
			Meta:      chats.Meta{Source: "chatgpt"},
		})
	}

	if chat.StartedAt.IsZero() && len(messages) > 0 {
		chat.StartedAt = messages[0].Timestamp
	}
	return chat, messages
}

// activeBranch returns the nodes from the root to current, oldest first.
// Without a usable current node it follows the last child from the root.
func activeBranch(mapping gjson.Result, current string) []gjson.Result {
	if current == "" || !mapping.Get(gjson.Escape(current)).Exists() {
		current = lastLeaf(mapping)
	}

	var branch []gjson.Result
	seen := make(map[string]bool)
	for id := current; id != "" && !seen[id]; {
		seen[id] = true
		node := mapping.Get(gjson.Escape(id))
		if !node.Exists() {
			break
		}
		branch = append(branch, node)
		id = node.Get("parent").String()
	}

	for i, j := 0, len(branch)-1; i < j; i, j = i+1, j-1 {
		branch[i], branch[j] = branch[j], branch[i]
	}
	return branch
}

func lastLeaf(mapping gjson.Result) string {
	var root string
	mapping.ForEach(func(key, node gjson.Result) bool {
		if node.Get("parent").String() == "" {
			root = key.String()
			return false
		}
		return true
	})

	seen := make(map[string]bool)
	id := root
	for id != "" && !seen[id] {
		seen[id] = true
		children := mapping.Get(gjson.Escape(id) + ".children").Array()
		if len(children) == 0 {
			return id
		}
		id = children[len(children)-1].String()
	}
	return id
}

func joinParts(parts gjson.Result) string {
	var texts []string
	for _, p := range parts.Array() {
		if p.Type == gjson.String {
			texts = append(texts, p.String())
		}
	}
	return strings.Join(texts, "\n")
}

func epoch(v gjson.Result) time.Time {
	if v.Type != gjson.Number {
		return time.Time{}
	}
	sec, frac := math.Modf(v.Float())
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
