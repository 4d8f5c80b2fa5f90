package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/exitcode"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/signal"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/elia-chat/elia/internal/usage"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	chatInline bool
	chatPrint  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt...]",
	Short: "Start a new chat",
	Long: `Start a new chat, optionally sending a first message.

Examples:
  elia chat
  elia chat "what is a monad?"
  elia chat -m gpt-4o -i            # inline, without the alternate screen
  cat main.go | elia chat -p "explain this code"

Keyboard shortcuts:
  Enter              - Send message
  Ctrl+J, Alt+Enter  - Insert newline
  Esc                - Cancel streaming, or go back to the chat list
  Ctrl+Y / Ctrl+B    - Copy last reply / last code block
  Ctrl+O             - Switch model
  Ctrl+R             - Rename chat
  Ctrl+C             - Quit

Slash commands:
  /help /clear /model /rename /system /export /copy /archive /quit`,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatInline, "inline", "i", false, "Run inline instead of full screen")
	chatCmd.Flags().BoolVarP(&chatPrint, "print", "p", false, "Print the reply to stdout and exit")
	rootCmd.AddCommand(chatCmd)
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext()
	defer stop()

	prompt := strings.TrimSpace(strings.Join(args, " "))
	stdinPiped := !isTerminal(os.Stdin)
	if stdinPiped {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt = joinPrompt(prompt, string(piped))
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	interactive := isTerminal(os.Stdout) && !chatPrint
	model, err := resolveModel(a.cfg, flagModel, interactive && !stdinPiped)
	if err != nil {
		return err
	}

	if !interactive {
		if prompt == "" {
			return errors.New("a prompt is required in print mode")
		}
		return printReply(ctx, a, model, prompt, os.Stdout)
	}

	_, err = a.runChat(ctx, chatRun{
		model:    model,
		prompt:   prompt,
		inline:   chatInline,
		ttyInput: stdinPiped,
	})
	return err
}

// joinPrompt places piped input after the prompt from the arguments.
func joinPrompt(prompt, piped string) string {
	piped = strings.TrimRight(piped, "\n")
	switch {
	case strings.TrimSpace(piped) == "":
		return prompt
	case prompt == "":
		return piped
	default:
		return prompt + "\n\n" + piped
	}
}

// resolveModel finds the model for key, falling back to the default. When
// the key is unknown and a terminal is available the user picks from the
// models whose id or label contains it.
func resolveModel(cfg *config.LaunchConfig, key string, interactive bool) (config.ChatModel, error) {
	if key == "" {
		model, err := cfg.DefaultModelConfig()
		if err != nil {
			return config.ChatModel{}, fmt.Errorf("default model %q: %w", cfg.DefaultModel, err)
		}
		return model, nil
	}
	model, err := cfg.GetModel(key)
	if err == nil {
		return model, nil
	}

	candidates := modelCandidates(cfg.AllModels(), key)
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if !interactive || len(candidates) == 0 {
		return config.ChatModel{}, err
	}

	labels := make([]string, len(candidates))
	values := make([]string, len(candidates))
	for i, m := range candidates {
		labels[i] = fmt.Sprintf("%s (%s)", m.Label(), m.LookupKey())
		values[i] = m.LookupKey()
	}
	picked, perr := ui.SelectPrompt(fmt.Sprintf("Several models match %q", key), labels, values, values[0])
	if errors.Is(perr, ui.ErrAborted) {
		return config.ChatModel{}, exitcode.Cancel()
	}
	if perr != nil {
		return config.ChatModel{}, perr
	}
	return cfg.GetModel(picked)
}

func modelCandidates(models []config.ChatModel, key string) []config.ChatModel {
	key = strings.ToLower(key)
	var out []config.ChatModel
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.LookupKey()), key) ||
			strings.Contains(strings.ToLower(m.Label()), key) {
			out = append(out, m)
		}
	}
	return out
}

// printReply streams a single reply to w and stores the exchange as a new
// chat.
func printReply(ctx context.Context, a *app, model config.ChatModel, prompt string, w io.Writer) error {
	engine, err := newEngine(ctx, model)
	if err != nil {
		return err
	}

	now := time.Now()
	chat := &chats.Chat{Model: model.LookupKey(), Title: llm.FallbackTitle(prompt), StartedAt: now}
	msgs := []*chats.Message{
		{Role: llm.RoleSystem, Content: a.cfg.SystemPrompt, Timestamp: now},
		{Role: llm.RoleUser, Content: prompt, Timestamp: now},
	}
	if err := a.store.CreateChat(ctx, chat, msgs); err != nil {
		return err
	}

	req := llm.Request{
		Model:       model.Name,
		Temperature: llm.Float(model.Temperature),
		Messages:    []llm.Message{llm.SystemText(a.cfg.SystemPrompt), llm.UserText(prompt)},
	}
	logger.Info("print mode request", "model", model.LookupKey(), "chat_id", chat.ID)

	text, use, streamErr := streamTo(ctx, engine, req, w)
	cancelled := ctx.Err() != nil
	elapsed := time.Since(now)

	if text != "" {
		reply := &chats.Message{
			Role:      llm.RoleAssistant,
			Content:   text,
			Timestamp: time.Now(),
			Model:     model.LookupKey(),
			Meta: chats.Meta{
				InputTokens:  use.InputTokens,
				OutputTokens: use.OutputTokens,
				DurationMs:   elapsed.Milliseconds(),
				Cancelled:    cancelled,
			},
		}
		// The caller's context may be cancelled already.
		if err := a.store.AddMessage(context.Background(), chat.ID, reply); err != nil {
			logger.Error("saving reply failed", "chat_id", chat.ID, "error", err)
		}
	}

	provider, _ := llm.ProviderFor(model)
	if err := a.usage.Log(usage.LogEntry{
		Timestamp:    time.Now(),
		ChatID:       chat.ID,
		Model:        model.LookupKey(),
		Provider:     provider,
		InputTokens:  use.InputTokens,
		OutputTokens: use.OutputTokens,
		DurationMs:   elapsed.Milliseconds(),
		Cancelled:    cancelled,
	}); err != nil {
		logger.Warn("usage log failed", "error", err)
	}

	if cancelled {
		return exitcode.Cancel()
	}
	if streamErr != nil {
		return fmt.Errorf("%s: %s", model.Label(), llm.ErrorSummary(streamErr))
	}
	printStats(model, use, elapsed)
	return nil
}

// streamTo writes text deltas to w as they arrive and returns the whole
// reply.
func streamTo(ctx context.Context, engine *llm.Engine, req llm.Request, w io.Writer) (string, llm.Usage, error) {
	stream, err := engine.Stream(ctx, req)
	if err != nil {
		return "", llm.Usage{}, err
	}
	defer stream.Close()

	var (
		text strings.Builder
		use  llm.Usage
	)
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return text.String(), use, err
		}
		switch event.Type {
		case llm.EventTextDelta:
			text.WriteString(event.Text)
			if _, err := io.WriteString(w, event.Text); err != nil {
				return text.String(), use, err
			}
		case llm.EventUsage:
			if event.Use != nil {
				use.Add(*event.Use)
			}
		case llm.EventError:
			return text.String(), use, event.Err
		}
	}
	if s := text.String(); s != "" && !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(w)
	}
	return text.String(), use, nil
}

// printStats writes a faint summary line to stderr when it is a terminal.
func printStats(model config.ChatModel, use llm.Usage, elapsed time.Duration) {
	if !isTerminal(os.Stderr) {
		return
	}
	out := termenv.NewOutput(os.Stderr)
	line := fmt.Sprintf("%s · %d in / %d out tokens · %.1fs", model.Label(), use.InputTokens, use.OutputTokens, elapsed.Seconds())
	fmt.Fprintln(os.Stderr, out.String(line).Faint())
}
