package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage stored chats",
	Long: `List, show, search, rename, archive, delete and export chats.

Examples:
  elia chats                        # list recent chats
  elia chats list --archived
  elia chats show 12
  elia chats show 12 --code         # only the code blocks of replies
  elia chats search "kubernetes"
  elia chats export 12 notes.md`,
	Args: cobra.NoArgs,
	RunE: runChatsList,
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsShow,
}

var chatsExportCmd = &cobra.Command{
	Use:   "export <id> [path]",
	Short: "Export a chat as markdown",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runChatsExport,
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a chat",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChatsRename,
}

var chatsArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchived(cmd.OutOrStdout(), args[0], true)
	},
}

var chatsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Restore an archived chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchived(cmd.OutOrStdout(), args[0], false)
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chat and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsDelete,
}

var chatsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search message text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChatsSearch,
}

var (
	chatsArchived bool
	chatsLimit    int
	searchLimit   int
	chatsJSON     bool
	chatsCode     bool
	chatsSystem   bool
)

func init() {
	for _, c := range []*cobra.Command{chatsCmd, chatsListCmd} {
		c.Flags().BoolVar(&chatsArchived, "archived", false, "List archived chats instead")
		c.Flags().IntVar(&chatsLimit, "limit", 30, "Maximum number of chats to list")
		c.Flags().BoolVar(&chatsJSON, "json", false, "Output as JSON")
	}
	chatsShowCmd.Flags().BoolVar(&chatsJSON, "json", false, "Output as JSON")
	chatsShowCmd.Flags().BoolVar(&chatsCode, "code", false, "Only print code blocks from replies")
	chatsExportCmd.Flags().BoolVar(&chatsSystem, "system", false, "Include the system prompt")
	chatsSearchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")

	chatsCmd.AddCommand(chatsListCmd, chatsShowCmd, chatsExportCmd, chatsRenameCmd,
		chatsArchiveCmd, chatsUnarchiveCmd, chatsDeleteCmd, chatsSearchCmd)
	rootCmd.AddCommand(chatsCmd)
}

func parseChatID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chat id %q", arg)
	}
	return id, nil
}

// loadChat fetches a chat and its messages, failing when it does not exist.
func loadChat(ctx context.Context, store chats.Store, arg string) (*chats.Chat, []chats.Message, error) {
	id, err := parseChatID(arg)
	if err != nil {
		return nil, nil, err
	}
	chat, err := store.GetChat(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, fmt.Errorf("%w: %d", chats.ErrChatNotFound, id)
	}
	messages, err := store.Messages(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return chat, messages, nil
}

func runChatsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListChats(cmd.Context(), chats.ListOptions{
		OnlyArchived: chatsArchived,
		Limit:        chatsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}
	return writeChatList(cmd.OutOrStdout(), cfg, summaries, time.Now(), chatsJSON)
}

type chatListEntry struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Messages     int       `json:"messages"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	Archived     bool      `json:"archived,omitempty"`
}

func writeChatList(w io.Writer, cfg *config.LaunchConfig, summaries []chats.ChatSummary, now time.Time, asJSON bool) error {
	if asJSON {
		entries := make([]chatListEntry, 0, len(summaries))
		for _, s := range summaries {
			entries = append(entries, chatListEntry{
				ID:           s.ID,
				Title:        s.DisplayTitle(),
				Model:        s.Model,
				Messages:     s.MessageCount,
				StartedAt:    s.StartedAt,
				LastActivity: s.LastActivity(),
				Archived:     s.Archived,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No chats found.")
		return nil
	}

	fmt.Fprintf(w, "%-6s %s %s %-9s %s\n", "ID", ui.PadRight("Title", 40), ui.PadRight("Model", 22), "Messages", "Updated")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, s := range summaries {
		label := s.Model
		if model, err := cfg.GetModel(s.Model); err == nil {
			label = model.Label()
		}
		fmt.Fprintf(w, "%-6d %s %s %-9d %s\n",
			s.ID,
			ui.PadRight(ui.Truncate(s.DisplayTitle(), 40), 40),
			ui.PadRight(ui.Truncate(label, 22), 22),
			s.MessageCount,
			humanize.RelTime(s.LastActivity(), now, "ago", "from now"),
		)
	}
	return nil
}

func runChatsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	chat, messages, err := loadChat(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if chatsJSON {
		data := struct {
			Chat     *chats.Chat     `json:"chat"`
			Messages []chats.Message `json:"messages"`
		}{chat, messages}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	tty := isTerminal(os.Stdout)
	if chatsCode {
		writeCodeBlocks(w, messages, cfg.MessageCodeTheme, tty)
		return nil
	}

	styles, err := loadStyles(cfg)
	if err != nil {
		return err
	}
	writeTranscript(w, chat, messages, transcriptOptions{
		styles:    styles,
		codeTheme: cfg.MessageCodeTheme,
		width:     terminalWidth(80),
		rich:      tty,
	})
	return nil
}

type transcriptOptions struct {
	styles    *ui.Styles
	codeTheme string
	width     int
	// rich renders markdown and colour. Plain text is written otherwise.
	rich bool
}

func writeTranscript(w io.Writer, chat *chats.Chat, messages []chats.Message, opts transcriptOptions) {
	title := chat.Title
	if title == "" {
		title = fmt.Sprintf("Chat %d", chat.ID)
	}
	header := fmt.Sprintf("%s (%s, started %s)", title, chat.Model, chat.StartedAt.Local().Format(time.DateTime))
	if opts.rich {
		header = opts.styles.Title.Render(header)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w)

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		label := "You"
		if msg.Role == llm.RoleAssistant {
			label = msg.Model
			if label == "" {
				label = "Assistant"
			}
		}
		if !opts.rich {
			fmt.Fprintf(w, "%s:\n%s\n\n", label, ui.WrapText(msg.Content, opts.width))
			continue
		}
		if msg.Role == llm.RoleUser {
			fmt.Fprintln(w, opts.styles.UserLabel.Render(label))
			fmt.Fprintln(w, ui.WrapText(msg.Content, opts.width))
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintln(w, opts.styles.AssistantLabel.Render(label))
		fmt.Fprint(w, ui.RenderMarkdown(msg.Content, ui.MarkdownOptions{
			Width:     opts.width,
			CodeTheme: opts.codeTheme,
			Light:     !opts.styles.Palette.Dark,
		}))
		fmt.Fprintln(w)
	}
}

// writeCodeBlocks prints the fenced code blocks of every reply, highlighted
// when highlight is set.
func writeCodeBlocks(w io.Writer, messages []chats.Message, codeTheme string, highlight bool) {
	profile := termenv.EnvColorProfile()
	n := 0
	for _, msg := range messages {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		for _, block := range ui.ExtractCodeBlocks(msg.Content) {
			n++
			lang := block.Language
			if lang == "" {
				lang = "text"
			}
			fmt.Fprintf(w, "# %d (%s)\n", n, lang)
			code := block.Code
			if highlight {
				code = ui.HighlightCodeFor(profile, code, block.Language, codeTheme)
			}
			fmt.Fprintln(w, code)
			fmt.Fprintln(w)
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "No code blocks found.")
	}
}

func runChatsExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	chat, messages, err := loadChat(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	opts := chats.ExportOptions{IncludeSystem: chatsSystem}
	if model, err := cfg.GetModel(chat.Model); err == nil {
		opts.ModelLabel = model.Label()
	}
	md := chats.ExportMarkdown(chat, messages, opts)

	if len(args) < 2 || args[1] == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), md)
		return err
	}
	if err := os.WriteFile(args[1], []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d messages to %s\n", len(messages), args[1])
	return nil
}

func runChatsRename(cmd *cobra.Command, args []string) error {
	id, err := parseChatID(args[0])
	if err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RenameChat(cmd.Context(), id, title); err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed chat %d to %q\n", id, title)
	return nil
}

func setArchived(w io.Writer, arg string, archived bool) error {
	id, err := parseChatID(arg)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ArchiveChat(context.Background(), id, archived); err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if archived {
		fmt.Fprintf(w, "Archived chat %d\n", id)
	} else {
		fmt.Fprintf(w, "Unarchived chat %d\n", id)
	}
	return nil
}

func runChatsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseChatID(args[0])
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteChat(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted chat %d\n", id)
	return nil
}

func runChatsSearch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	results, err := store.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	writeSearchResults(cmd.OutOrStdout(), query, results, time.Now())
	return nil
}

func writeSearchResults(w io.Writer, query string, results []chats.SearchResult, now time.Time) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results found for '%s'\n", query)
		return
	}
	fmt.Fprintf(w, "Found %d matches for '%s':\n\n", len(results), query)
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled chat"
		}
		fmt.Fprintf(w, "#%d %s (%s, %s)\n", r.ChatID, title, r.Role, humanize.RelTime(r.Timestamp, now, "ago", "from now"))
		fmt.Fprintf(w, "  %s\n\n", strings.ReplaceAll(r.Snippet, "\n", " "))
	}
}
