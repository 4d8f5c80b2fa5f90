package chat

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/sahilm/fuzzy"
)

// Command represents a slash command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// AllCommands returns all available slash commands
func AllCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "Show help and available commands",
			Usage:       "/help",
		},
		{
			Name:        "clear",
			Aliases:     []string{"c", "new"},
			Description: "Start a new empty chat",
			Usage:       "/clear",
		},
		{
			Name:        "model",
			Aliases:     []string{"m"},
			Description: "Switch model",
			Usage:       "/model [id]",
		},
		{
			Name:        "rename",
			Description: "Rename this chat",
			Usage:       "/rename <title>",
		},
		{
			Name:        "system",
			Description: "Show or set the system prompt for new chats",
			Usage:       "/system [prompt | @saved]",
		},
		{
			Name:        "export",
			Description: "Export this chat as markdown",
			Usage:       "/export [path]",
		},
		{
			Name:        "copy",
			Aliases:     []string{"y"},
			Description: "Copy the last reply to the clipboard",
			Usage:       "/copy",
		},
		{
			Name:        "archive",
			Description: "Archive this chat and leave it",
			Usage:       "/archive",
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "Exit elia",
			Usage:       "/quit",
		},
	}
}

// CommandSource implements fuzzy.Source for command searching
type CommandSource []Command

func (c CommandSource) String(i int) string {
	return c[i].Name
}

func (c CommandSource) Len() int {
	return len(c)
}

// FilterCommands returns commands matching the query using fuzzy search
func FilterCommands(query string) []Command {
	commands := AllCommands()
	query = strings.ToLower(strings.TrimPrefix(query, "/"))
	if query == "" {
		return commands
	}

	if cmd, ok := exactCommand(query); ok {
		return []Command{cmd}
	}

	var result []Command
	for _, match := range fuzzy.FindFrom(query, CommandSource(commands)) {
		result = append(result, commands[match.Index])
	}
	return result
}

func exactCommand(name string) (Command, bool) {
	for _, c := range AllCommands() {
		if c.Name == name {
			return c, true
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// resolveCommand finds a command by name, alias or unique prefix. When the
// prefix is ambiguous the candidates are returned instead.
func resolveCommand(name string) (Command, []Command, bool) {
	if cmd, ok := exactCommand(name); ok {
		return cmd, nil, true
	}

	var prefixMatches []Command
	for _, c := range AllCommands() {
		if strings.HasPrefix(c.Name, name) {
			prefixMatches = append(prefixMatches, c)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0], nil, true
	}
	return Command{}, prefixMatches, false
}

// ExecuteCommand handles slash command execution
func (m *Model) ExecuteCommand(input string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()

	name, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	arg := strings.TrimSpace(rest)
	if name == "" {
		return m, nil
	}

	cmd, candidates, ok := resolveCommand(name)
	if !ok {
		if len(candidates) == 0 {
			return m.showNotice(fmt.Sprintf("Unknown command: /%s\nType /help for available commands.", name))
		}
		var names []string
		for _, c := range candidates {
			names = append(names, "/"+c.Name)
		}
		return m.showNotice(fmt.Sprintf("Ambiguous command: /%s\nDid you mean: %s?", name, strings.Join(names, ", ")))
	}

	switch cmd.Name {
	case "help":
		return m.cmdHelp()
	case "clear":
		return m.cmdClear()
	case "model":
		return m.cmdModel(arg)
	case "rename":
		return m.cmdRename(arg)
	case "system":
		return m.cmdSystem(arg)
	case "export":
		return m.cmdExport(arg)
	case "copy":
		return m.copyLastReply()
	case "archive":
		return m.cmdArchive()
	case "quit":
		return m.quit()
	}
	return m.showNotice(fmt.Sprintf("Command /%s is not yet implemented.", cmd.Name))
}

func (m *Model) cmdHelp() (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("## Commands\n\n")
	for _, cmd := range AllCommands() {
		fmt.Fprintf(&b, "- `%s`", cmd.Usage)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, " (aliases: %s)", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Fprintf(&b, " %s\n", cmd.Description)
	}

	b.WriteString("\n## Keys\n\n")
	b.WriteString("- `Enter` send message\n")
	b.WriteString("- `Ctrl+J` or `Alt+Enter` insert newline\n")
	b.WriteString("- `Esc` cancel streaming, or go back\n")
	b.WriteString("- `Ctrl+Y` copy last reply, `Ctrl+B` copy last code block\n")
	b.WriteString("- `Ctrl+O` switch model, `Ctrl+R` rename\n")
	b.WriteString("- `PgUp`/`PgDn` scroll, `Ctrl+C` quit\n")

	return m.showNotice(b.String())
}

func (m *Model) cmdClear() (tea.Model, tea.Cmd) {
	if m.streaming {
		m.cancelStream()
	}
	m.chat = nil
	m.messages = nil
	m.items = nil
	m.titleRequested = false
	m.refreshViewport()
	return m.showNotice("Started a new chat.")
}

func (m *Model) cmdModel(arg string) (tea.Model, tea.Cmd) {
	if arg == "" {
		return m.openModelPicker()
	}

	model, err := m.config.GetModel(arg)
	if err != nil {
		match, ok := fuzzyMatchModel(arg, m.config.AllModels())
		if !ok {
			return m.showNotice(fmt.Sprintf("Unknown model `%s`.", arg))
		}
		model = match
	}
	return m.switchModel(model)
}

// fuzzyMatchModel finds the best matching model for a query. Substring
// matches on the name win, preferring the shortest name.
func fuzzyMatchModel(query string, models []config.ChatModel) (config.ChatModel, bool) {
	query = strings.ToLower(query)

	var best *config.ChatModel
	for i := range models {
		name := strings.ToLower(models[i].Name)
		if strings.Contains(name, query) && (best == nil || len(models[i].Name) < len(best.Name)) {
			best = &models[i]
		}
	}
	if best != nil {
		return *best, true
	}

	keys := make([]string, len(models))
	for i, m := range models {
		keys[i] = m.LookupKey()
	}
	matches := fuzzy.Find(query, keys)
	if len(matches) > 0 {
		return models[matches[0].Index], true
	}
	return config.ChatModel{}, false
}

func (m *Model) cmdRename(title string) (tea.Model, tea.Cmd) {
	if m.chat == nil {
		return m.showNotice("Send a message before renaming the chat.")
	}
	if title == "" {
		return m.showNotice("Usage: `/rename <title>`")
	}
	if err := m.store.RenameChat(m.ctx, m.chat.ID, title); err != nil {
		return m.showNotice(fmt.Sprintf("Failed to rename chat: %v", err))
	}
	m.chat.Title = title
	return m.showNotice(fmt.Sprintf("Renamed chat to **%s**.", title))
}

// cmdSystem shows or sets the system prompt. "@title" picks a prompt saved
// with `elia prompts add`.
func (m *Model) cmdSystem(prompt string) (tea.Model, tea.Cmd) {
	if prompt == "" {
		notice := fmt.Sprintf("Current system prompt:\n\n%s", m.activeSystemPrompt())
		if saved, err := m.store.SystemPrompts(m.ctx); err == nil && len(saved) > 0 {
			titles := make([]string, len(saved))
			for i, p := range saved {
				titles[i] = "`@" + p.Title + "`"
			}
			notice += "\n\nSaved prompts: " + strings.Join(titles, ", ")
		}
		return m.showNotice(notice)
	}
	if title, ok := strings.CutPrefix(prompt, "@"); ok {
		saved, found, err := m.findSavedPrompt(title)
		if err != nil {
			return m.showNotice(fmt.Sprintf("Failed to load saved prompts: %v", err))
		}
		if !found {
			return m.showNotice(fmt.Sprintf("No saved prompt named %q.", title))
		}
		prompt = saved
	}
	m.systemPrompt = prompt
	if m.chat != nil {
		return m.showNotice("System prompt set. It applies from the next new chat (`/clear`).")
	}
	return m.showNotice(fmt.Sprintf("System prompt set for this chat:\n\n%s", prompt))
}

func (m *Model) findSavedPrompt(title string) (string, bool, error) {
	saved, err := m.store.SystemPrompts(m.ctx)
	if err != nil {
		return "", false, err
	}
	for _, p := range saved {
		if strings.EqualFold(p.Title, title) {
			return p.Prompt, true, nil
		}
	}
	return "", false, nil
}

func (m *Model) cmdExport(path string) (tea.Model, tea.Cmd) {
	if m.chat == nil || len(m.messages) == 0 {
		return m.showNotice("No messages to export.")
	}
	if path == "" {
		path = fmt.Sprintf("chat-%d.md", m.chat.ID)
	}

	md := chats.ExportMarkdown(m.chat, m.messages, chats.ExportOptions{ModelLabel: m.model.Label()})
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return m.showNotice(fmt.Sprintf("Failed to export: %v", err))
	}
	return m.showNotice(fmt.Sprintf("Exported %d messages to `%s`.", len(m.messages), path))
}

func (m *Model) cmdArchive() (tea.Model, tea.Cmd) {
	if m.chat == nil {
		return m.showNotice("Nothing to archive yet.")
	}
	if err := m.store.ArchiveChat(m.ctx, m.chat.ID, true); err != nil {
		return m.showNotice(fmt.Sprintf("Failed to archive chat: %v", err))
	}
	return m.leave()
}
