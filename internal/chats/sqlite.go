package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/elia-chat/elia/internal/llm"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Config configures the SQLite store.
type Config struct {
	Path   string
	Logger *slog.Logger
}

// Timestamps are stored as fixed width UTC text so that they sort lexically
// and read back identically to rows written by older versions.
const (
	timeLayout      = "2006-01-02 15:04:05.000000000"
	timeParseLayout = "2006-01-02 15:04:05.999999999"
)

const schema = `
CREATE TABLE IF NOT EXISTS system_prompt (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    prompt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat (
    id INTEGER PRIMARY KEY,
    model TEXT,
    title TEXT,
    started_at TEXT,
    archived BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS message (
    id INTEGER PRIMARY KEY,
    chat_id INTEGER NOT NULL REFERENCES chat(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
    content TEXT NOT NULL,
    timestamp TEXT,
    model TEXT,
    meta TEXT NOT NULL DEFAULT '{}',
    parent_id INTEGER REFERENCES message(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_message_chat_id ON message(chat_id, id);

CREATE VIRTUAL TABLE IF NOT EXISTS message_fts USING fts5(
    content,
    content='message',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS message_ai AFTER INSERT ON message BEGIN
    INSERT INTO message_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS message_ad AFTER DELETE ON message BEGIN
    INSERT INTO message_fts(message_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS message_au AFTER UPDATE OF content ON message BEGIN
    INSERT INTO message_fts(message_fts, rowid, content) VALUES ('delete', old.id, old.content);
    INSERT INTO message_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// Open opens (creating if needed) the database at cfg.Path.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	logger.Debug("opened chat database", "path", cfg.Path)
	return &SQLiteStore{db: db, path: cfg.Path, logger: logger}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// schemaVersion is the current schema version. Fresh databases get the full
// schema and start here; older ones run the migrations below.
const schemaVersion = 1

type migration struct {
	version     int
	description string
	up          func(db *sql.DB) error
}

var migrations = []migration{
	{
		// Databases written before full text search existed have
		// messages that were never indexed.
		version:     1,
		description: "index existing messages for full text search",
		up: func(db *sql.DB) error {
			_, err := db.Exec("INSERT INTO message_fts(message_fts) VALUES ('rebuild')")
			return err
		},
	},
}

func initSchema(db *sql.DB, logger *slog.Logger) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&currentVersion)
	if err == nil && currentVersion >= schemaVersion {
		return nil
	}

	// Check for existing tables before the schema creates them.
	var existing int
	if qerr := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='chat'
	`).Scan(&existing); qerr != nil {
		return fmt.Errorf("check chat table: %w", qerr)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && !strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("get current version: %w", err)
		}
		currentVersion = schemaVersion
		if existing > 0 {
			currentVersion = 0
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentVersion); err != nil {
			return fmt.Errorf("insert initial version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		logger.Info("running migration", "version", m.version, "description", m.description)
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := db.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			return fmt.Errorf("update version to %d: %w", m.version, err)
		}
	}
	return nil
}

// CreateChat inserts chat and its initial messages in one transaction.
// Each message's parent is the message before it.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *Chat, messages []*Message) error {
	if chat.StartedAt.IsZero() {
		chat.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO chat (model, title, started_at, archived) VALUES (?, ?, ?, ?)",
		nullString(chat.Model), nullString(chat.Title), formatTime(chat.StartedAt), chat.Archived)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	chatID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("chat id: %w", err)
	}

	var parent int64
	for _, msg := range messages {
		if msg.ParentID == 0 {
			msg.ParentID = parent
		}
		if err := insertMessage(ctx, tx, chatID, msg); err != nil {
			return err
		}
		parent = msg.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	chat.ID = chatID
	s.logger.Debug("created chat", "chat_id", chatID, "model", chat.Model, "messages", len(messages))
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, tx execer, chatID int64, msg *Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	meta, err := msg.Meta.encode()
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO message (chat_id, role, content, timestamp, model, meta, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chatID, string(msg.Role), msg.Content, formatTime(msg.Timestamp),
		nullString(msg.Model), meta, nullInt(msg.ParentID))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	msg.ID = id
	msg.ChatID = chatID
	return nil
}

// GetChat returns the chat, or nil if it does not exist.
func (s *SQLiteStore) GetChat(ctx context.Context, id int64) (*Chat, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, model, title, started_at, archived FROM chat WHERE id = ?", id)

	var (
		chat         Chat
		model, title sql.NullString
		startedAt    sql.NullString
		archived     sql.NullBool
	)
	err := row.Scan(&chat.ID, &model, &title, &startedAt, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	chat.Model = model.String
	chat.Title = title.String
	chat.StartedAt = parseTime(startedAt.String)
	chat.Archived = archived.Bool
	return &chat, nil
}

// ListChats returns chats, most recently active first.
func (s *SQLiteStore) ListChats(ctx context.Context, opts ListOptions) ([]ChatSummary, error) {
	query := `
		SELECT c.id, c.model, c.title, c.started_at, c.archived,
		       (SELECT COUNT(*) FROM message WHERE chat_id = c.id) AS message_count,
		       (SELECT MAX(timestamp) FROM message WHERE chat_id = c.id) AS last_message_at,
		       (SELECT content FROM message WHERE chat_id = c.id AND role = 'user' ORDER BY id LIMIT 1) AS first_user
		FROM chat c`
	switch {
	case opts.OnlyArchived:
		query += " WHERE c.archived = TRUE"
	case !opts.IncludeArchived:
		query += " WHERE COALESCE(c.archived, FALSE) = FALSE"
	}
	query += " ORDER BY COALESCE(last_message_at, c.started_at) DESC, c.id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var results []ChatSummary
	for rows.Next() {
		var (
			sum                ChatSummary
			model, title       sql.NullString
			startedAt, lastMsg sql.NullString
			firstUser          sql.NullString
			archived           sql.NullBool
		)
		if err := rows.Scan(&sum.ID, &model, &title, &startedAt, &archived,
			&sum.MessageCount, &lastMsg, &firstUser); err != nil {
			return nil, fmt.Errorf("scan chat summary: %w", err)
		}
		sum.Model = model.String
		sum.Title = title.String
		sum.StartedAt = parseTime(startedAt.String)
		sum.Archived = archived.Bool
		sum.LastMessageAt = parseTime(lastMsg.String)
		sum.FirstUserMessage = firstUser.String
		results = append(results, sum)
	}
	return results, rows.Err()
}

// AddMessage appends msg to the chat. Unless set, its parent is the chat's
// latest message.
func (s *SQLiteStore) AddMessage(ctx context.Context, chatID int64, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat WHERE id = ?", chatID).Scan(&exists); err != nil {
		return fmt.Errorf("check chat: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}

	if msg.ParentID == 0 {
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx, "SELECT MAX(id) FROM message WHERE chat_id = ?", chatID).Scan(&last); err != nil {
			return fmt.Errorf("find parent: %w", err)
		}
		msg.ParentID = last.Int64
	}
	if err := insertMessage(ctx, tx, chatID, msg); err != nil {
		return err
	}
	return tx.Commit()
}

// Messages returns the chat's messages in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, chatID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, timestamp, model, meta, parent_id
		FROM message WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg             Message
			role            string
			ts, model, meta sql.NullString
			parent          sql.NullInt64
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &ts, &model, &meta, &parent); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = llm.Role(role)
		msg.Timestamp = parseTime(ts.String)
		msg.Model = model.String
		msg.Meta = decodeMeta(meta.String)
		msg.ParentID = parent.Int64
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// RenameChat sets the chat title.
func (s *SQLiteStore) RenameChat(ctx context.Context, id int64, title string) error {
	return s.updateChat(ctx, "UPDATE chat SET title = ? WHERE id = ?", strings.TrimSpace(title), id)
}

// ArchiveChat sets or clears the archived flag.
func (s *SQLiteStore) ArchiveChat(ctx context.Context, id int64, archived bool) error {
	return s.updateChat(ctx, "UPDATE chat SET archived = ? WHERE id = ?", archived, id)
}

// DeleteChat removes a chat; its messages go with it.
func (s *SQLiteStore) DeleteChat(ctx context.Context, id int64) error {
	return s.updateChat(ctx, "DELETE FROM chat WHERE id = ?", id)
}

func (s *SQLiteStore) updateChat(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %v", ErrChatNotFound, args[len(args)-1])
	}
	return nil
}

// Search finds messages matching query. Each whitespace separated word must
// appear; FTS operators in the input are treated as plain text.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.chat_id, m.id, COALESCE(c.title, ''), m.role,
		       snippet(message_fts, 0, '**', '**', '...', 16), m.timestamp
		FROM message_fts f
		JOIN message m ON m.id = f.rowid
		JOIN chat c ON c.id = m.chat_id
		WHERE message_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			role string
			ts   sql.NullString
		)
		if err := rows.Scan(&r.ChatID, &r.MessageID, &r.Title, &role, &r.Snippet, &ts); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Role = llm.Role(role)
		r.Timestamp = parseTime(ts.String)
		results = append(results, r)
	}
	return results, rows.Err()
}

func ftsQuery(query string) string {
	var terms []string
	for _, f := range strings.Fields(query) {
		if !strings.ContainsFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

// SaveSystemPrompt stores a reusable system prompt.
func (s *SQLiteStore) SaveSystemPrompt(ctx context.Context, p *SystemPrompt) error {
	if strings.TrimSpace(p.Prompt) == "" {
		return errors.New("system prompt must not be empty")
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO system_prompt (title, prompt) VALUES (?, ?)", p.Title, p.Prompt)
	if err != nil {
		return fmt.Errorf("insert system prompt: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// SystemPrompts returns saved prompts in insertion order.
func (s *SQLiteStore) SystemPrompts(ctx context.Context) ([]SystemPrompt, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, prompt FROM system_prompt ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query system prompts: %w", err)
	}
	defer rows.Close()

	var prompts []SystemPrompt
	for rows.Next() {
		var p SystemPrompt
		if err := rows.Scan(&p.ID, &p.Title, &p.Prompt); err != nil {
			return nil, fmt.Errorf("scan system prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset deletes the database at path along with its WAL and SHM files.
func Reset(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeParseLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
