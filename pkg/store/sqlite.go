package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS layout_analysis (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	label TEXT NOT NULL,
	page TEXT NOT NULL,
	poly TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS layout_analysis_page_idx ON layout_analysis (page, id);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_input TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	source_pages TEXT NOT NULL,
	time_user_input_sent TEXT NOT NULL,
	time_assistant_answered TEXT NOT NULL
);`

// LayoutStore keeps layout elements and chat history in SQLite. Each
// operation takes a connection from the database/sql pool and returns it when
// done, so a LayoutStore is safe for concurrent requests.
type LayoutStore struct {
	db *sql.DB
}

var (
	_ types.LayoutWriter = (*LayoutStore)(nil)
	_ types.MessageStore = (*LayoutStore)(nil)
)

func NewLayoutStore(path string) (*LayoutStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &LayoutStore{db: db}, nil
}

func (s *LayoutStore) Close() error {
	return s.db.Close()
}

// InsertElements appends elements; insertion order is the detection order
// returned by ElementsForPage.
func (s *LayoutStore) InsertElements(ctx context.Context, elements []models.LayoutElement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO layout_analysis (text, label, page, poly) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, el := range elements {
		poly, err := json.Marshal(el.Polygon)
		if err != nil {
			return fmt.Errorf("encoding polygon: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, el.Text, el.Label, el.Page, string(poly)); err != nil {
			return fmt.Errorf("inserting layout element: %w", err)
		}
	}

	return tx.Commit()
}

func (s *LayoutStore) ElementsForPage(ctx context.Context, page string) ([]models.LayoutElement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text, label, page, poly FROM layout_analysis WHERE page = ? ORDER BY id", page)
	if err != nil {
		return nil, fmt.Errorf("querying layout elements: %w", err)
	}
	defer rows.Close()

	var elements []models.LayoutElement
	for rows.Next() {
		var (
			el   models.LayoutElement
			poly string
		)
		if err := rows.Scan(&el.Text, &el.Label, &el.Page, &poly); err != nil {
			return nil, fmt.Errorf("scanning layout element: %w", err)
		}
		if err := json.Unmarshal([]byte(poly), &el.Polygon); err != nil {
			return nil, fmt.Errorf("decoding polygon for %s: %w", page, err)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// ResetLayout drops every stored layout element.
func (s *LayoutStore) ResetLayout(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM layout_analysis"); err != nil {
		return fmt.Errorf("resetting layout table: %w", err)
	}
	return nil
}

func (s *LayoutStore) SaveMessage(ctx context.Context, msg models.Message) error {
	pages, err := json.Marshal(msg.SourcePages)
	if err != nil {
		return fmt.Errorf("encoding source pages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (user_input, assistant_message, source_pages, time_user_input_sent, time_assistant_answered)
		VALUES (?, ?, ?, ?, ?)`,
		msg.UserInput, msg.AssistantMessage, string(pages),
		msg.SentAt.UTC().Format(time.RFC3339Nano), msg.AnsweredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// Messages returns the chat history oldest first.
func (s *LayoutStore) Messages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_input, assistant_message, source_pages, time_user_input_sent, time_assistant_answered
		FROM messages ORDER BY time_user_input_sent ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			msg                models.Message
			pages, sent, reply string
		)
		if err := rows.Scan(&msg.UserInput, &msg.AssistantMessage, &pages, &sent, &reply); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(pages), &msg.SourcePages); err != nil {
			return nil, fmt.Errorf("decoding source pages: %w", err)
		}
		if msg.SentAt, err = time.Parse(time.RFC3339Nano, sent); err != nil {
			return nil, fmt.Errorf("parsing sent time: %w", err)
		}
		if msg.AnsweredAt, err = time.Parse(time.RFC3339Nano, reply); err != nil {
			return nil, fmt.Errorf("parsing answer time: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
