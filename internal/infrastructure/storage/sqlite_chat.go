package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

type sqliteChatRepository struct {
	db      *sql.DB
	maxSize int
}

// NewSQLiteChatRepository SQLite asosidagi chat state repository
func NewSQLiteChatRepository(dbPath string, maxHistory int) (repository.ChatStateRepository, error) {
	if dbPath == "" {
		return nil, errors.New("db path bo'sh bo'lmasligi kerak")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("db papkasini yaratib bo'lmadi: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite ochilmadi: %w", err)
	}
	// sqlite bitta yozuvchini qo'llaydi
	db.SetMaxOpenConns(1)

	if err := createChatSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteChatRepository{db: db, maxSize: maxHistory}, nil
}

func createChatSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS chat_states (
	chat_id INTEGER PRIMARY KEY,
	last_message_id INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	id TEXT PRIMARY KEY,
	chat_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	ts TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_chat_seq ON turns (chat_id, seq);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("schema yaratib bo'lmadi: %w", err)
	}
	return nil
}

// Load chat holatini olish
func (s *sqliteChatRepository) Load(ctx context.Context, chatID int64) (*entity.ChatSnapshot, error) {
	snapshot := entity.ChatSnapshot{ChatID: chatID}
	err := s.db.QueryRowContext(ctx,
		`SELECT last_message_id, updated_at FROM chat_states WHERE chat_id = ?`, chatID,
	).Scan(&snapshot.LastMessageID, &snapshot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, ts FROM turns WHERE chat_id = ? ORDER BY seq ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var turn entity.Turn
		var role string
		var ts time.Time
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &ts); err != nil {
			return nil, err
		}
		turn.Role = entity.Role(role)
		turn.CreatedAt = ts
		snapshot.History = append(snapshot.History, turn)
	}

	return &snapshot, rows.Err()
}

// Save chat holatini to'liq qayta yozish
func (s *sqliteChatRepository) Save(ctx context.Context, snapshot entity.ChatSnapshot) error {
	history := snapshot.History
	// Eski xabarlarni kesish
	if s.maxSize > 0 && len(history) > s.maxSize {
		history = history[len(history)-s.maxSize:]
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO chat_states (chat_id, last_message_id, updated_at) VALUES (?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET last_message_id = excluded.last_message_id, updated_at = excluded.updated_at`,
		snapshot.ChatID, snapshot.LastMessageID, snapshot.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE chat_id = ?`, snapshot.ChatID); err != nil {
		tx.Rollback()
		return err
	}

	for i, turn := range history {
		id := turn.ID
		if id == "" {
			id = uuid.New().String()
		}
		ts := turn.CreatedAt
		if ts.IsZero() {
			ts = snapshot.UpdatedAt
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO turns (id, chat_id, seq, role, content, ts) VALUES (?, ?, ?, ?, ?, ?)`,
			id, snapshot.ChatID, i, string(turn.Role), turn.Content, ts)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Delete chat holatini o'chirish
func (s *sqliteChatRepository) Delete(ctx context.Context, chatID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE chat_id = ?`, chatID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_states WHERE chat_id = ?`, chatID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListChatIDs saqlangan chatlar
func (s *sqliteChatRepository) ListChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM chat_states ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close ulanishni yopish
func (s *sqliteChatRepository) Close() error {
	return s.db.Close()
}
