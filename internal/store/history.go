package store

import (
	"encoding/json"
	"fmt"

	"github.com/mpostma/toolgate/internal/llm"
)

// SaveHistory replaces the stored history for a session wholesale. History is
// append-only in memory, so a full rewrite keeps the on-disk copy canonical.
func (db *DB) SaveHistory(sessionID string, msgs []llm.Message) error {
	tx, err := db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id, updated_at) VALUES (?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')
	`, sessionID); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	for seq, msg := range msgs {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshal message %d: %w", seq, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)",
			sessionID, seq, msg.Role, string(content),
		); err != nil {
			return fmt.Errorf("insert message %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// LoadHistory returns the stored history for a session, in order. A session
// that was never saved yields an empty history.
func (db *DB) LoadHistory(sessionID string) ([]llm.Message, error) {
	rows, err := db.sql.Query(
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []llm.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var blocks []llm.ContentBlock
		if err := json.Unmarshal([]byte(content), &blocks); err != nil {
			return nil, fmt.Errorf("unmarshal message content: %w", err)
		}
		msgs = append(msgs, llm.Message{Role: role, Content: blocks})
	}
	return msgs, rows.Err()
}

// DeleteSession removes a session and its messages.
func (db *DB) DeleteSession(sessionID string) error {
	_, err := db.sql.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// ListSessions returns all stored session ids.
func (db *DB) ListSessions() ([]string, error) {
	rows, err := db.sql.Query("SELECT id FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
