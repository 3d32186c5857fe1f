package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	if err := insertMessage(ctx, d.db, create); err != nil {
		return nil, err
	}
	return create, nil
}

// CreateMessagePair appends the user and assistant messages of one turn in a
// single transaction so a crash never leaves half a turn behind.
func (d *DB) CreateMessagePair(ctx context.Context, user, assistant *store.Message) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, user); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, assistant); err != nil {
		return err
	}

	return tx.Commit()
}

type execQueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertMessage(ctx context.Context, db execQueryRower, create *store.Message) error {
	if create.Metadata == "" {
		create.Metadata = "{}"
	}

	fields := []string{"uid", "session_id", "role", "content", "metadata", "created_ts"}
	args := []any{create.UID, create.SessionID, create.Role, create.Content, create.Metadata, create.CreatedTs}

	stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}

	// Insertion order is the conversation order.
	query := `SELECT id, uid, session_id, role, content, metadata, created_ts FROM message
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.UID, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteMessages(ctx context.Context, delete *store.DeleteMessage) error {
	where, args := []string{"1 = 1"}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *delete.SessionID)
	}

	stmt := `DELETE FROM message WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
