package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// sqliteNoteRepo implements NoteRepository for SQLite.
type sqliteNoteRepo struct {
	db *sql.DB
}

func (r *sqliteNoteRepo) Create(ctx context.Context, note *models.AlertNote) error {
	query := `
		INSERT INTO alert_notes (id, alert_id, content, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.AlertID, note.Content, note.AuthorID,
		note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *sqliteNoteRepo) ListByAlert(ctx context.Context, alertID string) ([]*models.AlertNote, error) {
	query := `
		SELECT id, alert_id, content, author_id, created_at, updated_at
		FROM alert_notes WHERE alert_id = ?
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.AlertNote
	for rows.Next() {
		var note models.AlertNote
		err := rows.Scan(&note.ID, &note.AlertID, &note.Content,
			&note.AuthorID, &note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

// Update replaces the note body and reassigns authorship to the caller.
// The note keeps its identity and creation time.
func (r *sqliteNoteRepo) Update(ctx context.Context, alertID, noteID, content, authorID string) (*models.AlertNote, error) {
	query := `
		UPDATE alert_notes
		SET content = ?, author_id = ?, updated_at = ?
		WHERE id = ? AND alert_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, content, authorID, time.Now(), noteID, alertID)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	var note models.AlertNote
	err = r.db.QueryRowContext(ctx, `
		SELECT id, alert_id, content, author_id, created_at, updated_at
		FROM alert_notes WHERE id = ?
	`, noteID).Scan(&note.ID, &note.AlertID, &note.Content,
		&note.AuthorID, &note.CreatedAt, &note.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &note, nil
}
