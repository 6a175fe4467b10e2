package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Comment is a reply attached to a note.
type Comment struct {
	ID           string     `json:"_id"`
	NoteID       string     `json:"noteId"`
	Owner        string     `json:"owner"`
	Value        string     `json:"value"`
	CreationDate time.Time  `json:"creationDate"`
	UpdateDate   *time.Time `json:"updateDate,omitempty"`
}

const commentColumns = `id, note_id, owner, value, created_at, updated_at`

// CreateComment attaches a comment to a note. A missing note yields
// ErrNotFound.
func (s *Store) CreateComment(ctx context.Context, noteID, owner, value string) (*Comment, error) {
	c := Comment{
		ID:           uuid.NewString(),
		NoteID:       noteID,
		Owner:        owner,
		Value:        value,
		CreationDate: s.now(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM notes WHERE id = ?`, noteID)
		if err != nil {
			return fmt.Errorf("find note: %w", err)
		}
		if !ok {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, NULL)`,
			c.ID, c.NoteID, c.Owner, c.Value, c.CreationDate,
		)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComment replaces the value of a comment owned by owner. A comment
// that does not exist or belongs to someone else yields ErrNotFound.
func (s *Store) UpdateComment(ctx context.Context, id, owner, value string) (*Comment, error) {
	var out *Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE comments SET value = ?, updated_at = ? WHERE id = ? AND owner = ?`,
			value, s.now(), id, owner)
		if err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		out, err = loadComment(ctx, tx, id)
		return err
	})
	return out, err
}

// DeleteComment removes a comment owned by owner and returns it. A comment
// that does not exist or belongs to someone else yields ErrNotFound.
func (s *Store) DeleteComment(ctx context.Context, id, owner string) (*Comment, error) {
	var out *Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := loadComment(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.Owner != owner {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		out = c
		return nil
	})
	return out, err
}

func scanComment(row rowScanner) (*Comment, error) {
	var (
		c       Comment
		updated sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.NoteID, &c.Owner, &c.Value, &c.CreationDate, &updated); err != nil {
		return nil, err
	}
	c.UpdateDate = timePtr(updated)
	return &c, nil
}

func loadComment(ctx context.Context, q queryer, id string) (*Comment, error) {
	c, err := scanComment(q.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}
	return c, nil
}

func (s *Store) commentsForNote(ctx context.Context, q queryer, noteID string) ([]Comment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE note_id = ? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}
