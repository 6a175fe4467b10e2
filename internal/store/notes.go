package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxImages is the number of images a note may carry.
const MaxImages = 16

// Note is a post with its reactions and comments.
type Note struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Owner        string    `json:"owner"`
	CreationDate time.Time `json:"creationDate"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	Images       []string  `json:"images"`
}

// NewNote holds the fields accepted when creating a note.
type NewNote struct {
	Title       string
	Description string
	Owner       string
	Images      []string
}

const noteColumns = `id, title, description, owner, images, created_at`

// CreateNote inserts a note owned by in.Owner.
func (s *Store) CreateNote(ctx context.Context, in NewNote) (*Note, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}

	n := Note{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Owner:        in.Owner,
		CreationDate: s.now(),
		Likes:        []string{},
		Comments:     []Comment{},
		Images:       images,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Description, n.Owner, string(encoded), n.CreationDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &n, nil
}

// NoteByID returns the note with its likes and comments.
func (s *Store) NoteByID(ctx context.Context, id string) (*Note, error) {
	return s.loadNote(ctx, s.db, id)
}

// ListNotes returns every note, newest first, with likes and comments.
func (s *Store) ListNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range notes {
		if err := s.attachNoteRelations(ctx, s.db, &notes[i]); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// CountNotes returns the number of notes.
func (s *Store) CountNotes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}

// DeleteNote removes the note together with its comments, likes and
// favorites and returns it as it was before deletion.
func (s *Store) DeleteNote(ctx context.Context, id string) (*Note, error) {
	var out *Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.loadNote(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		out = n
		return nil
	})
	return out, err
}

// AddLike records userID's reaction on the note. A missing note yields
// ErrNotFound, a repeated reaction ErrDuplicate.
func (s *Store) AddLike(ctx context.Context, noteID, userID string) (*Note, error) {
	var out *Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM notes WHERE id = ?`, noteID)
		if err != nil {
			return fmt.Errorf("find note: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO note_likes (note_id, user_id, created_at) VALUES (?, ?, ?)`,
			noteID, userID, s.now())
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}

		out, err = s.loadNote(ctx, tx, noteID)
		return err
	})
	return out, err
}

// RemoveLike deletes userID's reaction on the note. A reaction that does not
// exist yields ErrAbsent.
func (s *Store) RemoveLike(ctx context.Context, noteID, userID string) (*Note, error) {
	var out *Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM note_likes WHERE note_id = ? AND user_id = ?`, noteID, userID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAbsent
		}
		out, err = s.loadNote(ctx, tx, noteID)
		return err
	})
	return out, err
}

func scanNote(row rowScanner) (*Note, error) {
	var (
		n      Note
		images string
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Description, &n.Owner, &images, &n.CreationDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &n.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if n.Images == nil {
		n.Images = []string{}
	}
	return &n, nil
}

func (s *Store) loadNote(ctx context.Context, q queryer, id string) (*Note, error) {
	n, err := scanNote(q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}
	if err := s.attachNoteRelations(ctx, q, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) attachNoteRelations(ctx context.Context, q queryer, n *Note) error {
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM note_likes WHERE note_id = ? ORDER BY created_at, user_id`, n.ID)
	if err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	if n.Likes, err = collectStrings(rows); err != nil {
		return fmt.Errorf("load likes: %w", err)
	}

	n.Comments, err = s.commentsForNote(ctx, q, n.ID)
	return err
}
