package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile defaults for new users.
const (
	DefaultAvatar      = "https://icons.veryicon.com/png/o/miscellaneous/rookie-official-icon-gallery/225-default-avatar.png"
	DefaultDescription = "I am a new user ReddNotes"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string     `json:"_id"`
	Nickname     string     `json:"nickname"`
	PasswordHash string     `json:"-"`
	Avatar       string     `json:"avatar"`
	FirstName    *string    `json:"firstName"`
	LastName     *string    `json:"lastName"`
	Birthday     *time.Time `json:"birthday"`
	Description  string     `json:"description"`
	CreationDate time.Time  `json:"creationDate"`
	Notes        []string   `json:"notes"`
	Favorites    []string   `json:"favorites"`
}

// NewUser holds the fields accepted at signup.
type NewUser struct {
	Nickname     string
	PasswordHash string
	Profile
}

// Profile holds the editable user fields. Nil fields are left unchanged on
// update and take their defaults on create.
type Profile struct {
	Avatar      *string
	FirstName   *string
	LastName    *string
	Birthday    *time.Time
	Description *string
}

const userColumns = `id, nickname, password, avatar, first_name, last_name, birthday, description, created_at`

// CreateUser inserts a user. A taken nickname yields ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	u := User{
		ID:           uuid.NewString(),
		Nickname:     in.Nickname,
		PasswordHash: in.PasswordHash,
		Avatar:       DefaultAvatar,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Birthday:     in.Birthday,
		Description:  DefaultDescription,
		CreationDate: s.now(),
		Notes:        []string{},
		Favorites:    []string{},
	}
	if in.Avatar != nil && *in.Avatar != "" {
		u.Avatar = *in.Avatar
	}
	if in.Description != nil && *in.Description != "" {
		u.Description = *in.Description
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Nickname, u.PasswordHash, u.Avatar,
		nullString(u.FirstName), nullString(u.LastName), nullTime(u.Birthday),
		u.Description, u.CreationDate,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// UserByNickname returns the user with the given nickname, including the
// password hash.
func (s *Store) UserByNickname(ctx context.Context, nickname string) (*User, error) {
	return s.loadUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE nickname = ?`, nickname)
}

// UserByID returns the user with id.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.loadUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// ListUsers returns every user ordered by creation.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range users {
		if err := s.attachUserRelations(ctx, s.db, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields of p to the user.
func (s *Store) UpdateProfile(ctx context.Context, id string, p Profile) (*User, error) {
	var out *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := s.loadUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if p.Avatar != nil {
			u.Avatar = *p.Avatar
		}
		if p.FirstName != nil {
			u.FirstName = p.FirstName
		}
		if p.LastName != nil {
			u.LastName = p.LastName
		}
		if p.Birthday != nil {
			u.Birthday = p.Birthday
		}
		if p.Description != nil {
			u.Description = *p.Description
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET avatar = ?, first_name = ?, last_name = ?, birthday = ?, description = ? WHERE id = ?`,
			u.Avatar, nullString(u.FirstName), nullString(u.LastName), nullTime(u.Birthday), u.Description, id,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = u
		return nil
	})
	return out, err
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// AddFavorite adds the note to the user's favorites. A missing note yields
// ErrNotFound, an existing favorite ErrDuplicate.
func (s *Store) AddFavorite(ctx context.Context, userID, noteID string) (*User, error) {
	var out *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM notes WHERE id = ?`, noteID)
		if err != nil {
			return fmt.Errorf("find note: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO favorites (user_id, note_id, created_at) VALUES (?, ?, ?)`,
			userID, noteID, s.now())
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert favorite: %w", err)
		}

		out, err = s.loadUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
		return err
	})
	return out, err
}

// RemoveFavorite removes the note from the user's favorites. A favorite
// that does not exist yields ErrAbsent.
func (s *Store) RemoveFavorite(ctx context.Context, userID, noteID string) (*User, error) {
	var out *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND note_id = ?`, userID, noteID)
		if err != nil {
			return fmt.Errorf("delete favorite: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAbsent
		}
		out, err = s.loadUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
		return err
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		firstName sql.NullString
		lastName  sql.NullString
		birthday  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Nickname, &u.PasswordHash, &u.Avatar,
		&firstName, &lastName, &birthday, &u.Description, &u.CreationDate)
	if err != nil {
		return nil, err
	}
	u.FirstName = stringPtr(firstName)
	u.LastName = stringPtr(lastName)
	u.Birthday = timePtr(birthday)
	return &u, nil
}

func (s *Store) loadUser(ctx context.Context, q queryer, query string, args ...any) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.attachUserRelations(ctx, q, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) attachUserRelations(ctx context.Context, q queryer, u *User) error {
	rows, err := q.QueryContext(ctx, `SELECT id FROM notes WHERE owner = ? ORDER BY created_at, id`, u.ID)
	if err != nil {
		return fmt.Errorf("load user notes: %w", err)
	}
	if u.Notes, err = collectStrings(rows); err != nil {
		return fmt.Errorf("load user notes: %w", err)
	}

	rows, err = q.QueryContext(ctx, `SELECT note_id FROM favorites WHERE user_id = ? ORDER BY created_at, note_id`, u.ID)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	if u.Favorites, err = collectStrings(rows); err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	return nil
}
