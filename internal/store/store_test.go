package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, nickname string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUser{Nickname: nickname, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func mustNote(t *testing.T, s *Store, owner string) *Note {
	t.Helper()
	n, err := s.CreateNote(context.Background(), NewNote{Title: "t", Description: "d", Owner: owner})
	require.NoError(t, err)
	return n
}

func TestOpenCreatesFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reddnotes.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	mustUser(t, s, "ann")
}

func TestCreateUserDefaultsAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := "Ann"
	u, err := s.CreateUser(ctx, NewUser{Nickname: "ann", PasswordHash: "hash", Profile: Profile{FirstName: &first}})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, DefaultAvatar, u.Avatar)
	assert.Equal(t, DefaultDescription, u.Description)
	assert.Equal(t, "Ann", *u.FirstName)

	_, err = s.CreateUser(ctx, NewUser{Nickname: "ann", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.UserByNickname(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.LastName)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "ann")

	desc := "hello"
	birthday := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	got, err := s.UpdateProfile(ctx, u.ID, Profile{Description: &desc, Birthday: &birthday})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Description)
	assert.Equal(t, DefaultAvatar, got.Avatar, "nil fields are unchanged")
	require.NotNil(t, got.Birthday)
	assert.True(t, birthday.Equal(*got.Birthday))

	reloaded, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", reloaded.Description)

	_, err = s.UpdateProfile(ctx, "missing", Profile{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotesLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "ann")
	bob := mustUser(t, s, "bob")

	n, err := s.CreateNote(ctx, NewNote{Title: "t", Description: "d", Owner: ann.ID, Images: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, n.Images)

	owner, err := s.UserByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, owner.Notes)

	liked, err := s.AddLike(ctx, n.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, liked.Likes)

	_, err = s.AddLike(ctx, n.ID, bob.ID)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.AddLike(ctx, "missing", bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.CreateComment(ctx, n.ID, bob.ID, "nice")
	require.NoError(t, err)

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Len(t, notes[0].Comments, 1)
	assert.Equal(t, c.ID, notes[0].Comments[0].ID)

	unliked, err := s.RemoveLike(ctx, n.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)
	_, err = s.RemoveLike(ctx, n.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAbsent)

	_, err = s.AddFavorite(ctx, bob.ID, n.ID)
	require.NoError(t, err)

	deleted, err := s.DeleteNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Comments, 1)

	count, err := s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = s.UpdateComment(ctx, c.ID, bob.ID, "gone")
	assert.ErrorIs(t, err, ErrNotFound, "comments cascade with their note")

	reloaded, err := s.UserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Favorites, "favorites cascade with their note")

	_, err = s.DeleteNote(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavorites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "ann")
	n := mustNote(t, s, ann.ID)

	u, err := s.AddFavorite(ctx, ann.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, u.Favorites)

	_, err = s.AddFavorite(ctx, ann.ID, n.ID)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.AddFavorite(ctx, ann.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	u, err = s.RemoveFavorite(ctx, ann.ID, n.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Favorites)
	_, err = s.RemoveFavorite(ctx, ann.ID, n.ID)
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestCommentsOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ann := mustUser(t, s, "ann")
	bob := mustUser(t, s, "bob")
	n := mustNote(t, s, ann.ID)

	_, err := s.CreateComment(ctx, "missing", ann.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.CreateComment(ctx, n.ID, ann.ID, "first")
	require.NoError(t, err)
	assert.Nil(t, c.UpdateDate)

	_, err = s.UpdateComment(ctx, c.ID, bob.ID, "hijack")
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := s.UpdateComment(ctx, c.ID, ann.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Value)
	assert.NotNil(t, updated.UpdateDate)

	_, err = s.DeleteComment(ctx, c.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := s.DeleteComment(ctx, c.ID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
