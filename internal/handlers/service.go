// Package handlers implements the operations reachable through the
// WebSocket endpoint and the static route list that exposes them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/auth"
	"github.com/Tyrowin/reddnotes/internal/store"
)

// Status messages for successful results.
const (
	msgLogin          = "You have successfully logged in"
	msgUserCreated    = "User was successful created"
	msgUserUpdated    = "Info of user was successful updated"
	msgGetUser        = "Here info about user"
	msgGetUsers       = "Here info about users"
	msgGetNotes       = "Here info about notes"
	msgNoteCreated    = "Note was successful created"
	msgNoteDeleted    = "Note was successful deleted"
	msgReactionSet    = "Reaction was successful set"
	msgReactionDelete = "Reaction was successful deleted"
	msgFavoriteAdd    = "Note was successful added to favorites"
	msgFavoriteDelete = "Note was successful deleted from favorites"
	msgCommentCreated = "Comment was successful created"
	msgCommentUpdated = "Comment of note was successful updated"
	msgCommentDeleted = "Comment was successful deleted"
)

// Store is the persistence the handlers need.
type Store interface {
	CreateUser(ctx context.Context, in store.NewUser) (*store.User, error)
	UserByNickname(ctx context.Context, nickname string) (*store.User, error)
	UserByID(ctx context.Context, id string) (*store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	UpdateProfile(ctx context.Context, id string, p store.Profile) (*store.User, error)
	CountUsers(ctx context.Context) (int, error)
	AddFavorite(ctx context.Context, userID, noteID string) (*store.User, error)
	RemoveFavorite(ctx context.Context, userID, noteID string) (*store.User, error)

	CreateNote(ctx context.Context, in store.NewNote) (*store.Note, error)
	NoteByID(ctx context.Context, id string) (*store.Note, error)
	ListNotes(ctx context.Context) ([]store.Note, error)
	CountNotes(ctx context.Context) (int, error)
	DeleteNote(ctx context.Context, id string) (*store.Note, error)
	AddLike(ctx context.Context, noteID, userID string) (*store.Note, error)
	RemoveLike(ctx context.Context, noteID, userID string) (*store.Note, error)

	CreateComment(ctx context.Context, noteID, owner, value string) (*store.Comment, error)
	UpdateComment(ctx context.Context, id, owner, value string) (*store.Comment, error)
	DeleteComment(ctx context.Context, id, owner string) (*store.Comment, error)
}

// Service holds the collaborators shared by all handlers.
type Service struct {
	store  Store
	tokens auth.Issuer
	logger *zap.Logger
}

// New creates a Service.
func New(st Store, tokens auth.Issuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  st,
		tokens: tokens,
		logger: logger.With(zap.String("component", "handlers")),
	}
}

// Session is returned by login and signup.
type Session struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// profileInput is the editable part of a user as sent by clients.
type profileInput struct {
	Avatar      *string `json:"avatar"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Birthday    *string `json:"birthday"`
	Description *string `json:"description"`
}

func (p profileInput) toProfile() (store.Profile, error) {
	out := store.Profile{
		Avatar:      p.Avatar,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Description: p.Description,
	}
	if p.Birthday != nil && *p.Birthday != "" {
		t, err := parseDate(*p.Birthday)
		if err != nil {
			return store.Profile{}, apperr.BadRequest(apperr.MsgValidation)
		}
		out.Birthday = &t
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// requireID validates a client supplied record id.
func requireID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", apperr.BadRequest(apperr.MsgInvalidID)
	}
	return parsed.String(), nil
}

// mapStoreErr turns the store's sentinels into domain errors; anything else
// is wrapped and reported as a server error by the dispatcher.
func mapStoreErr(err error, notFound, duplicate, absent *apperr.Error) error {
	switch {
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, store.ErrDuplicate) && duplicate != nil:
		return duplicate
	case errors.Is(err, store.ErrAbsent) && absent != nil:
		return absent
	default:
		return fmt.Errorf("store: %w", err)
	}
}

func (s *Service) session(user *store.User) (*Session, *auth.Identity, error) {
	id := auth.Identity{UserID: user.ID, Username: user.Nickname}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, nil, err
	}
	return &Session{Token: token, User: user}, &id, nil
}
