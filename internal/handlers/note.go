package handlers

import (
	"context"
	"strings"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
	"github.com/Tyrowin/reddnotes/internal/store"
)

type noteInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Photos      []string `json:"photos"`
}

type noteRef struct {
	NoteID string `json:"noteId"`
}

func (r noteRef) id() (string, error) {
	return requireID(r.NoteID)
}

// ListNotes returns every note, newest first.
func (s *Service) ListNotes(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgGetNotes, Data: notes}, nil
}

// CreateNote stores a note owned by the caller.
func (s *Service) CreateNote(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || len(in.Photos) > store.MaxImages {
		return nil, apperr.BadRequest(apperr.MsgValidation)
	}

	note, err := s.store.CreateNote(ctx, store.NewNote{
		Title:       title,
		Description: description,
		Owner:       req.Caller.UserID,
		Images:      in.Photos,
	})
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusCreated, StatusMessage: msgNoteCreated, Data: note}, nil
}

// DeleteNote removes one of the caller's notes.
func (s *Service) DeleteNote(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := in.id()
	if err != nil {
		return nil, err
	}

	note, err := s.store.NoteByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundNote), nil, nil)
	}
	if note.Owner != req.Caller.UserID {
		return nil, apperr.Forbidden(apperr.MsgForbiddenNote)
	}
	if note, err = s.store.DeleteNote(ctx, id); err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundNote), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusDeleted, StatusMessage: msgNoteDeleted, Data: note}, nil
}

// SetReaction likes a note on behalf of the caller.
func (s *Service) SetReaction(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := in.id()
	if err != nil {
		return nil, err
	}

	note, err := s.store.AddLike(ctx, id, req.Caller.UserID)
	if err != nil {
		return nil, mapStoreErr(err,
			apperr.NotFound(apperr.MsgNotFoundNote),
			apperr.Forbidden(apperr.MsgReactionExists),
			nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgReactionSet, Data: note}, nil
}

// DeleteReaction withdraws the caller's like.
func (s *Service) DeleteReaction(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := in.id()
	if err != nil {
		return nil, err
	}

	note, err := s.store.RemoveLike(ctx, id, req.Caller.UserID)
	if err != nil {
		return nil, mapStoreErr(err,
			apperr.NotFound(apperr.MsgNotFoundNote),
			nil,
			apperr.Forbidden(apperr.MsgReactionMissing))
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgReactionDelete, Data: note}, nil
}

// AddFavorite bookmarks a note for the caller.
func (s *Service) AddFavorite(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := in.id()
	if err != nil {
		return nil, err
	}

	user, err := s.store.AddFavorite(ctx, req.Caller.UserID, id)
	if err != nil {
		return nil, mapStoreErr(err,
			apperr.NotFound(apperr.MsgNotFoundNote),
			apperr.Forbidden(apperr.MsgFavoriteExists),
			nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgFavoriteAdd, Data: user}, nil
}

// DeleteFavorite removes a bookmark.
func (s *Service) DeleteFavorite(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in noteRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := in.id()
	if err != nil {
		return nil, err
	}

	user, err := s.store.RemoveFavorite(ctx, req.Caller.UserID, id)
	if err != nil {
		return nil, mapStoreErr(err,
			apperr.NotFound(apperr.MsgNotFoundUser),
			nil,
			apperr.Forbidden(apperr.MsgFavoriteMissing))
	}
	return &dispatch.Result{StatusCode: apperr.StatusDeleted, StatusMessage: msgFavoriteDelete, Data: user}, nil
}
