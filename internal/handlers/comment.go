package handlers

import (
	"context"
	"strings"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
)

type commentInput struct {
	NoteID    string `json:"noteId"`
	CommentID string `json:"commentId"`
	Value     string `json:"value"`
}

func (c commentInput) value() (string, error) {
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", apperr.BadRequest(apperr.MsgValidation)
	}
	return v, nil
}

// CreateComment attaches a comment by the caller to a note.
func (s *Service) CreateComment(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in commentInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	noteID, err := requireID(in.NoteID)
	if err != nil {
		return nil, err
	}
	value, err := in.value()
	if err != nil {
		return nil, err
	}

	c, err := s.store.CreateComment(ctx, noteID, req.Caller.UserID, value)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundNote), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusCreated, StatusMessage: msgCommentCreated, Data: c}, nil
}

// UpdateComment replaces the text of one of the caller's comments.
func (s *Service) UpdateComment(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in commentInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := requireID(in.CommentID)
	if err != nil {
		return nil, err
	}
	value, err := in.value()
	if err != nil {
		return nil, err
	}

	c, err := s.store.UpdateComment(ctx, id, req.Caller.UserID, value)
	if err != nil {
		return nil, mapStoreErr(err, apperr.Forbidden(apperr.MsgForbiddenCmt), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgCommentUpdated, Data: c}, nil
}

// DeleteComment removes one of the caller's comments.
func (s *Service) DeleteComment(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in commentInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := requireID(in.CommentID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.DeleteComment(ctx, id, req.Caller.UserID)
	if err != nil {
		return nil, mapStoreErr(err, apperr.Forbidden(apperr.MsgForbiddenCmt), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusDeleted, StatusMessage: msgCommentDeleted, Data: c}, nil
}
