package handlers

import (
	"context"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
)

const (
	actionCountUsers = "count all users"
	actionCountNotes = "count all notes"
)

// CountUsers reports the number of registered users.
func (s *Service) CountUsers(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgGetUsers, Data: n}, nil
}

// CountNotes reports the number of notes.
func (s *Service) CountNotes(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	n, err := s.store.CountNotes(ctx)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgGetNotes, Data: n}, nil
}

func userCountResponse(n int) dispatch.Response {
	return dispatch.Response{
		Type:          typeInfo,
		Action:        actionCountUsers,
		StatusCode:    apperr.StatusOK,
		StatusMessage: msgGetUsers,
		Data:          n,
	}
}
