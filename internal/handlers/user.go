package handlers

import (
	"context"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
)

// UpdateUser edits the caller's profile. Only the supplied fields change.
func (s *Service) UpdateUser(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in profileInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	profile, err := in.toProfile()
	if err != nil {
		return nil, err
	}

	user, err := s.store.UpdateProfile(ctx, req.Caller.UserID, profile)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundUser), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgUserUpdated, Data: user}, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context, _ *dispatch.Request) (*dispatch.Result, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgGetUsers, Data: users}, nil
}

// CurrentUser returns the user the caller's token belongs to.
func (s *Service) CurrentUser(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	return s.userResult(ctx, req.Caller.UserID)
}

type userRef struct {
	UserID string `json:"userId"`
}

// UserByID returns the user named in data.userId.
func (s *Service) UserByID(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in userRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id, err := requireID(in.UserID)
	if err != nil {
		return nil, err
	}
	return s.userResult(ctx, id)
}

func (s *Service) userResult(ctx context.Context, id string) (*dispatch.Result, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundUser), nil, nil)
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgGetUser, Data: user}, nil
}
