package handlers

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/apperr"
	"github.com/Tyrowin/reddnotes/internal/auth"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
	"github.com/Tyrowin/reddnotes/internal/store"
)

type credentials struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

func (c credentials) trimmed() (string, string, error) {
	nickname := strings.TrimSpace(c.Nickname)
	password := strings.TrimSpace(c.Password)
	if nickname == "" || password == "" {
		return "", "", apperr.BadRequest(apperr.MsgValueMissing)
	}
	return nickname, password, nil
}

// Login authenticates by nickname and password.
func (s *Service) Login(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in credentials
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	nickname, password, err := in.trimmed()
	if err != nil {
		return nil, err
	}

	user, err := s.store.UserByNickname(ctx, nickname)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundUser), nil, nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.BadRequest(apperr.MsgIncorrectData)
		}
		return nil, err
	}

	sess, id, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgLogin, Data: sess, Identity: id}, nil
}

// LoginByToken re-establishes a session from a still valid token.
func (s *Service) LoginByToken(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	user, err := s.store.UserByID(ctx, req.Caller.UserID)
	if err != nil {
		return nil, mapStoreErr(err, apperr.NotFound(apperr.MsgNotFoundUser), nil, nil)
	}

	sess, id, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return &dispatch.Result{StatusCode: apperr.StatusOK, StatusMessage: msgLogin, Data: sess, Identity: id}, nil
}

type signupInput struct {
	credentials
	profileInput
}

// Signup registers a user and tells every connection the new user count.
func (s *Service) Signup(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var in signupInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	nickname, password, err := in.trimmed()
	if err != nil {
		return nil, err
	}
	profile, err := in.toProfile()
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.store.CreateUser(ctx, store.NewUser{Nickname: nickname, PasswordHash: hash, Profile: profile})
	if err != nil {
		return nil, mapStoreErr(err, nil, apperr.Conflict(apperr.MsgDuplicateUser), nil)
	}

	sess, id, err := s.session(user)
	if err != nil {
		return nil, err
	}

	if count, err := s.store.CountUsers(ctx); err != nil {
		s.logger.Warn("failed to count users after signup", zap.Error(err))
	} else {
		req.Notifier.Broadcast(userCountResponse(count), true)
	}

	return &dispatch.Result{StatusCode: apperr.StatusCreated, StatusMessage: msgUserCreated, Data: sess, Identity: id}, nil
}
