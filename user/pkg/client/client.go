package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/httpclient"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

type UserClient struct {
	http *httpclient.Client
}

func NewUserClient(http *httpclient.Client) *UserClient {
	return &UserClient{http: http}
}

// Login returns inErrors.ErrPasswordMismatch when the API rejects the credentials.
func (cl *UserClient) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserClient Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserClient Login").
		Str(log.KeyUsername, param.Username).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "logging in").Logger()
	logger.Trace().Msg("logging in")
	login := response.Login{}
	err := cl.http.Do(logger.WithContext(c), http.MethodPost, "/login", param, &login)
	switch httpclient.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusNotFound, http.StatusBadRequest:
		err = fmt.Errorf("%w: %w", inErrors.ErrPasswordMismatch, err)
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Str(log.KeyUserID, login.User.ID).Msg("logged in")

	return login, nil
}

// Signup returns inErrors.ErrUserAlreadyExists when the username is taken.
func (cl *UserClient) Signup(c context.Context, param request.Signup) (response.Signup, error) {
	c, span := otel.Tracer.Start(c, "UserClient Signup")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserClient Signup").
		Str(log.KeyUsername, param.Username).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "signing up").Logger()
	logger.Trace().Msg("signing up")
	signup := response.Signup{}
	err := cl.http.Do(logger.WithContext(c), http.MethodPost, "/signup", param, &signup)
	if httpclient.StatusCode(err) == http.StatusConflict {
		err = fmt.Errorf("%w: %w", inErrors.ErrUserAlreadyExists, err)
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Signup{}, err
	}
	logger.Info().Str(log.KeyUserID, signup.User.ID).Msg("signed up")

	return signup, nil
}

func (cl *UserClient) FindUserByID(c context.Context, userID string) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserClient FindUserByID")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserClient FindUserByID").
		Str(log.KeyUserID, userID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting user").Logger()
	logger.Trace().Msg("getting user")
	user := response.User{}
	err := cl.http.Do(logger.WithContext(c), http.MethodGet, "/"+url.PathEscape(userID), nil, &user)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		err = fmt.Errorf("%w: %w", inErrors.ErrUserNotFound, err)
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("got user")

	return user, nil
}
