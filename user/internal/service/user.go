package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/token"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const uniqueViolation = "23505"

type Querier interface {
	InsertUser(c context.Context, arg repository.InsertUserParams) (repository.User, error)
	FindUserByUsername(c context.Context, username string) (repository.User, error)
	FindUserById(c context.Context, id uuid.UUID) (repository.User, error)
}

type UserService struct {
	queries   Querier
	secretKey string
	now       func() time.Time
}

func NewUserService(queries Querier, secretKey string) UserService {
	return UserService{queries: queries, secretKey: secretKey, now: time.Now}
}

func (svc UserService) Signup(c context.Context, param request.Signup) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserService Signup")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Signup").
		Str(log.KeyUsername, param.Username).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user by username").Logger()
	logger.Trace().Msg("finding user by username")
	_, err := svc.queries.FindUserByUsername(c, param.Username)
	if err == nil {
		err = inErrors.ErrUserAlreadyExists
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("failed finding user by username with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("username is available")

	logger = logger.With().Str(log.KeyProcess, "hashing password").Logger()
	logger.Trace().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrFailedHashing, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("hashed password")

	role := param.Role
	if role == "" {
		role = "user"
	}

	logger = logger.With().Str(log.KeyProcess, "inserting user").Logger()
	logger.Trace().Msg("inserting user")
	user, err := svc.queries.InsertUser(c, repository.InsertUserParams{
		ID:       uuid.New(),
		Name:     param.Name,
		Mobile:   param.Mobile,
		Username: param.Username,
		Password: string(hashed),
		Role:     role,
	})
	pgErr := &pgconn.PgError{}
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		err = fmt.Errorf("%w: %w", inErrors.ErrUserAlreadyExists, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed inserting user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Str(log.KeyUserID, user.ID.String()).Msg("inserted user")

	return user.Response(), nil
}

func (svc UserService) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Login").
		Str(log.KeyUsername, param.Username).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user by username").Logger()
	logger.Trace().Msg("finding user by username")
	user, err := svc.queries.FindUserByUsername(c, param.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		err = inErrors.ErrPasswordMismatch
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding user by username with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(log.KeyUserID, user.ID.String()).Logger()
	logger.Trace().Msg("found user by username")

	logger = logger.With().Str(log.KeyProcess, "comparing password").Logger()
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password)); err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrPasswordMismatch, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Login{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "signing token").Logger()
	logger.Trace().Msg("signing token")
	signed, err := token.Sign(c, svc.secretKey, user.ID.String(), svc.now())
	if err != nil {
		err = fmt.Errorf("failed signing token with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("logged in")

	return response.Login{User: user.Response(), Token: signed}, nil
}

func (svc UserService) FindUserById(c context.Context, userID string) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserService FindUserById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService FindUserById").
		Str(log.KeyUserID, userID).
		Logger()

	id, err := uuid.Parse(userID)
	if err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrUserNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.User{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding user by id").Logger()
	logger.Trace().Msg("finding user by id")
	user, err := svc.queries.FindUserById(c, id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("%w: %w", inErrors.ErrUserNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding user by id with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("found user by id")

	return user.Response(), nil
}
