package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/broadcast"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/session"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const RoleUser = "user"

var ErrInvalidInput = errors.New("invalid input")

type Users interface {
	Login(c context.Context, param request.Login) (response.Login, error)
	Signup(c context.Context, param request.Signup) (response.Signup, error)
	FindUserByID(c context.Context, userID string) (response.User, error)
}

type Sessions interface {
	session.Provider
	Save(c context.Context, value session.Value) error
	Clear(c context.Context) error
}

// Cart is the part of the cart store that follows the session.
type Cart interface {
	FetchCart(c context.Context) error
	Reset()
}

type Option func(*Service)

func WithCart(cart Cart) Option {
	return func(s *Service) { s.cart = cart }
}

func WithBroadcaster(broadcaster broadcast.Broadcaster, origin string) Option {
	return func(s *Service) {
		s.broadcaster = broadcaster
		s.origin = origin
	}
}

type Service struct {
	users       Users
	sessions    Sessions
	cart        Cart
	broadcaster broadcast.Broadcaster
	origin      string
}

func NewService(users Users, sessions Sessions, opts ...Option) *Service {
	s := &Service{users: users, sessions: sessions}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login stores {"_id", "token"} under the session key and loads the user's cart.
func (s *Service) Login(c context.Context, username string, password string) (response.User, error) {
	c, span := otel.Tracer.Start(c, "Service Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service Login").
		Str(log.KeyUsername, username).
		Logger()

	param := request.Login{Username: strings.TrimSpace(username), Password: password}

	logger = logger.With().Str(log.KeyProcess, "validating credentials").Logger()
	if err := validate.Get().StructCtx(c, param); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "logging in").Logger()
	logger.Debug().Msg("logging in")
	login, err := s.users.Login(logger.WithContext(c), param)
	if err != nil {
		err = fmt.Errorf("failed logging in with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger = logger.With().Str(log.KeyUserID, login.User.ID).Logger()
	logger.Info().Msg("logged in")

	logger = logger.With().Str(log.KeyProcess, "saving session").Logger()
	if err := s.sessions.Save(logger.WithContext(c), session.Parsed{ID: login.User.ID, Token: login.Token}); err != nil {
		err = fmt.Errorf("failed saving session with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Msg("saved session")

	s.publish(logger.WithContext(c), login.User.ID)

	if s.cart != nil {
		logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
		if err := s.cart.FetchCart(logger.WithContext(c)); err != nil {
			logger.Warn().Err(err).Msg("failed loading cart after login")
		}
	}

	return login.User, nil
}

// Logout deletes the session key and empties the cart.
func (s *Service) Logout(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Service Logout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service Logout").
		Logger()

	userID, _ := s.sessions.CurrentUserID(c)

	logger = logger.With().Str(log.KeyProcess, "clearing session").Logger()
	if err := s.sessions.Clear(logger.WithContext(c)); err != nil {
		err = fmt.Errorf("failed clearing session with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cleared session")

	if s.cart != nil {
		s.cart.Reset()
	}
	s.publish(logger.WithContext(c), userID)

	return nil
}

func (s *Service) Signup(c context.Context, param request.Signup) (response.User, error) {
	c, span := otel.Tracer.Start(c, "Service Signup")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service Signup").
		Str(log.KeyUsername, param.Username).
		Logger()

	param.Name = strings.TrimSpace(param.Name)
	param.Username = strings.TrimSpace(param.Username)
	param.Mobile = strings.TrimSpace(param.Mobile)
	if param.Role == "" {
		param.Role = RoleUser
	}

	logger = logger.With().Str(log.KeyProcess, "validating signup").Logger()
	if err := validate.Get().StructCtx(c, param); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "signing up").Logger()
	logger.Debug().Msg("signing up")
	signup, err := s.users.Signup(logger.WithContext(c), param)
	if err != nil {
		err = fmt.Errorf("failed signing up with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Str(log.KeyUserID, signup.User.ID).Msg("signed up")

	return signup.User, nil
}

// Profile returns the logged-in user's details.
func (s *Service) Profile(c context.Context) (response.User, error) {
	c, span := otel.Tracer.Start(c, "Service Profile")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service Profile").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "resolving session").Logger()
	userID, err := s.sessions.CurrentUserID(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.User{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding user").Str(log.KeyUserID, userID).Logger()
	user, err := s.users.FindUserByID(logger.WithContext(c), userID)
	if err != nil {
		err = fmt.Errorf("failed finding user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	return user, nil
}

func (s *Service) publish(c context.Context, userID string) {
	if s.broadcaster == nil {
		return
	}
	logger := zerolog.Ctx(c).With().Str(log.KeyProcess, "publishing session change").Logger()
	event := broadcast.Event{
		Origin: s.origin,
		Kind:   broadcast.KindSessionChanged,
		UserID: userID,
		At:     time.Now().UTC(),
	}
	if err := s.broadcaster.Publish(c, event); err != nil {
		logger.Warn().Err(err).Msg("failed publishing session change")
	}
}
