package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/user/internal/service"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

type UserController struct {
	service *service.UserService
}

func AttachUserController(mux *mux.Router, service *service.UserService) {
	controller := UserController{service}

	router := mux.PathPrefix("/api/users").Subrouter()
	router.HandleFunc("/signup", controller.Signup).Methods(http.MethodPost)
	router.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
	router.HandleFunc("/{userId}", controller.FindUserById).Methods(http.MethodGet)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrPasswordMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicError hides wrapped causes behind the sentinel the client understands.
func publicError(err error) error {
	for _, sentinel := range []error{inErrors.ErrUserAlreadyExists, inErrors.ErrPasswordMismatch, inErrors.ErrUserNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

func decode[T any](w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (T, bool) {
	c := r.Context()
	reqBody := *new(T)

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, http.StatusBadRequest, err)
		return reqBody, false
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, http.StatusBadRequest, err)
		return reqBody, false
	}
	return reqBody, true
}

func (ctrl UserController) Signup(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Signup")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Signup").
		Logger()

	reqBody, ok := decode[request.Signup](w, r.WithContext(c), logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, "signing up").Str(log.KeyUsername, reqBody.Username).Logger()
	logger.Trace().Msg("signing up")
	user, err := ctrl.service.Signup(logger.WithContext(c), reqBody)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), publicError(err))
		return
	}
	logger.Info().Str(log.KeyUserID, user.ID).Msg("signed up")

	inHttp.WriteJsonResponse(c, w, http.StatusCreated, map[string]string{}, response.Signup{
		Message: "User registered successfully",
		User:    user,
	})
}

func (ctrl UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Login").
		Logger()

	reqBody, ok := decode[request.Login](w, r.WithContext(c), logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyProcess, "logging in").Str(log.KeyUsername, reqBody.Username).Logger()
	logger.Trace().Msg("logging in")
	login, err := ctrl.service.Login(logger.WithContext(c), reqBody)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), publicError(err))
		return
	}
	logger.Info().Str(log.KeyUserID, login.User.ID).Msg("logged in")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, login)
}

func (ctrl UserController) FindUserById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController FindUserById")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController FindUserById").
		Str(log.KeyUserID, userID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Trace().Msg("finding user")
	user, err := ctrl.service.FindUserById(logger.WithContext(c), userID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), publicError(err))
		return
	}
	logger.Trace().Msg("found user")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, user)
}
