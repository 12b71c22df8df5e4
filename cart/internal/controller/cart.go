package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/token"
	"github.com/Alturino/storefront/internal/validate"
)

var errBadRequest = errors.New("bad request")

type CartController struct {
	service *service.CartService
}

func AttachCartController(mux *mux.Router, service *service.CartService, secretKey string) {
	controller := CartController{service}

	router := mux.PathPrefix("/api/cart").Subrouter()
	router.Use(middleware.Auth(secretKey))
	router.HandleFunc("/add", controller.AddItem).Methods(http.MethodPost)
	router.HandleFunc("/update", controller.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/update/{userId}/{productId}", controller.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/remove/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/remove/{userId}/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/clear", controller.ClearCart).Methods(http.MethodDelete)
	router.HandleFunc("/{userId}", controller.FindCart).Methods(http.MethodGet)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, inErrors.ErrProductNotFound), errors.Is(err, inErrors.ErrCartItemNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func publicError(err error) error {
	for _, sentinel := range []error{inErrors.ErrForbidden, inErrors.ErrProductNotFound, inErrors.ErrCartItemNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

// authorize rejects requests whose verified token belongs to another user. Anonymous
// requests are allowed.
func authorize(c context.Context, userID string) error {
	subject, ok := token.SubjectFromContext(c)
	if ok && subject != userID {
		return inErrors.ErrForbidden
	}
	return nil
}

// decodeRequest reads the JSON body into T, lets fill copy path variables over it and
// validates the result. An empty body is accepted for path-parameterized routes.
func decodeRequest[T any](r *http.Request, fill func(*T, map[string]string)) (T, error) {
	body := new(T)
	if err := json.NewDecoder(r.Body).Decode(body); err != nil && !errors.Is(err, io.EOF) {
		return *body, fmt.Errorf("%w: failed decoding request body with error=%w", errBadRequest, err)
	}
	fill(body, mux.Vars(r))
	if err := validate.Get().StructCtx(r.Context(), body); err != nil {
		return *body, fmt.Errorf("%w: failed validating request body with error=%w", errBadRequest, err)
	}
	return *body, nil
}

func (ctrl CartController) fail(c context.Context, w http.ResponseWriter, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Msg(err.Error())
	inHttp.WriteJsonError(c, w, statusOf(err), publicError(err))
}

func (ctrl CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController FindCart").
		Str(log.KeyUserID, userID).
		Logger()

	if err := authorize(c, userID); err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Trace().Msg("finding cart")
	cart, err := ctrl.service.FindCart(logger.WithContext(c), userID)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Info().Int(log.KeyCartItemsLen, len(cart.Items)).Msg("found cart")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, cart)
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController AddItem").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody, err := decodeRequest(r, func(*request.AddItem, map[string]string) {})
	if err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().
		Str(log.KeyUserID, reqBody.UserID).
		Str(log.KeyProductID, reqBody.ProductID).
		Float64(log.KeyQuantity, reqBody.Quantity).
		Logger()
	if err := authorize(c, reqBody.UserID); err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Trace().Msg("adding item")
	cart, err := ctrl.service.AddItem(logger.WithContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Info().Msg("added item")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, response.Mutation{Cart: cart})
}

func (ctrl CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateItem").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody, err := decodeRequest(r, func(body *request.UpdateItem, vars map[string]string) {
		if userID, ok := vars["userId"]; ok {
			body.UserID = userID
		}
		if productID, ok := vars["productId"]; ok {
			body.ProductID = productID
		}
	})
	if err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().
		Str(log.KeyUserID, reqBody.UserID).
		Str(log.KeyProductID, reqBody.ProductID).
		Float64(log.KeyQuantity, reqBody.Quantity).
		Logger()
	if err := authorize(c, reqBody.UserID); err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "updating item").Logger()
	logger.Trace().Msg("updating item")
	cart, err := ctrl.service.UpdateItem(logger.WithContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed updating item with error=%w", err)
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Info().Msg("updated item")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, response.Mutation{Cart: cart})
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody, err := decodeRequest(r, func(body *request.RemoveItem, vars map[string]string) {
		if userID, ok := vars["userId"]; ok {
			body.UserID = userID
		}
		body.ProductID = vars["productId"]
	})
	if err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().
		Str(log.KeyUserID, reqBody.UserID).
		Str(log.KeyProductID, reqBody.ProductID).
		Logger()
	if err := authorize(c, reqBody.UserID); err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "removing item").Logger()
	logger.Trace().Msg("removing item")
	cart, err := ctrl.service.RemoveItem(logger.WithContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Info().Msg("removed item")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, response.Mutation{Cart: cart})
}

func (ctrl CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController ClearCart").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody, err := decodeRequest(r, func(*request.ClearCart, map[string]string) {})
	if err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyUserID, reqBody.UserID).Logger()
	if err := authorize(c, reqBody.UserID); err != nil {
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Trace().Msg("clearing cart")
	if err := ctrl.service.ClearCart(logger.WithContext(c), reqBody); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		ctrl.fail(c, w, logger, err)
		return
	}
	logger.Info().Msg("cleared cart")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, map[string]any{})
}
