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
	"github.com/Alturino/storefront/product/internal/service"
	"github.com/Alturino/storefront/product/pkg/request"
)

type ProductController struct {
	service *service.ProductService
}

func AttachProductController(mux *mux.Router, service *service.ProductService) {
	controller := ProductController{service}

	router := mux.PathPrefix("/api/products").Subrouter()
	router.HandleFunc("/all", controller.FindProducts).Methods(http.MethodGet)
	router.HandleFunc("", controller.InsertProduct).Methods(http.MethodPost)
	router.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)
	router.HandleFunc("/{productId}", controller.DeleteProduct).Methods(http.MethodDelete)
}

func statusOf(err error) int {
	if errors.Is(err, inErrors.ErrProductNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (ctrl ProductController) FindProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProducts").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding products").Logger()
	logger.Trace().Msg("finding products")
	products, err := ctrl.service.FindProducts(logger.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), err)
		return
	}
	logger.Info().Msg("found products")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, products)
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProductById").
		Str(log.KeyProductID, productID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Trace().Msg("finding product")
	product, err := ctrl.service.FindProductById(logger.WithContext(c), productID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), err)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, product)
}

func (ctrl ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController InsertProduct").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.InsertProduct{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := validate.Get().StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "inserting product").Logger()
	logger.Trace().Msg("inserting product")
	product, err := ctrl.service.InsertProduct(logger.WithContext(c), reqBody)
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), err)
		return
	}
	logger.Info().Str(log.KeyProductID, product.ID).Msg("inserted product")

	inHttp.WriteJsonResponse(c, w, http.StatusCreated, map[string]string{}, product)
}

func (ctrl ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController DeleteProduct")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController DeleteProduct").
		Str(log.KeyProductID, productID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "deleting product").Logger()
	logger.Trace().Msg("deleting product")
	if err := ctrl.service.DeleteProduct(logger.WithContext(c), productID); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonError(c, w, statusOf(err), err)
		return
	}
	logger.Info().Msg("deleted product")

	inHttp.WriteJsonResponse(c, w, http.StatusOK, map[string]string{}, map[string]string{
		"message": "Product deleted successfully",
	})
}
