// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service, storage and upstream-client errors into those codes. Codes give
// clients a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (bad_request, unauthorized, forbidden, not_found) mirror
//     HTTP status semantics.
//   - Domain codes (self_purchase, insufficient_stock, invalid_transition,
//     order_already_paid, ...) name business rule violations that a client
//     branches on.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "insufficient_stock",
//	  "message": "insufficient stock"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anidigital/harvest-hub/internal/cropdoctor"
	"github.com/anidigital/harvest-hub/internal/services"
	"github.com/anidigital/harvest-hub/internal/storage"
	"github.com/anidigital/harvest-hub/internal/weather"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSelfPurchase       = "self_purchase"
	ErrCodeInsufficientStock  = "insufficient_stock"
	ErrCodeInvalidTransition  = "invalid_transition"
	ErrCodeOrderAlreadyPaid   = "order_already_paid"
	ErrCodeProductHasOrders   = "product_has_orders"
	ErrCodeFileTooLarge       = "file_too_large"
	ErrCodeUnsupportedMedia   = "unsupported_media_type"
	ErrCodeUpstreamFailed     = "upstream_failed"
	ErrCodeFeatureUnavailable = "feature_not_configured"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

// errorRule maps one sentinel to a status and code.
type errorRule struct {
	err    error
	status int
	code   string
}

// errorRules is checked in order with errors.Is; the first match wins.
var errorRules = []errorRule{
	// not found
	{services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrOrderNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrProductNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrShopNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrProofNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrTransactionNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrNotificationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
	{weather.ErrLocationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{weather.ErrPolygonNotFound, http.StatusNotFound, ErrCodeNotFound},
	{cropdoctor.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},

	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},

	// business rules
	{services.ErrSelfPurchase, http.StatusBadRequest, ErrCodeSelfPurchase},
	{services.ErrInsufficientStock, http.StatusConflict, ErrCodeInsufficientStock},
	{services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{services.ErrOrderAlreadyPaid, http.StatusConflict, ErrCodeOrderAlreadyPaid},
	{services.ErrProductHasOrders, http.StatusConflict, ErrCodeProductHasOrders},
	{services.ErrShopExists, http.StatusConflict, ErrCodeConflict},
	{services.ErrProofDecided, http.StatusConflict, ErrCodeConflict},

	// uploads
	{storage.ErrFileTooLarge, http.StatusBadRequest, ErrCodeFileTooLarge},
	{storage.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia},
	{storage.ErrEmptyFile, http.StatusBadRequest, ErrCodeBadRequest},
	{storage.ErrDisabled, http.StatusServiceUnavailable, ErrCodeFeatureUnavailable},

	// validation
	{services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrSelfConversation, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrReservedPrefix, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidQuantity, http.StatusBadRequest, ErrCodeBadRequest},
	{weather.ErrInvalidCoordinates, http.StatusBadRequest, ErrCodeBadRequest},
	{weather.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{cropdoctor.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},

	// third parties
	{weather.ErrDisabled, http.StatusServiceUnavailable, ErrCodeFeatureUnavailable},
	{cropdoctor.ErrDisabled, http.StatusServiceUnavailable, ErrCodeFeatureUnavailable},
	{weather.ErrUpstream, http.StatusBadGateway, ErrCodeUpstreamFailed},
	{cropdoctor.ErrUpstream, http.StatusBadGateway, ErrCodeUpstreamFailed},
}

// classify returns the status and code for err. Unknown errors are 500.
func classify(err error) (int, string) {
	for _, r := range errorRules {
		if errors.Is(err, r.err) {
			return r.status, r.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failErr writes the envelope for err. Client errors carry the error text;
// internal errors are logged by fail() and answered with a generic message.
func failErr(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && code == ErrCodeInternal {
		_ = c.Error(err)
		fail(c, status, code, "internal error")
		return
	}
	fail(c, status, code, err.Error())
}
