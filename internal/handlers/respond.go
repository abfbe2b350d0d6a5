package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/payments"
	"github.com/finplay/finplay-gobackend/internal/services"
)

// writeServiceError maps service sentinels to HTTP responses. Gateway
// rejections pass the gateway's own text through; anything unmapped becomes a
// generic 500 so internals stay private.
func writeServiceError(w http.ResponseWriter, err error) {
	var gatewayErr *payments.GatewayError
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrDuplicate):
		httpjson.Error(w, http.StatusBadRequest, "Already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		httpjson.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrSignatureMismatch):
		httpjson.Error(w, http.StatusBadRequest, "Invalid signature")
	case errors.Is(err, services.ErrRefreshRevoked):
		httpjson.Error(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, services.ErrNotRefundable):
		httpjson.Error(w, http.StatusBadRequest, "Only completed transactions can be refunded")
	case errors.Is(err, payments.ErrTimeout):
		httpjson.Error(w, http.StatusGatewayTimeout, "Payment gateway timed out")
	case errors.As(err, &gatewayErr):
		httpjson.Error(w, http.StatusBadRequest, gatewayErr.Error())
	default:
		logrus.WithError(err).Error("request failed")
		httpjson.Error(w, http.StatusInternalServerError, "Something went wrong")
	}
}
