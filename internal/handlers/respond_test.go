package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/payments"
	"github.com/finplay/finplay-gobackend/internal/services"
)

func serviceErrorResponse(t *testing.T, err error) (int, httpjson.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	writeServiceError(rec, err)

	var env httpjson.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestWriteServiceErrorGatewayTextPassedThrough(t *testing.T) {
	gwErr := &payments.GatewayError{Msg: "refund failed: The refund amount exceeds the amount available"}
	code, env := serviceErrorResponse(t, gwErr)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, gwErr.Msg, env.Message)
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound, "Not found"},
		{"duplicate", services.ErrDuplicate, http.StatusBadRequest, "Already exists"},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"signature mismatch", services.ErrSignatureMismatch, http.StatusBadRequest, "Invalid signature"},
		{"gateway timeout", payments.ErrTimeout, http.StatusGatewayTimeout, "Payment gateway timed out"},
		{"unmapped stays private", errors.New("connection reset"), http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := serviceErrorResponse(t, tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}
