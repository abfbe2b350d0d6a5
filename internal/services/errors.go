package services

import "errors"

// Sentinel errors handlers map to HTTP status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrRefreshRevoked     = errors.New("refresh token revoked")
	ErrNotRefundable      = errors.New("transaction not refundable")
)
