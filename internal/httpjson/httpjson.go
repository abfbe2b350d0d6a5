package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the response shape every endpoint returns.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const maxBodyBytes = 1 << 20

// Write encodes the envelope with the given status code.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 with data.
func OK(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with a message and data.
func Created(w http.ResponseWriter, message string, data interface{}) {
	Write(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Message writes a 200 with only a message.
func Message(w http.ResponseWriter, message string) {
	Write(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// Error writes a failure envelope with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Success: false, Message: message})
}

// ValidationError writes a 400 with per-field messages.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	Write(w, http.StatusBadRequest, Envelope{Success: false, Message: "Validation failed", Errors: fields})
}

// Decode reads a JSON body into dst, capping the body size.
func Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
