package handlers

import (
	"errors"
	"net/http"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/middleware"
	"github.com/finplay/finplay-gobackend/internal/services"
	"github.com/finplay/finplay-gobackend/internal/validate"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	httpjson.OK(w, map[string]interface{}{"user": user})
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=50"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req updateProfileRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}
	if req.Name == "" && req.Email == "" {
		httpjson.Error(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			httpjson.Error(w, http.StatusBadRequest, "Email already in use")
			return
		}
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]interface{}{"user": updated})
}

type updateCoinsRequest struct {
	Coins int `json:"coins" validate:"required"`
}

func (h *UserHandler) UpdateCoins(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req updateCoinsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	updated, err := h.users.UpdateCoins(r.Context(), user.ID, req.Coins)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]interface{}{"user": updated})
}

func (h *UserHandler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	updated, already, err := h.users.CompleteQuiz(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "Quiz completed"
	if already {
		message = "Quiz already completed"
	}
	httpjson.Write(w, http.StatusOK, httpjson.Envelope{
		Success: true,
		Message: message,
		Data:    map[string]interface{}{"user": updated},
	})
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req deleteAccountRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	if err := h.users.DeleteAccount(r.Context(), user.ID, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.Message(w, "Account deleted")
}
