package handlers

import (
	"errors"
	"net/http"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/middleware"
	"github.com/finplay/finplay-gobackend/internal/models"
	"github.com/finplay/finplay-gobackend/internal/services"
	"github.com/finplay/finplay-gobackend/internal/validate"
)

const refreshCookie = "refreshToken"

type AuthHandler struct {
	users  *services.UserService
	isProd bool
}

func NewAuthHandler(users *services.UserService, isProd bool) *AuthHandler {
	return &AuthHandler{users: users, isProd: isProd}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Mobile   string `json:"mobile" validate:"required,len=10,numeric"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type authPayload struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	user, access, refresh, err := h.users.Register(r.Context(), req.Name, req.Mobile, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			httpjson.Error(w, http.StatusBadRequest, "User with this mobile or email already exists")
			return
		}
		writeServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, refresh)
	httpjson.Created(w, "Registered successfully", authPayload{User: user, Token: access})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	user, access, refresh, err := h.users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, refresh)
	httpjson.OK(w, authPayload{User: user, Token: access})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := h.refreshTokenFrom(r)
	if refresh == "" {
		httpjson.Error(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	access, err := h.users.Refresh(r.Context(), refresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]string{"token": access})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	if refresh := h.refreshTokenFrom(r); refresh != "" {
		if err := h.users.Logout(r.Context(), user.ID, refresh); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	h.clearRefreshCookie(w)
	httpjson.Message(w, "Logged out successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	httpjson.OK(w, map[string]interface{}{"user": user})
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to
// the request body for clients that cannot send cookies.
func (h *AuthHandler) refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := httpjson.Decode(r, &body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/auth",
		MaxAge:   int(h.users.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.isProd,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isProd,
		SameSite: http.SameSiteStrictMode,
	})
}
