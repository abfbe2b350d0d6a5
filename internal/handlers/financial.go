package handlers

import (
	"net/http"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/middleware"
	"github.com/finplay/finplay-gobackend/internal/services"
)

type FinancialHandler struct {
	financial *services.FinancialService
}

func NewFinancialHandler(financial *services.FinancialService) *FinancialHandler {
	return &FinancialHandler{financial: financial}
}

func (h *FinancialHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	stats, err := h.financial.GetDashboardStats(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, stats)
}

func (h *FinancialHandler) MoneyManagement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	summary, err := h.financial.GetMoneyManagement(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, summary)
}

// PlatformStats is public; optional auth only personalizes nothing today but
// keeps the route shape uniform.
func (h *FinancialHandler) PlatformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.financial.GetPlatformStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, stats)
}
