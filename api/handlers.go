package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payments-engine/engine"
)

// Handler holds the admin surface's single dependency.
type Handler struct {
	Engine *engine.Engine
}

func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{Engine: eng}
}

// accountDTO mirrors the CSV snapshot row: decimals rendered with
// exactly four fractional digits, total derived.
type accountDTO struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func toDTO(acct engine.Account) accountDTO {
	return accountDTO{
		Client:    uint16(acct.Client),
		Available: acct.Available.StringFixed(4),
		Held:      acct.Held.StringFixed(4),
		Total:     acct.Total().StringFixed(4),
		Locked:    acct.Locked,
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	accounts := h.Engine.Snapshot()
	dtos := make([]accountDTO, 0, len(accounts))
	for _, acct := range accounts {
		dtos = append(dtos, toDTO(acct))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 16)
	if err != nil {
		respondError(w, http.StatusBadRequest, "client id must be a 16-bit unsigned integer")
		return
	}
	acct, ok := h.Engine.Account(engine.ClientID(id))
	if !ok {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	respondJSON(w, http.StatusOK, toDTO(acct))
}

func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.Engine.Stats())
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
