package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"vesting-project/engine"
	"vesting-project/logger"
	"vesting-project/models"
	"vesting-project/registry"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CallerHeader carries the identity of the account issuing an administrative call
const CallerHeader = "X-Caller"

// Handler contains the HTTP handlers for the vesting API endpoints
type Handler struct {
	Registry *registry.Registry
	Engine   *engine.Engine
}

// NewHandler creates and returns a new Handler instance
func NewHandler(reg *registry.Registry, eng *engine.Engine) *Handler {
	return &Handler{Registry: reg, Engine: eng}
}

type addInvestorRequest struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"` // base units, decimal string
}

// AddInvestor handles POST requests adding a private round investor
func (h *Handler) AddInvestor(w http.ResponseWriter, r *http.Request) {
	var req addInvestorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Logger.Error("Failed to decode investor", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeError(w, models.ErrInvalidAmount)
		return
	}

	record, err := h.Registry.AddPrivateInvestor(r.Header.Get(CallerHeader), req.Beneficiary, amount)
	if err != nil {
		logger.Logger.Error("Failed to add investor", zap.String("beneficiary", req.Beneficiary), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Investor added successfully",
		"investor": record,
	})
}

// ListInvestors handles GET requests listing private investors ordered by address
func (h *Handler) ListInvestors(w http.ResponseWriter, r *http.Request) {
	views, err := h.Registry.Investors()
	if err != nil {
		logger.Logger.Error("Failed to list investors", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"investors": nonNil(views),
	})
}

// ListRounds handles GET requests listing fixed rounds in index order
func (h *Handler) ListRounds(w http.ResponseWriter, r *http.Request) {
	views, err := h.Registry.Rounds()
	if err != nil {
		logger.Logger.Error("Failed to list rounds", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rounds": nonNil(views),
	})
}

// StartVesting handles POST requests firing the global start trigger
func (h *Handler) StartVesting(w http.ResponseWriter, r *http.Request) {
	vc, err := h.Registry.StartVesting(r.Header.Get(CallerHeader))
	if err != nil {
		logger.Logger.Error("Failed to start vesting", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Vesting started",
		"clock":   vc,
	})
}

// Status handles GET requests for the global vesting state
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.Registry.Status()
	if err != nil {
		logger.Logger.Error("Failed to read status", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetSchedule handles GET requests for one schedule by round index or investor address
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	key, err := models.ParseScheduleKey(mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.Registry.GetSchedule(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Release handles POST requests releasing the vested amount of one schedule
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	key, err := models.ParseScheduleKey(mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	release, err := h.Engine.Release(key)
	if err != nil {
		logger.Logger.Error("Failed to release", zap.String("key", key.String()), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Release processed",
		"release": release,
	})
}

// ReleaseAll handles POST requests releasing every started schedule
func (h *Handler) ReleaseAll(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.Engine.ReleaseAll()
	if err != nil {
		logger.Logger.Error("Failed to release all", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Releases processed",
		"outcomes": outcomes,
	})
}

// BalanceOf handles GET requests for a ledger balance
func (h *Handler) BalanceOf(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	balance, err := h.Engine.BalanceOf(address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": balance,
	})
}

// ListReleases handles GET requests for the release log
func (h *Handler) ListReleases(w http.ResponseWriter, r *http.Request) {
	events, err := h.Registry.Releases()
	if err != nil {
		logger.Logger.Error("Failed to list releases", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"releases": nonNil(events),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrZeroAmount),
		errors.Is(err, models.ErrInvalidAddress),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCapExceeded),
		errors.Is(err, models.ErrAlreadyStarted),
		errors.Is(err, models.ErrScheduleNotStarted):
		return http.StatusConflict
	case errors.Is(err, models.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotBootstrapped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
