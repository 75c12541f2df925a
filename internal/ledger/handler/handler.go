package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardgen/internal/audit"
	"cardgen/internal/ledger"
	"cardgen/internal/platform/middleware"
	"cardgen/internal/transport/http/shared"
	dErrors "cardgen/pkg/domain-errors"
)

// Service defines the ledger operations the credits endpoints need.
type Service interface {
	Balance(ctx context.Context, accountID ledger.AccountID) (ledger.Credits, error)
	Credit(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error)
}

// Handler handles the credits endpoints.
type Handler struct {
	ledger  Service
	logger  *slog.Logger
	auditor audit.Publisher
}

// New creates a credits Handler.
func New(ledgerSvc Service, logger *slog.Logger, auditor audit.Publisher) *Handler {
	return &Handler{
		ledger:  ledgerSvc,
		logger:  logger,
		auditor: auditor,
	}
}

// Register registers the credits routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credits/balance", h.handleBalance)
	r.Post("/credits/add", h.handleAdd)
}

// BalanceResponse reports the current balance in decimal credits.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// AddRequest tops up the account. Amount is decimal credits, two fraction
// digits of precision.
type AddRequest struct {
	Amount float64 `json:"amount"`
}

// AddResponse reports the balance after the credit.
type AddResponse struct {
	Success    bool    `json:"success"`
	NewBalance float64 `json:"new_balance"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	balance, err := h.ledger.Balance(ctx, ledger.AccountID(accountID))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read balance",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, BalanceResponse{Balance: balance.Float64()})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	amount, err := toCredits(req.Amount)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	newBalance, err := h.ledger.Credit(ctx, ledger.AccountID(accountID), amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to add credits",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	if h.auditor != nil {
		h.auditor.Emit(ctx, audit.Event{
			Type:      audit.EventCreditsAdded,
			AccountID: accountID,
			Details:   audit.Details("amount", amount.String(), "new_balance", newBalance.String()),
		})
	}

	shared.WriteJSON(w, http.StatusOK, AddResponse{Success: true, NewBalance: newBalance.Float64()})
}

// maxTopUp bounds a single top-up to a sane amount.
const maxTopUp = 10_000.00

// toCredits converts a decimal credit amount into hundredths, rejecting
// non-positive, oversized, or sub-cent amounts.
func toCredits(amount float64) (ledger.Credits, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, dErrors.New(dErrors.CodeBadRequest, "amount must be a number")
	}
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	if amount > maxTopUp {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "amount exceeds the maximum top-up of %.2f", float64(maxTopUp))
	}
	cents := math.Round(amount * 100)
	if math.Abs(amount*100-cents) > 1e-6 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "amount precision is limited to two decimals")
	}
	return ledger.Credits(cents), nil
}
