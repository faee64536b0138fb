package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/middleware"
	"github.com/betslipai/backend/internal/models"
	"github.com/betslipai/backend/internal/services"
)

// Pipeline runs one generation request.
type Pipeline interface {
	Generate(ctx context.Context, req services.GenerationRequest) (*services.Result, error)
}

// BalanceReader returns the stored credit balance of an account.
type BalanceReader interface {
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
}

// LedgerReader lists credit ledger entries.
type LedgerReader interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditLedger, error)
	ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*models.CreditLedger, error)
}

// BetslipHandler serves /v1/betslips and /v1/credits.
type BetslipHandler struct {
	Pipeline Pipeline
	Balances BalanceReader
	Ledger   LedgerReader
	Model    string
	Cost     int
	Logger   *slog.Logger
}

func (h *BetslipHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// --- POST /v1/betslips/generate ---

// Generate expects BearerAuth and TargetOddCheck upstream.
func (h *BetslipHandler) Generate(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	odd, ok := middleware.TargetOddFromCtx(r.Context())
	if acc == nil || !ok {
		err := services.ErrInvalidInput
		if acc == nil {
			err = services.ErrAuthenticationRequired
		}
		status, body := services.FormatFailure(err, nil, false)
		writeJSON(w, status, body)
		return
	}

	requestID := requestIDFrom(r)
	w.Header().Set("X-Request-ID", requestID.String())

	res, err := h.Pipeline.Generate(r.Context(), services.GenerationRequest{
		RequestID: requestID,
		Account:   acc,
		TargetOdd: odd,
	})
	if err != nil {
		status, body := services.FormatFailure(err, res.Charge, res.Refunded)
		if status >= http.StatusInternalServerError {
			h.logger().Error("generate betslips", "request_id", requestID, "state", res.State, "error", err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, services.FormatResult(res.Betslips, res.Charge, res.Metadata(h.Model)))
}

// requestIDFrom honours a caller-supplied X-Request-ID when it is a UUID.
func requestIDFrom(r *http.Request) uuid.UUID {
	if id, err := uuid.Parse(r.Header.Get("X-Request-ID")); err == nil && id != uuid.Nil {
		return id
	}
	return uuid.New()
}

// --- GET /v1/credits ---

type creditsResponse struct {
	Credits int  `json:"credits"`
	Cost    int  `json:"cost"`
	IsAdmin bool `json:"isAdmin"`
}

func (h *BetslipHandler) Credits(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		status, body := services.FormatFailure(services.ErrAuthenticationRequired, nil, false)
		writeJSON(w, status, body)
		return
	}
	if acc.IsAdmin {
		writeJSON(w, http.StatusOK, creditsResponse{Credits: services.UnlimitedCredits, Cost: h.Cost, IsAdmin: true})
		return
	}
	bal, err := h.Balances.Balance(r.Context(), acc.ID)
	if err != nil {
		h.logger().Error("read balance", "account_id", acc.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, creditsResponse{Credits: bal, Cost: h.Cost})
}

// --- GET /v1/credits/ledger ---

// CreditLedger lists the caller's charges and refunds, optionally for a
// single request via ?requestId=.
func (h *BetslipHandler) CreditLedger(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		status, body := services.FormatFailure(services.ErrAuthenticationRequired, nil, false)
		writeJSON(w, status, body)
		return
	}

	var entries []*models.CreditLedger
	var err error
	if q := r.URL.Query().Get("requestId"); q != "" {
		requestID, perr := uuid.Parse(q)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "requestId must be a UUID"})
			return
		}
		entries, err = h.Ledger.ListByRequestID(r.Context(), requestID)
	} else {
		entries, err = h.Ledger.ListByAccountID(r.Context(), acc.ID)
	}
	if err != nil {
		h.logger().Error("list credit ledger failed", "account_id", acc.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]*models.CreditLedger, 0, len(entries))
	for _, e := range entries {
		if e.AccountID == acc.ID {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// --- GET /v1/markets ---

type marketsResponse struct {
	Allowed   []string `json:"allowed"`
	Forbidden []string `json:"forbidden"`
}

// ListMarkets returns the markets generated betslips may and may not use.
func ListMarkets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, marketsResponse{
		Allowed:   services.AllowedMarkets,
		Forbidden: services.ForbiddenMarkets,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
