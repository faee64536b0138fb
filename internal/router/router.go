package router

import (
	"net/http"

	"github.com/betslipai/backend/internal/handlers"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Deps are the pieces the API is assembled from.
type Deps struct {
	Auth      Middleware
	TargetOdd Middleware
	Betslips  *handlers.BetslipHandler
	Health    http.Handler
	Metrics   http.Handler
}

// New returns the API handler.
// Chain for generation: Auth -> TargetOdd -> Generate.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/betslips/generate", d.Auth(d.TargetOdd(http.HandlerFunc(d.Betslips.Generate))))
	mux.Handle("GET /v1/credits", d.Auth(http.HandlerFunc(d.Betslips.Credits)))
	mux.Handle("GET /v1/credits/ledger", d.Auth(http.HandlerFunc(d.Betslips.CreditLedger)))
	mux.HandleFunc("GET /v1/markets", handlers.ListMarkets)

	if d.Health != nil {
		mux.Handle("GET /healthz", d.Health)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	return mux
}
