package services

import (
	"errors"

	"github.com/betslipai/backend/internal/models"
)

// UnlimitedCredits is reported as the balance of exempt accounts.
const UnlimitedCredits = -1

// ResultMetadata describes how a result was produced.
type ResultMetadata struct {
	RequestID          string `json:"requestId"`
	FixturesConsidered int    `json:"fixturesConsidered"`
	CandidatesParsed   int    `json:"candidatesParsed"`
	Model              string `json:"model,omitempty"`
	Refunded           bool   `json:"refunded,omitempty"`
}

// GenerateResponse is the success body.
type GenerateResponse struct {
	Success  bool             `json:"success"`
	Betslips []models.Betslip `json:"betslips"`
	Credits  int              `json:"credits"`
	Cost     int              `json:"cost"`
	IsAdmin  bool             `json:"isAdmin"`
	Message  string           `json:"message,omitempty"`
	Metadata ResultMetadata   `json:"metadata"`
}

// FailureResponse is the error body. Betslips is always an empty list.
type FailureResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error"`
	Kind     Kind             `json:"kind"`
	Betslips []models.Betslip `json:"betslips"`
	Credits  *int             `json:"credits,omitempty"`
	Required *int             `json:"required,omitempty"`
	Refunded bool             `json:"refunded,omitempty"`
}

// FormatResult builds the success body. charge must be the settled charge of the request.
func FormatResult(betslips []models.Betslip, charge *Charge, meta ResultMetadata) GenerateResponse {
	if betslips == nil {
		betslips = []models.Betslip{}
	}
	resp := GenerateResponse{
		Success:  true,
		Betslips: betslips,
		Metadata: meta,
	}
	if charge != nil {
		resp.Cost = charge.Cost
		resp.Credits = charge.BalanceAfter
		if charge.Exempt {
			resp.IsAdmin = true
			resp.Credits = UnlimitedCredits
		}
	}
	if len(betslips) == 0 {
		resp.Message = "no betslips produced"
	}
	return resp
}

// FormatFailure maps err to a status and a body that never includes provider text.
// charge may be nil when the request failed before authorization.
func FormatFailure(err error, charge *Charge, refunded bool) (int, FailureResponse) {
	kind := KindOf(err)
	body := FailureResponse{
		Success:  false,
		Error:    userMessage(kind),
		Kind:     kind,
		Betslips: []models.Betslip{},
		Refunded: refunded,
	}

	var ice *InsufficientCreditsError
	switch {
	case errors.As(err, &ice):
		body.Credits = intPtr(ice.Balance)
		body.Required = intPtr(ice.Required)
	case charge != nil && !charge.Exempt:
		body.Credits = intPtr(charge.BalanceAfter)
	}
	return HTTPStatus(kind), body
}

func intPtr(n int) *int { return &n }
