package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/llm"
	"github.com/betslipai/backend/internal/models"
)

func TestKindOfAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{ErrAuthenticationRequired, KindAuthenticationRequired, http.StatusUnauthorized},
		{fmt.Errorf("%w: bad", ErrInvalidInput), KindInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("%w: schema", ErrValidation), KindInvalidInput, http.StatusBadRequest},
		{&InsufficientCreditsError{Balance: 50, Required: 100}, KindInsufficientCredits, http.StatusForbidden},
		{ErrNoFixturesAvailable, KindNoFixturesAvailable, http.StatusNotFound},
		{ErrNoFutureFixtures, KindNoFutureFixtures, http.StatusNotFound},
		{fmt.Errorf("%w: status 503", llm.ErrUnavailable), KindGenerationServiceUnavailable, http.StatusInternalServerError},
		{fmt.Errorf("%w: eof", ErrInvalidGenerationOutput), KindInvalidGenerationOutput, http.StatusInternalServerError},
		{ErrUnexpectedOutputStructure, KindUnexpectedOutputStructure, http.StatusInternalServerError},
		{errors.New("boom"), KindInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		k := KindOf(tc.err)
		if k != tc.kind {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, k, tc.kind)
		}
		if s := HTTPStatus(k); s != tc.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", k, s, tc.status)
		}
	}
}

func TestFormatResult(t *testing.T) {
	charge := &Charge{RequestID: uuid.New(), Cost: 100, BalanceAfter: 200}
	slips := []models.Betslip{{CombinedOdd: 5.4}}

	resp := FormatResult(slips, charge, ResultMetadata{RequestID: charge.RequestID.String()})
	if !resp.Success || resp.Credits != 200 || resp.Cost != 100 || resp.IsAdmin {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Message != "" {
		t.Errorf("no message expected for a non-empty result, got %q", resp.Message)
	}

	exempt := &Charge{Cost: 100, Exempt: true, BalanceAfter: 7}
	resp = FormatResult(nil, exempt, ResultMetadata{})
	if !resp.IsAdmin || resp.Credits != UnlimitedCredits {
		t.Errorf("exempt account should report unlimited credits, got %+v", resp)
	}
	if resp.Betslips == nil || len(resp.Betslips) != 0 || resp.Message == "" {
		t.Errorf("empty result should carry [] and a message, got %+v", resp)
	}
}

func TestFormatFailure(t *testing.T) {
	status, body := FormatFailure(&InsufficientCreditsError{Balance: 50, Required: 100}, nil, false)
	if status != http.StatusForbidden || body.Success {
		t.Fatalf("unexpected %d %+v", status, body)
	}
	if body.Credits == nil || *body.Credits != 50 || body.Required == nil || *body.Required != 100 {
		t.Errorf("denial should report balance and required, got %+v", body)
	}
	if body.Betslips == nil || len(body.Betslips) != 0 {
		t.Error("failure body should carry an empty betslip list")
	}

	charge := &Charge{Cost: 100, BalanceAfter: 150}
	providerErr := fmt.Errorf("%w: upstream said: secret-key-invalid", llm.ErrUnavailable)
	status, body = FormatFailure(providerErr, charge, true)
	if status != http.StatusInternalServerError || body.Kind != KindGenerationServiceUnavailable {
		t.Fatalf("unexpected %d %+v", status, body)
	}
	if body.Error != userMessage(KindGenerationServiceUnavailable) {
		t.Errorf("provider text must not leak, got %q", body.Error)
	}
	if body.Credits == nil || *body.Credits != 150 || !body.Refunded {
		t.Errorf("refunded failure should report restored balance, got %+v", body)
	}
}
