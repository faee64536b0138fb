package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/auth"
	"github.com/betslipai/backend/internal/models"
	"github.com/betslipai/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTokens struct {
	id  uuid.UUID
	err error
}

func (s *stubTokens) ValidateToken(context.Context, string) (uuid.UUID, string, error) {
	return s.id, "requester", s.err
}

type stubAccounts struct {
	accounts map[uuid.UUID]*models.Account
}

func (s *stubAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return acc, nil
}

// okHandler writes 200 and the account email (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromCtx(r.Context())
	if acc != nil {
		w.Write([]byte(acc.Email))
	}
})

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) services.FailureResponse {
	t.Helper()
	var body services.FailureResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failure body: %v", err)
	}
	return body
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBearerAuth_ValidToken(t *testing.T) {
	acc := &models.Account{ID: uuid.New(), Email: "punter@example.com", CreditBalance: 300}
	tokens := auth.NewService("test-secret")
	tok, err := tokens.IssueToken(acc.ID, "requester")
	if err != nil {
		t.Fatal(err)
	}
	accounts := &stubAccounts{accounts: map[uuid.UUID]*models.Account{acc.ID: acc}}

	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	BearerAuth(tokens, accounts)(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "punter@example.com" {
		t.Errorf("account not in context, body %q", rec.Body.String())
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	known := uuid.New()
	accounts := &stubAccounts{accounts: map[uuid.UUID]*models.Account{known: {ID: known}}}

	tests := []struct {
		name   string
		header string
		tokens *stubTokens
	}{
		{"missing header", "", &stubTokens{id: known}},
		{"wrong scheme", "Basic abc", &stubTokens{id: known}},
		{"bad token", "Bearer junk", &stubTokens{err: auth.ErrInvalidToken}},
		{"unknown account", "Bearer tok", &stubTokens{id: uuid.New()}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/betslips/generate", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			BearerAuth(tc.tokens, accounts)(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if called {
				t.Error("next handler must not run")
			}
			body := decodeFailure(t, rec)
			if body.Success || body.Kind != services.KindAuthenticationRequired {
				t.Errorf("unexpected body %+v", body)
			}
			if body.Betslips == nil || len(body.Betslips) != 0 {
				t.Errorf("betslips must be an empty list, got %v", body.Betslips)
			}
		})
	}
}

func TestExtractBearer_CaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bEaReR   abc ")
	if got := extractBearer(req); got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}
