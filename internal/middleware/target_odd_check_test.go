package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/models"
	"github.com/betslipai/backend/internal/services"
)

// injectAccount simulates what BearerAuth does upstream.
func injectAccount(acc *models.Account, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
	})
}

func newValidator(t *testing.T) *services.Validator {
	t.Helper()
	v, err := services.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestTargetOddCheck_Accepts(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	var gotOdd float64
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOdd, _ = TargetOddFromCtx(r.Context())
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	})

	body := `{"targetOdd":5.5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/betslips/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	injectAccount(acc, TargetOddCheck(newValidator(t))(next)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotOdd != 5.5 {
		t.Errorf("target odd: got %v", gotOdd)
	}
	if gotBody != body {
		t.Errorf("body not restored: %q", gotBody)
	}
}

func TestTargetOddCheck_Rejects(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"targetOdd":`},
		{"missing", `{}`},
		{"string", `{"targetOdd":"5"}`},
		{"one", `{"targetOdd":1}`},
		{"below one", `{"targetOdd":0.5}`},
		{"negative", `{"targetOdd":-3}`},
		{"too large", `{"targetOdd":1000.5}`},
		{"not an object", `[5]`},
	}
	v := newValidator(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			injectAccount(acc, TargetOddCheck(v)(next)).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if called {
				t.Error("next handler must not run")
			}
			if body := decodeFailure(t, rec); body.Kind != services.KindInvalidInput {
				t.Errorf("kind: got %q", body.Kind)
			}
		})
	}
}

func TestTargetOddCheck_RequiresAccount(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"targetOdd":5}`))
	rec := httptest.NewRecorder()
	TargetOddCheck(newValidator(t))(okHandler).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTargetOddCheck_BodyTooLarge(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	big := `{"targetOdd":5,"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	rec := httptest.NewRecorder()
	injectAccount(acc, TargetOddCheck(newValidator(t))(okHandler)).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
