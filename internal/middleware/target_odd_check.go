package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/betslipai/backend/internal/services"
)

const ctxTargetOddKey contextKey = "target_odd"

// maxBodyBytes bounds the generate request body.
const maxBodyBytes = 64 << 10

// SchemaValidator checks a body against a named schema.
type SchemaValidator interface {
	Validate(name string, body []byte) error
}

type generateRequest struct {
	TargetOdd float64 `json:"targetOdd"`
}

// TargetOddFromCtx returns the target odd parsed by TargetOddCheck.
func TargetOddFromCtx(ctx context.Context) (float64, bool) {
	v, ok := ctx.Value(ctxTargetOddKey).(float64)
	return v, ok
}

// WithTargetOdd returns a context carrying the parsed target odd.
func WithTargetOdd(ctx context.Context, v float64) context.Context {
	return context.WithValue(ctx, ctxTargetOddKey, v)
}

// TargetOddCheck rejects bodies without a usable targetOdd before any credit
// is touched. It runs after BearerAuth and restores r.Body for the handler.
func TargetOddCheck(v SchemaValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccountFromCtx(r.Context()) == nil {
				writeFailure(w, services.ErrAuthenticationRequired)
				return
			}

			bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				writeFailure(w, fmt.Errorf("%w: read body: %v", services.ErrInvalidInput, err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if err := v.Validate(services.SchemaGenerateRequest, bodyBytes); err != nil {
				writeFailure(w, err)
				return
			}
			var req generateRequest
			if err := json.Unmarshal(bodyBytes, &req); err != nil {
				writeFailure(w, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
				return
			}
			if !services.ValidTargetOdd(req.TargetOdd) {
				writeFailure(w, fmt.Errorf("%w: target odd %v", services.ErrInvalidInput, req.TargetOdd))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTargetOdd(r.Context(), req.TargetOdd)))
		})
	}
}
