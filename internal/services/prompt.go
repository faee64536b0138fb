package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/betslipai/backend/internal/models"
)

// Market lists, also served on GET /v1/markets.
var (
	AllowedMarkets = []string{
		"Over/Under 1.5 Goals",
		"Over/Under 2.5 Goals",
		"Over/Under 3.5 Goals",
		"Both Teams To Score (BTTS)",
		"Double Chance (1X, X2, 12)",
		"Asian Handicap",
	}
	ForbiddenMarkets = []string{
		"Exact score",
		"First goalscorer",
		"Cards",
		"Penalties",
	}
)

// MaxTargetOdd rejects targets no accumulator could sensibly reach.
const MaxTargetOdd = 1000.0

// PromptPolicy holds the instructions that do not depend on the request.
type PromptPolicy struct {
	CandidateCount   int
	MinLegs          int
	MaxLegs          int
	AllowedMarkets   []string
	ForbiddenMarkets []string
	MaxBytes         int
}

func DefaultPromptPolicy() PromptPolicy {
	return PromptPolicy{
		CandidateCount:   5,
		MinLegs:          2,
		MaxLegs:          4,
		AllowedMarkets:   AllowedMarkets,
		ForbiddenMarkets: ForbiddenMarkets,
		MaxBytes:         24 << 10,
	}
}

// ErrPromptTooLarge is an internal failure; the manifest cap should prevent it.
var ErrPromptTooLarge = fmt.Errorf("%w: prompt exceeds size limit", ErrInternal)

// ValidTargetOdd reports whether v can be used as a combined-odds target.
func ValidTargetOdd(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 1 && v <= MaxTargetOdd
}

// BuildPrompt renders the generation instructions. It is pure: the same
// inputs always produce the same text.
func BuildPrompt(targetOdd float64, manifest []models.ManifestEntry, p PromptPolicy) (string, error) {
	if !ValidTargetOdd(targetOdd) {
		return "", fmt.Errorf("%w: target odd %v", ErrInvalidInput, targetOdd)
	}
	if len(manifest) == 0 {
		return "", ErrNoFutureFixtures
	}
	fixturesJSON, err := json.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Build %d football accumulator betslips whose combined odd is as close as possible to %.2f.\n\n", p.CandidateCount, targetOdd)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Each betslip has between %d and %d legs.\n", p.MinLegs, p.MaxLegs)
	b.WriteString("- The combined odd of a betslip is the product of its leg odds.\n")
	b.WriteString("- Use only matches from the fixture list below, copying the \"match\" value exactly.\n")
	b.WriteString("- Never use the same match twice in one betslip.\n")
	fmt.Fprintf(&b, "- Allowed markets: %s.\n", strings.Join(p.AllowedMarkets, "; "))
	fmt.Fprintf(&b, "- Forbidden markets: %s.\n", strings.Join(p.ForbiddenMarkets, "; "))
	b.WriteString("- Give each leg a realistic decimal odd and a confidence percentage such as \"72%\".\n\n")

	b.WriteString("Fixtures (JSON):\n")
	b.Write(fixturesJSON)
	b.WriteString("\n\n")

	b.WriteString("Respond with JSON only, no prose and no code fences, in exactly this shape:\n")
	b.WriteString(`{"betslips":[{"combinedOdd":3.15,"legs":[{"match":"Home vs Away","market":"Over/Under 2.5 Goals - Over","odds":1.75,"confidence":"70%","date":"YYYY-MM-DD","time":"HH:MM"}]}]}`)
	b.WriteString("\n")

	out := b.String()
	if p.MaxBytes > 0 && len(out) > p.MaxBytes {
		return "", ErrPromptTooLarge
	}
	return out, nil
}
