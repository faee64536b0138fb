package services

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betslipai/backend/internal/models"
)

// DefaultConfidence fills legs that arrive without a confidence.
const DefaultConfidence = "75%"

// Reconciler turns candidates into betslips whose combined odd is the
// rounded product of their legs.
type Reconciler struct {
	DefaultConfidence string
	// StrictManifest drops legs whose match is not in the manifest, and
	// betslips left with fewer than MinLegs or more than MaxLegs legs.
	// MaxLegs of zero means no upper bound.
	StrictManifest bool
	MinLegs        int
	MaxLegs        int
}

func DefaultReconciler() Reconciler {
	return Reconciler{DefaultConfidence: DefaultConfidence, StrictManifest: true, MinLegs: 2, MaxLegs: 4}
}

// Reconcile never fails. Legs with unparseable odds are kept but do not
// contribute to the product.
func (r Reconciler) Reconcile(candidates []CandidateBetslip, manifest []models.ManifestEntry) []models.Betslip {
	byMatch := make(map[string]models.ManifestEntry, len(manifest))
	for _, e := range manifest {
		byMatch[e.Match] = e
	}
	conf := r.DefaultConfidence
	if conf == "" {
		conf = DefaultConfidence
	}

	out := make([]models.Betslip, 0, len(candidates))
	for _, c := range candidates {
		product := decimal.NewFromInt(1)
		legs := make([]models.Selection, 0, len(c.Legs))
		for _, l := range c.Legs {
			entry, known := byMatch[l.Match]
			if r.StrictManifest && !known {
				continue
			}
			sel := models.Selection{
				Match:      l.Match,
				Market:     l.Market,
				Odds:       l.Odds,
				Confidence: formatConfidence(l.Confidence, conf),
				Date:       l.Date,
				Time:       l.Time,
			}
			if known {
				if sel.Date == "" {
					sel.Date = entry.Date
				}
				if sel.Time == "" {
					sel.Time = entry.Time
				}
			}
			if odd, ok := parseOdd(l.Odds); ok {
				product = product.Mul(odd)
			}
			legs = append(legs, sel)
		}
		if r.StrictManifest && (len(legs) < r.MinLegs || (r.MaxLegs > 0 && len(legs) > r.MaxLegs)) {
			continue
		}
		out = append(out, models.Betslip{
			CombinedOdd: product.Round(2).InexactFloat64(),
			Selections:  legs,
		})
	}
	return out
}

// parseOdd accepts numbers and numeric strings. Non-positive values are unparseable.
func parseOdd(v any) (decimal.Decimal, bool) {
	var d decimal.Decimal
	var err error
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		return decimal.Decimal{}, false
	}
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// formatConfidence keeps strings as given and renders numbers as percentages.
// Fractions below 1 are read as shares (0.8 -> "80%"); 1 and above are
// already percentages (1 -> "1%", 80 -> "80%").
func formatConfidence(v any, fallback string) string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return percent(d)
		}
	case float64:
		return percent(decimal.NewFromFloat(x))
	}
	return fallback
}

func percent(d decimal.Decimal) string {
	if d.LessThan(decimal.NewFromInt(1)) && d.IsPositive() {
		d = d.Mul(decimal.NewFromInt(100))
	}
	return d.Round(0).String() + "%"
}
