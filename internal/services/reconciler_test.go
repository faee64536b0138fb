package services

import (
	"encoding/json"
	"testing"
)

func leg(match string, odds any) CandidateLeg {
	return CandidateLeg{Match: match, Market: "Over 2.5", Odds: odds}
}

func TestReconcile_OverwritesCombinedOdd(t *testing.T) {
	manifest := sampleManifest()
	manifest = append(manifest, sampleManifest()[0])
	manifest[2].Match = "Milan vs Inter"

	cands := []CandidateBetslip{{
		ProposedOdd: json.Number("6.0"),
		Legs: []CandidateLeg{
			leg("Arsenal vs Chelsea", json.Number("1.5")),
			leg("Leeds vs Hull", json.Number("1.8")),
			leg("Milan vs Inter", json.Number("2.0")),
		},
	}}

	got := DefaultReconciler().Reconcile(cands, manifest)
	if len(got) != 1 {
		t.Fatalf("expected 1 betslip, got %d", len(got))
	}
	if got[0].CombinedOdd != 5.40 {
		t.Errorf("combinedOdd: got %v, want 5.40", got[0].CombinedOdd)
	}
	if got[0].Selections[2].Odds != json.Number("2.0") {
		t.Errorf("leg odds should be echoed unchanged, got %#v", got[0].Selections[2].Odds)
	}
}

func TestReconcile_StringAndUnparseableOdds(t *testing.T) {
	cands := []CandidateBetslip{{Legs: []CandidateLeg{
		leg("Arsenal vs Chelsea", "1.25"),
		leg("Leeds vs Hull", 2.0),
		{Match: "Arsenal vs Chelsea", Market: "BTTS", Odds: "evens"},
		{Match: "Leeds vs Hull", Market: "BTTS", Odds: nil},
		{Match: "Leeds vs Hull", Market: "DC", Odds: json.Number("-1.3")},
	}}}

	got := DefaultReconciler().Reconcile(cands, sampleManifest())
	if len(got) != 1 {
		t.Fatalf("expected 1 betslip, got %d", len(got))
	}
	if got[0].CombinedOdd != 2.5 {
		t.Errorf("combinedOdd: got %v, want 2.5", got[0].CombinedOdd)
	}
	if len(got[0].Selections) != 5 {
		t.Errorf("unparseable legs are kept, got %d legs", len(got[0].Selections))
	}
}

func TestReconcile_Rounding(t *testing.T) {
	cands := []CandidateBetslip{{Legs: []CandidateLeg{
		leg("Arsenal vs Chelsea", json.Number("1.333")),
		leg("Leeds vs Hull", json.Number("1.777")),
	}}}
	got := DefaultReconciler().Reconcile(cands, sampleManifest())
	if got[0].CombinedOdd != 2.37 {
		t.Errorf("combinedOdd: got %v, want 2.37", got[0].CombinedOdd)
	}
}

func TestReconcile_DefaultsAndBackfill(t *testing.T) {
	cands := []CandidateBetslip{{Legs: []CandidateLeg{
		{Match: "Arsenal vs Chelsea", Market: "BTTS", Odds: 1.5},
		{Match: "Leeds vs Hull", Market: "Over 1.5", Odds: 1.2, Confidence: json.Number("0.8"), Date: "2026-12-01", Time: "20:00"},
		{Match: "Leeds vs Hull", Market: "DC 1X", Odds: 1.1, Confidence: json.Number("65")},
	}}}

	got := DefaultReconciler().Reconcile(cands, sampleManifest())
	legs := got[0].Selections
	if legs[0].Confidence != DefaultConfidence {
		t.Errorf("missing confidence should default to %q, got %q", DefaultConfidence, legs[0].Confidence)
	}
	if legs[0].Date != "2026-10-18" || legs[0].Time != "16:30" {
		t.Errorf("date/time should be back-filled from manifest, got %s %s", legs[0].Date, legs[0].Time)
	}
	if legs[1].Date != "2026-12-01" || legs[1].Time != "20:00" {
		t.Errorf("provided date/time should be kept, got %s %s", legs[1].Date, legs[1].Time)
	}
	if legs[1].Confidence != "80%" || legs[2].Confidence != "65%" {
		t.Errorf("numeric confidence should render as percent, got %q and %q", legs[1].Confidence, legs[2].Confidence)
	}
}

func TestReconcile_StrictManifest(t *testing.T) {
	cands := []CandidateBetslip{
		{Legs: []CandidateLeg{
			leg("Arsenal vs Chelsea", 1.5),
			leg("Leeds vs Hull", 1.5),
			leg("Invented vs Club", 3.0),
		}},
		{Legs: []CandidateLeg{
			leg("Arsenal vs Chelsea", 1.5),
			leg("Invented vs Club", 3.0),
		}},
	}

	strict := DefaultReconciler().Reconcile(cands, sampleManifest())
	if len(strict) != 1 {
		t.Fatalf("strict: expected 1 betslip, got %d", len(strict))
	}
	if len(strict[0].Selections) != 2 || strict[0].CombinedOdd != 2.25 {
		t.Errorf("strict: unknown leg should be dropped before the product, got %d legs at %v",
			len(strict[0].Selections), strict[0].CombinedOdd)
	}

	lenient := Reconciler{StrictManifest: false}.Reconcile(cands, sampleManifest())
	if len(lenient) != 2 {
		t.Fatalf("lenient: expected 2 betslips, got %d", len(lenient))
	}
	unknown := lenient[0].Selections[2]
	if unknown.Date != "" || unknown.Time != "" {
		t.Errorf("lenient: unmatched leg should have no date/time, got %s %s", unknown.Date, unknown.Time)
	}
	if unknown.Confidence != DefaultConfidence {
		t.Errorf("lenient: confidence default should apply, got %q", unknown.Confidence)
	}
}

func TestReconcile_MaxLegs(t *testing.T) {
	six := make([]CandidateLeg, 0, 6)
	for i := 0; i < 3; i++ {
		six = append(six, leg("Arsenal vs Chelsea", 1.2), leg("Leeds vs Hull", 1.3))
	}
	four := six[:4]
	cands := []CandidateBetslip{{Legs: six}, {Legs: four}}

	got := DefaultReconciler().Reconcile(cands, sampleManifest())
	if len(got) != 1 {
		t.Fatalf("expected the 6-leg betslip to be dropped, got %d betslips", len(got))
	}
	if len(got[0].Selections) != 4 {
		t.Errorf("kept betslip: got %d legs, want 4", len(got[0].Selections))
	}

	unbounded := Reconciler{StrictManifest: true, MinLegs: 2}.Reconcile(cands, sampleManifest())
	if len(unbounded) != 2 {
		t.Errorf("MaxLegs of zero is unbounded, got %d betslips", len(unbounded))
	}
}

func TestFormatConfidence(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{json.Number("0.8"), "80%"},
		{json.Number("1"), "1%"},
		{json.Number("1.0"), "1%"},
		{json.Number("65"), "65%"},
		{0.25, "25%"},
		{"high", "high"},
		{json.Number("0"), "0%"},
		{nil, DefaultConfidence},
	}
	for _, tc := range cases {
		if got := formatConfidence(tc.in, DefaultConfidence); got != tc.want {
			t.Errorf("formatConfidence(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReconcile_EmptyLegs(t *testing.T) {
	got := Reconciler{}.Reconcile([]CandidateBetslip{{}}, nil)
	if len(got) != 1 || got[0].CombinedOdd != 1 {
		t.Fatalf("betslip without legs has product 1, got %+v", got)
	}
}
