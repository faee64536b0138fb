package models

// Selection is one leg of a betslip. Odds holds whatever the generation
// service proposed (number or string) and is echoed back untouched.
type Selection struct {
	Match      string `json:"match"`
	Market     string `json:"market"`
	Odds       any    `json:"odds"`
	Confidence string `json:"confidence"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
}

// Betslip is a reconciled accumulator. CombinedOdd is always the rounded
// product of the parseable leg odds.
type Betslip struct {
	CombinedOdd float64     `json:"combinedOdd"`
	Selections  []Selection `json:"legs"`
}
