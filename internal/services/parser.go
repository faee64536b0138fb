package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxAcceptedBetslips caps how many candidates survive parsing.
const MaxAcceptedBetslips = 3

// CandidateLeg is a leg as proposed by the generation service, before reconciliation.
type CandidateLeg struct {
	Match      string
	Market     string
	Odds       any
	Confidence any
	Date       string
	Time       string
}

// CandidateBetslip is an unvalidated betslip from the generation output.
type CandidateBetslip struct {
	ProposedOdd any
	Legs        []CandidateLeg
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// StripCodeFences returns the body of the first fenced block, or the trimmed
// input when there is none.
func StripCodeFences(raw string) string {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`"))
}

var betslipsObject = regexp.MustCompile(`\{\s*"betslips"\s*:`)

// jsonStarts lists offsets a JSON value may start at: a "betslips" object
// first, then every { or [ in order.
func jsonStarts(s string) []int {
	var out []int
	if loc := betslipsObject.FindStringIndex(s); loc != nil {
		out = append(out, loc[0])
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			out = append(out, i)
		}
	}
	return out
}

// RemoveTrailingCommas deletes commas that directly precede ] or } outside
// string literals.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// decodeFirst decodes the first JSON value of s and reports how many bytes
// it used. Anything after the value is ignored. Numbers stay json.Number so
// odds echo back exactly as proposed.
func decodeFirst(s string) (any, int, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidGenerationOutput, err)
	}
	return tree, int(dec.InputOffset()), nil
}

// locateBetslips finds the betslip list: the "betslips" member of an object,
// or a bare top-level array.
func locateBetslips(tree any) ([]any, error) {
	switch v := tree.(type) {
	case []any:
		return v, nil
	case map[string]any:
		list, ok := v["betslips"].([]any)
		if !ok {
			return nil, ErrUnexpectedOutputStructure
		}
		return list, nil
	default:
		return nil, ErrUnexpectedOutputStructure
	}
}

// ParseCandidates runs the sanitize and parse steps over raw generation
// output and returns at most max candidates. Prose around the JSON is
// skipped: each possible start is tried until one decodes to a betslip list.
// No numeric validation happens here.
func ParseCandidates(raw string, max int) ([]CandidateBetslip, error) {
	if max <= 0 {
		max = MaxAcceptedBetslips
	}
	text := RemoveTrailingCommas(StripCodeFences(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidGenerationOutput)
	}

	starts := jsonStarts(text)
	if len(starts) == 0 {
		if _, _, err := decodeFirst(text); err != nil {
			return nil, err
		}
		return nil, ErrUnexpectedOutputStructure
	}

	var decodeErr, shapeErr error
	lo, hi := -1, -1
	for _, start := range starts {
		if start > lo && start < hi {
			continue
		}
		tree, n, err := decodeFirst(text[start:])
		if err == nil {
			lo, hi = start, start+n
			items, err := locateBetslips(tree)
			if err == nil {
				return collectCandidates(items, max), nil
			}
			if shapeErr == nil {
				shapeErr = err
			}
			continue
		}
		if decodeErr == nil {
			decodeErr = err
		}
	}
	// A value that decoded but had no betslips says more than prose that did not decode.
	if shapeErr != nil {
		return nil, shapeErr
	}
	return nil, decodeErr
}

func collectCandidates(items []any, max int) []CandidateBetslip {
	out := make([]CandidateBetslip, 0, min(len(items), max))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, candidateFromObject(obj))
		if len(out) == max {
			break
		}
	}
	return out
}

func candidateFromObject(obj map[string]any) CandidateBetslip {
	c := CandidateBetslip{ProposedOdd: obj["combinedOdd"]}
	legs, _ := obj["legs"].([]any)
	if legs == nil {
		legs, _ = obj["selections"].([]any)
	}
	for _, l := range legs {
		lo, ok := l.(map[string]any)
		if !ok {
			continue
		}
		c.Legs = append(c.Legs, CandidateLeg{
			Match:      stringField(lo, "match"),
			Market:     stringField(lo, "market"),
			Odds:       lo["odds"],
			Confidence: lo["confidence"],
			Date:       stringField(lo, "date"),
			Time:       stringField(lo, "time"),
		})
	}
	return c
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
