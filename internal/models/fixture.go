package models

import (
	"time"

	"github.com/google/uuid"
)

// Fixture is a scheduled match. StartsAt is nil when the kickoff is unknown.
type Fixture struct {
	ID       uuid.UUID  `json:"id"`
	HomeTeam string     `json:"home_team"`
	AwayTeam string     `json:"away_team"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	League   string     `json:"league,omitempty"`
	Venue    string     `json:"venue,omitempty"`
}

// MatchKey is the identity used to tie generated legs back to a fixture.
func MatchKey(home, away string) string {
	return home + " vs " + away
}

// ManifestEntry is the per-fixture record embedded in the prompt and used for back-fill.
// Date and Time are rendered in UTC.
type ManifestEntry struct {
	Match string `json:"match"`
	Home  string `json:"home"`
	Away  string `json:"away"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}
