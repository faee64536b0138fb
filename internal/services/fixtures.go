package services

import (
	"sort"
	"time"

	"github.com/betslipai/backend/internal/models"
)

// MaxManifestFixtures bounds the manifest embedded in one prompt.
const MaxManifestFixtures = 30

// SelectFixtures keeps fixtures that start strictly after now, soonest first,
// capped at limit. limit never exceeds MaxManifestFixtures. Fixtures without a
// start time are dropped.
func SelectFixtures(all []models.Fixture, now time.Time, limit int) ([]models.Fixture, []models.ManifestEntry, error) {
	if len(all) == 0 {
		return nil, nil, ErrNoFixturesAvailable
	}
	if limit <= 0 || limit > MaxManifestFixtures {
		limit = MaxManifestFixtures
	}

	upcoming := make([]models.Fixture, 0, len(all))
	for _, f := range all {
		if f.StartsAt == nil || f.StartsAt.IsZero() || !f.StartsAt.After(now) {
			continue
		}
		upcoming = append(upcoming, f)
	}
	if len(upcoming) == 0 {
		return nil, nil, ErrNoFutureFixtures
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartsAt.Before(*upcoming[j].StartsAt)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, BuildManifest(upcoming), nil
}

// BuildManifest renders fixtures as manifest entries with UTC date and time.
func BuildManifest(fixtures []models.Fixture) []models.ManifestEntry {
	out := make([]models.ManifestEntry, 0, len(fixtures))
	for _, f := range fixtures {
		e := models.ManifestEntry{
			Match: models.MatchKey(f.HomeTeam, f.AwayTeam),
			Home:  f.HomeTeam,
			Away:  f.AwayTeam,
		}
		if f.StartsAt != nil {
			at := f.StartsAt.UTC()
			e.Date = at.Format("2006-01-02")
			e.Time = at.Format("15:04")
		}
		out = append(out, e)
	}
	return out
}
