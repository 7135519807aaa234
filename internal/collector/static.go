package collector

import (
	"context"
	"time"

	"freetier-alerts/internal/ledger"
)

// StaticFetcher serves a fixed batch of observations. Used by the
// simulate command and by dry runs.
type StaticFetcher struct {
	Observations []ledger.Observation
}

// FetchUsage returns the configured batch, limited to [from, to).
func (s *StaticFetcher) FetchUsage(ctx context.Context, from, to time.Time) ([]ledger.Observation, error) {
	out := make([]ledger.Observation, 0, len(s.Observations))
	for _, obs := range s.Observations {
		if obs.Date.Before(from) || !obs.Date.Before(to) {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

var _ UsageFetcher = (*StaticFetcher)(nil)
