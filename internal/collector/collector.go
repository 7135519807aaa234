package collector

import (
	"context"
	"time"

	"freetier-alerts/internal/ledger"
)

// UsageFetcher retrieves daily usage records from the upstream billing
// export for the half-open day range [from, to).
type UsageFetcher interface {
	FetchUsage(ctx context.Context, from, to time.Time) ([]ledger.Observation, error)
}
