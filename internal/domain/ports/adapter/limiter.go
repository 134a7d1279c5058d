package adapter

import "context"

// AdmissionLimiter gates how often a caller identity may invoke issuance or
// confirmation. Implementations decide limit and window at construction time
// and must fail open when their own storage is unavailable, so a limiter
// outage never blocks legitimate redemption.
type AdmissionLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
