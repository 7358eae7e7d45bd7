package application

import (
	"time"

	"github.com/bnema/bottingctl/internal/domain"
)

const (
	RateLimitFloor    = 45 * time.Second
	RateLimitMaxDelay = 15 * time.Minute

	maxGenericExponent   = 12
	maxRateLimitExponent = 3
)

// GenericRetryDelay is base × 2^(n−1), clamped to [5s, min(ceiling, 300s)].
func GenericRetryDelay(base, ceiling time.Duration, retryCount int) time.Duration {
	upper := domain.MaxRetryDelay
	if ceiling > 0 && ceiling < upper {
		upper = ceiling
	}
	if upper < domain.MinRetryDelay {
		upper = domain.MinRetryDelay
	}
	if base <= 0 {
		base = domain.DefaultRetryBase
	}

	delay := shifted(base, min(max(retryCount, 1)-1, maxGenericExponent), upper)
	return min(max(delay, domain.MinRetryDelay), upper)
}

// RateLimitDelay is the cooldown after the given number of consecutive
// rate-limited launches. It never drops below max(45s, 2×launchDelay).
func RateLimitDelay(launchDelay time.Duration, strikes int) time.Duration {
	floor := max(RateLimitFloor, 2*launchDelay)
	delay := shifted(floor, min(max(strikes, 1)-1, maxRateLimitExponent), RateLimitMaxDelay)
	return max(min(delay, RateLimitMaxDelay), floor)
}

// shifted doubles d exp times, stopping once it reaches limit.
func shifted(d time.Duration, exp int, limit time.Duration) time.Duration {
	for i := 0; i < exp && d < limit; i++ {
		d *= 2
	}
	return d
}
