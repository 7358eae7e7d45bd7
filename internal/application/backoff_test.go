package application

import (
	"testing"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenericRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    time.Duration
		ceiling time.Duration
		count   int
		want    time.Duration
	}{
		{name: "first failure", base: 10 * time.Second, ceiling: 300 * time.Second, count: 1, want: 10 * time.Second},
		{name: "doubles", base: 10 * time.Second, ceiling: 300 * time.Second, count: 3, want: 40 * time.Second},
		{name: "caps at ceiling", base: 10 * time.Second, ceiling: 300 * time.Second, count: 6, want: 300 * time.Second},
		{name: "lower ceiling", base: 10 * time.Second, ceiling: time.Minute, count: 4, want: time.Minute},
		{name: "ceiling above max is clamped", base: 10 * time.Second, ceiling: time.Hour, count: 40, want: domain.MaxRetryDelay},
		{name: "tiny base floors at five seconds", base: time.Second, ceiling: 300 * time.Second, count: 1, want: domain.MinRetryDelay},
		{name: "zero count treated as first", base: 10 * time.Second, ceiling: 300 * time.Second, count: 0, want: 10 * time.Second},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, GenericRetryDelay(tc.base, tc.ceiling, tc.count))
		})
	}
}

func TestGenericRetryDelayIsMonotonicAndBounded(t *testing.T) {
	t.Parallel()

	for _, base := range []time.Duration{time.Second, 10 * time.Second, 45 * time.Second} {
		previous := time.Duration(0)
		for n := 1; n <= 40; n++ {
			delay := GenericRetryDelay(base, domain.DefaultRetryCeiling, n)
			assert.GreaterOrEqual(t, delay, previous, "base %s count %d", base, n)
			assert.GreaterOrEqual(t, delay, domain.MinRetryDelay)
			assert.LessOrEqual(t, delay, domain.MaxRetryDelay)
			previous = delay
		}
	}
}

func TestRateLimitDelay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 45*time.Second, RateLimitDelay(20*time.Second, 1))
	assert.Equal(t, 90*time.Second, RateLimitDelay(20*time.Second, 2))
	assert.Equal(t, 360*time.Second, RateLimitDelay(20*time.Second, 4))
	assert.Equal(t, 360*time.Second, RateLimitDelay(20*time.Second, 9))
	assert.Equal(t, 120*time.Second, RateLimitDelay(time.Minute, 1))
	assert.Equal(t, RateLimitMaxDelay, RateLimitDelay(time.Minute, 4))
	assert.Equal(t, 20*time.Minute, RateLimitDelay(10*time.Minute, 3))
}

func TestRateLimitDelayNeverBelowFloor(t *testing.T) {
	t.Parallel()

	for _, launchDelay := range []time.Duration{0, 5 * time.Second, 20 * time.Second, 90 * time.Second, 10 * time.Minute} {
		floor := max(45*time.Second, 2*launchDelay)
		for strikes := 0; strikes <= 10; strikes++ {
			assert.GreaterOrEqual(t, RateLimitDelay(launchDelay, strikes), floor)
		}
	}
}
