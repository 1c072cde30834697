// Package backoff computes retry delays for failed transport attempts.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

const maxShift = 62

// Exponential returns base * 2^attempt, clamped to cap. Negative attempts
// are treated as 0.
func Exponential(base, cap time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if cap <= 0 {
		cap = time.Duration(math.MaxInt64)
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	// Detect overflow before multiplying.
	multiplier := int64(1) << attempt
	if int64(base) > int64(cap)/multiplier {
		return cap
	}

	d := time.Duration(int64(base) * multiplier)
	if d > cap {
		return cap
	}
	return d
}

// Jittered returns a random duration in [delay/2, delay). Spreading retry
// deadlines avoids synchronized reconnection storms when many sessions
// lose the collector at the same moment.
func Jittered(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	half := int64(delay) / 2
	if half == 0 {
		return delay
	}
	return time.Duration(half + rand.Int63n(half))
}

// Next returns the jittered backoff delay for the given attempt number.
func Next(base, cap time.Duration, attempt int) time.Duration {
	return Jittered(Exponential(base, cap, attempt))
}
