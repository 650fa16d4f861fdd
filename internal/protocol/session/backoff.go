package session

import (
	"math/rand"
	"time"
)

// receiveRetryReads caps a receive retry at this many read timeouts, so a
// socket that recovers is polled again within a few read cycles.
const receiveRetryReads = 8

// ReceiveRetryDelay is the pause after the attempt-th consecutive receive
// error (1-based). It grows from Backoff.InitialDelay by Backoff.Multiplier
// up to the smaller of Backoff.MaxDelay and receiveRetryReads*ReadTimeout.
// With jitter the pause falls in [d/2, d].
func (c Config) ReceiveRetryDelay(attempt int, rng *rand.Rand) time.Duration {
	b := c.Backoff
	if b.InitialDelay <= 0 {
		return 0
	}
	limit := b.MaxDelay
	if c.ReadTimeout > 0 {
		if ceiling := receiveRetryReads * c.ReadTimeout; limit <= 0 || ceiling < limit {
			limit = ceiling
		}
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := b.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if limit > 0 && d >= limit {
			break
		}
	}
	if limit > 0 && d > limit {
		d = limit
	}
	if b.Jitter && rng != nil && d > 1 {
		half := d / 2
		d = half + time.Duration(rng.Int63n(int64(d-half)+1))
	}
	return d
}
