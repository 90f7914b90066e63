package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMinBackoff = 800 * time.Millisecond

// reconnectDelay yields exponentially growing reconnect delays with ±50% jitter.
// Delays never exceed max, even after jitter, and never stop growing toward it.
// It is not safe for concurrent use.
type reconnectDelay struct {
	exp *backoff.ExponentialBackOff
	max time.Duration
}

func newReconnectDelay(min, max time.Duration, jitter float64) *reconnectDelay {
	if min <= 0 {
		min = defaultMinBackoff
	}
	if max < min {
		max = min
	}
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     min,
		RandomizationFactor: jitter,
		Multiplier:          2,
		MaxInterval:         max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return &reconnectDelay{exp: exp, max: max}
}

func (d *reconnectDelay) next() time.Duration {
	v := d.exp.NextBackOff()
	if v > d.max {
		v = d.max
	}
	if v <= 0 {
		v = time.Millisecond
	}
	return v
}

func (d *reconnectDelay) reset() { d.exp.Reset() }
