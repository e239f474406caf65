package live

import "time"

// Backoff is the reconnect delay schedule: it starts at floor, doubles after
// every failed attempt, never exceeds ceiling and only returns to floor on
// Reset.
type Backoff struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

func NewBackoff(floor, ceiling time.Duration) *Backoff {
	return &Backoff{floor: floor, ceiling: ceiling, current: floor}
}

// Current is the delay the next reconnect will wait.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Next returns the delay to wait now and doubles the one after it.
func (b *Backoff) Next() time.Duration {
	delay := b.current
	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
	return delay
}

// Reset restores the floor. Called only after a connection opens.
func (b *Backoff) Reset() {
	b.current = b.floor
}
