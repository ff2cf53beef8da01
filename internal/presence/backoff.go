package presence

import "time"

// Policy describes the reconnect schedule: delays start at Base, double per
// attempt, and cap at Max. After MaxAttempts consecutive failures the channel
// stays disconnected until a manual reconnect.
type Policy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultPolicy mirrors the documented 1s → 30s ladder.
var DefaultPolicy = Policy{
	Base:        time.Second,
	Max:         30 * time.Second,
	MaxAttempts: 10,
}

// Delay returns the wait before the given attempt (1-based). Delays are
// strictly increasing until the cap is reached.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Max {
			return p.Max
		}
	}
	if delay > p.Max {
		return p.Max
	}
	return delay
}

// Exhausted reports whether the attempt count has reached the ceiling.
func (p Policy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
