package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt on converted points. Tests and fixture tools
// freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
