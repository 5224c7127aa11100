package monitor

import (
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// Evaluate is Up only for an error-free outcome whose response code is one of
// successCodes (exact match).
func Evaluate(o domain.Outcome, successCodes []int) domain.State {
	if o.Error != nil {
		return domain.StateDown
	}
	code, ok := o.Code()
	if !ok {
		return domain.StateDown
	}
	for _, c := range successCodes {
		if c == code {
			return domain.StateUp
		}
	}
	return domain.StateDown
}

// Transition stamps c with the computed state and time and reports whether the
// owner should be alerted. A check that was never evaluated never alerts.
// An evaluated check without a stored state counts as Down.
func Transition(c domain.Check, computed domain.State, now time.Time) (domain.Check, bool) {
	previous := c.State
	if previous == domain.StateUnknown {
		previous = domain.StateDown
	}
	alert := c.Evaluated() && previous != computed

	at := now.UTC()
	c.State = computed
	c.LastCheckedAt = &at
	return c, alert
}
