package model

import "time"

// TypingIndicator is the ephemeral "agent is composing" marker. It carries no
// data beyond when it was raised.
type TypingIndicator struct {
	active bool
	since  time.Time
}

// Start raises the indicator. It returns false if it was already active.
func (t *TypingIndicator) Start(at time.Time) bool {
	if t.active {
		return false
	}
	t.active = true
	t.since = at
	return true
}

// Stop clears the indicator. It returns true only for the call that actually
// cleared it, so a settle path and a safety net never both count.
func (t *TypingIndicator) Stop() bool {
	if !t.active {
		return false
	}
	t.active = false
	t.since = time.Time{}
	return true
}

// Active reports whether the indicator is showing.
func (t *TypingIndicator) Active() bool {
	return t.active
}

// Since returns when the indicator was raised, or the zero time.
func (t *TypingIndicator) Since() time.Time {
	return t.since
}
