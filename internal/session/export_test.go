package session

import "time"

// SetClock overrides the codec clock in tests.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}
