package history

import "time"

// SetClock replaces the timestamp source used by Record.
func SetClock(s *Store, now func() time.Time) {
	s.now = now
}
