package clock

import "time"

// Clock provides time to the application. Services stamp ledger records and
// account timestamps through this interface so tests can control time.
type Clock interface {
	Now() time.Time
}
