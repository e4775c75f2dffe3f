package sync

import "errors"

// ErrNoConnection is returned when a sync is requested for a user with no
// registered exchange link. No partial work is attempted.
var ErrNoConnection = errors.New("no exchange connection for user")
