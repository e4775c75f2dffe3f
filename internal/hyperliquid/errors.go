package hyperliquid

import "errors"

// ErrRemoteUnavailable is returned when the info endpoint is unreachable or
// answers with a non-success status. The fetch is void as a whole; partial
// results are never returned alongside it.
var ErrRemoteUnavailable = errors.New("hyperliquid api unavailable")
