package persist

import "github.com/cockroachdb/errors"

// ErrManualUnavailable means the document store never connected; the
// scraped pipeline is unaffected, only manual writes are refused.
var ErrManualUnavailable = errors.New("manual listing store unavailable")
