// Package eventid mints the 26-character identifiers used for events
// and causation chains. IDs are ULIDs: time-ordered, Crockford Base32,
// lexicographic sort matches creation order.
package eventid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Length is the fixed identifier length on the wire.
const Length = 26

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh identifier. Successive calls within one process
// are strictly increasing even inside a single millisecond.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether s is a well-formed identifier: 26 characters
// of Crockford Base32 (no I, L, O, U).
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
