// Package session resolves and holds the portal session id.
//
// A session id is exactly eight lowercase hex digits. It is either restored
// from the "session" query parameter or generated client-side, and is fixed
// for the lifetime of a controller except when a session is explicitly loaded.
package session

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"
)

// QueryParam is the query parameter that carries a session id.
const QueryParam = "session"

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// IsWellFormed reports whether id is exactly eight lowercase hex digits.
func IsWellFormed(id string) bool {
	return idPattern.MatchString(id)
}

// Generator produces new session ids.
//
// Now and Rand16 are injectable for tests; zero values use the wall clock and
// math/rand/v2.
type Generator struct {
	Now    func() time.Time
	Rand16 func() uint16
}

// NewID returns fourHex(seconds mod 65536) followed by fourHex(random 16 bits).
func (g Generator) NewID() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	r := func() uint16 { return uint16(rand.UintN(1 << 16)) }
	if g.Rand16 != nil {
		r = g.Rand16
	}
	secs := now().Unix() % 65536
	if secs < 0 {
		secs += 65536
	}
	return fourHex(uint16(secs)) + fourHex(r())
}

func fourHex(v uint16) string {
	return fmt.Sprintf("%04x", v)
}

// NewID generates an id with the default Generator.
func NewID() string {
	return Generator{}.NewID()
}

// FromQuery extracts a well-formed session id from a raw query string.
//
// The leading '?' is optional. Pairs are scanned in order and the last
// well-formed "session" value wins; malformed pairs are ignored. A pair is
// split on every '=' and only the second field is the value, so
// "session=0a1b2c3d=x" yields 0a1b2c3d. Values are not URL-decoded since a
// well-formed id never needs escaping.
func FromQuery(rawQuery string) (string, bool) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	var found string
	for _, part := range strings.Split(rawQuery, "&") {
		fields := strings.Split(part, "=")
		if len(fields) < 2 || fields[0] != QueryParam {
			continue
		}
		if IsWellFormed(fields[1]) {
			found = fields[1]
		}
	}
	return found, found != ""
}

// ResolveID returns the session id from rawQuery if present and well formed,
// otherwise a freshly generated id. restored reports which case applied.
func (g Generator) ResolveID(rawQuery string) (id string, restored bool) {
	if id, ok := FromQuery(rawQuery); ok {
		return id, true
	}
	return g.NewID(), false
}

// ResolveID is Generator{}.ResolveID.
func ResolveID(rawQuery string) (string, bool) {
	return Generator{}.ResolveID(rawQuery)
}

// Identity holds the single active session id.
//
// Identity is safe for concurrent use.
type Identity struct {
	mu sync.RWMutex
	id string
}

// ID returns the active session id, or "" before one is set.
func (i *Identity) ID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.id
}

// Set replaces the active id. It rejects ids that are not well formed.
func (i *Identity) Set(id string) error {
	if !IsWellFormed(id) {
		return &InvalidIDError{ID: id}
	}
	i.mu.Lock()
	i.id = id
	i.mu.Unlock()
	return nil
}

// InvalidIDError reports a session id that is not eight lowercase hex digits.
type InvalidIDError struct {
	ID string
}

// Error implements the error interface. The text is shown to users as-is.
func (e *InvalidIDError) Error() string {
	return e.ID + " is not a valid session ID."
}
