// Package idgen generates identifiers for workers and jobs.
//
// Identifiers are UUIDv7 strings: globally unique and ordered by creation
// time, so registration order is recoverable from ids alone.
package idgen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a new time-ordered identifier.
// It panics if the system random source fails.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Time returns the creation time encoded in an identifier produced by New
func Time(id string) (time.Time, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse id %q: %w", id, err)
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("id %q is not time-ordered (version %d)", id, u.Version())
	}

	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), nil
}
