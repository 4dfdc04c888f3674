// Package ids generates request identifiers.
package ids

import (
	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable identifier for correlating a
// request across logs and responses.
func New() string {
	return ulid.Make().String()
}

// IsValid reports whether s is a well-formed identifier produced by New.
// Inbound X-Request-ID values that fail this check are replaced.
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
