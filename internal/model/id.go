package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string for use as a correlation identifier.
func NewID() string {
	return ulid.Make().String()
}

// ValidID reports whether s parses as a ULID. Handlers use this to reject
// malformed correlation identifiers before they reach the shared logs.
func ValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
