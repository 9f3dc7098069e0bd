package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. It matches both the Postgres wording ("duplicate key
// value") and the sqlite driver used in tests ("UNIQUE constraint failed").
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
