package db

import "strings"

// IsUniqueViolation classifies driver errors that indicate a unique or
// primary-key constraint was violated, grounded on the teacher's substring
// classification of PostgreSQL errors (SQLSTATE 23505) rather than a full
// error-code table.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
