package model

import "fmt"

// maxIDLength bounds table ids and usernames.
const maxIDLength = 64

// ValidateTableID checks the table id against the safe charset and length.
func ValidateTableID(id string) error {
	return validateID("table id", id)
}

// ValidateUsername checks the username against the safe charset and length.
func ValidateUsername(name string) error {
	return validateID("username", name)
}

// ValidateCounters rejects negative or inconsistent progress counters.
func ValidateCounters(tasksCompleted, totalTasks int) error {
	if tasksCompleted < 0 || totalTasks < 0 {
		return fmt.Errorf("%w: counters must be non-negative", ErrInvalidID)
	}
	if tasksCompleted > totalTasks {
		return fmt.Errorf("%w: tasksCompleted %d exceeds totalTasks %d", ErrInvalidID, tasksCompleted, totalTasks)
	}
	return nil
}

func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidID, kind)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidID, kind, maxIDLength)
	}
	for _, r := range id {
		if !safeIDRune(r) {
			return fmt.Errorf("%w: %s contains %q", ErrInvalidID, kind, r)
		}
	}
	return nil
}

func safeIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
