package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDurationMinutes is used whenever duration text cannot be interpreted.
const DefaultDurationMinutes = 30

// ParseDurationMinutes interprets free-text duration as whole minutes.
// Missing, non-numeric or non-positive text yields DefaultDurationMinutes.
func ParseDurationMinutes(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return DefaultDurationMinutes
	}
	return n
}

// FormatDuration renders duration text for display, e.g. "90" -> "1h 30 min".
func FormatDuration(text string) string {
	m := ParseDurationMinutes(text)
	h, rem := m/60, m%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", rem)
	case rem == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %d min", h, rem)
	}
}
