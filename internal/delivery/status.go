// Package delivery applies gateway delivery-status callbacks to messages
// under a forward-only status order and keeps the audit trail.
package delivery

import "strings"

// Delivery statuses.
const (
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

var ranks = map[string]int{
	StatusQueued:    1,
	StatusSent:      2,
	StatusDelivered: 3,
	StatusRead:      4,
	StatusFailed:    5,
}

// Normalize lowercases a gateway status and folds "undelivered" into failed.
func Normalize(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "undelivered" {
		return StatusFailed
	}
	return s
}

// Rank returns the position of status in the order; unknown statuses are 0.
func Rank(status string) int {
	return ranks[Normalize(status)]
}

// IsError reports whether status always overwrites the current one.
func IsError(status string) bool {
	return Normalize(status) == StatusFailed
}

// ShouldApply reports whether next replaces current.
func ShouldApply(current, next string) bool {
	return IsError(next) || Rank(next) > Rank(current)
}
