package domain

import "strings"

// NormalizeFreeText trims leading/trailing whitespace and collapses internal
// whitespace runs. Used for operator-entered text (destinations, notes).
func NormalizeFreeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
