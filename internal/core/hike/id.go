// Package hike contains the pure business logic for hike records.
// This is part of the Functional Core - no I/O, only pure functions.
package hike

import "fmt"

// GenerateHikeID generates a local hike ID from the current max number.
// The format is HIKE-XXX where XXX is a zero-padded 3-digit number.
// Remote hikes use server-issued document IDs instead.
func GenerateHikeID(currentMax int) string {
	return fmt.Sprintf("HIKE-%03d", currentMax+1)
}

// ParseHikeNumber extracts the numeric portion from a local hike ID.
// Returns -1 if the ID format is invalid.
func ParseHikeNumber(id string) int {
	var num int
	_, err := fmt.Sscanf(id, "HIKE-%d", &num)
	if err != nil {
		return -1
	}
	return num
}

// IsLocalID reports whether id was issued by the local store.
func IsLocalID(id string) bool {
	return ParseHikeNumber(id) > 0
}
