// Package observation contains the pure business logic for wildlife and
// landmark observations recorded during a hike.
// This is part of the Functional Core - no I/O, only pure functions.
package observation

import "fmt"

// GenerateObservationID generates a local observation ID from the current max number.
// The format is OBS-XXX where XXX is a zero-padded 3-digit number.
func GenerateObservationID(currentMax int) string {
	return fmt.Sprintf("OBS-%03d", currentMax+1)
}

// ParseObservationNumber extracts the numeric portion from a local observation ID.
// Returns -1 if the ID format is invalid.
func ParseObservationNumber(id string) int {
	var num int
	_, err := fmt.Sscanf(id, "OBS-%d", &num)
	if err != nil {
		return -1
	}
	return num
}
