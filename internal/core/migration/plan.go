package migration

import (
	"fmt"
	"path"
	"strings"
)

// Entity types that own image assets.
const (
	EntityHike        = "hike"
	EntityObservation = "observation"
)

// RecordOverheadBytes is the estimated remote size of one record without images.
const RecordOverheadBytes = 512

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// CanMigrate evaluates whether a migration request is structurally valid.
func CanMigrate(guestID, newUserID string) GuardResult {
	if strings.TrimSpace(guestID) == "" {
		return GuardResult{Reason: "guest id must not be blank"}
	}
	if strings.TrimSpace(newUserID) == "" {
		return GuardResult{Reason: "user id must not be blank"}
	}
	if guestID == newUserID {
		return GuardResult{Reason: "guest id and user id must differ"}
	}
	return GuardResult{Allowed: true}
}

// EstimateSize estimates the bytes a migration will transfer.
func EstimateSize(records int, assetBytes int64) int64 {
	if assetBytes < 0 {
		assetBytes = 0
	}
	return int64(records)*RecordOverheadBytes + assetBytes
}

// ObservationRef is the part of an observation the planner needs.
type ObservationRef struct {
	ID     string
	HikeID string
}

// PartitionObservations splits observations into those whose parent hike
// exists remotely (a key of remoteHikes) and those that must be skipped.
// Order is preserved in both slices.
func PartitionObservations(obs []ObservationRef, remoteHikes map[string]string) (eligible, skipped []ObservationRef) {
	for _, o := range obs {
		if _, ok := remoteHikes[o.HikeID]; ok {
			eligible = append(eligible, o)
		} else {
			skipped = append(skipped, o)
		}
	}
	return eligible, skipped
}

// AssetRef is the part of an image asset the planner needs.
type AssetRef struct {
	ID         string
	EntityType string
	EntityID   string
}

// RemoteOwner returns the remote ID of the record that owns a, if that record
// was migrated.
func RemoteOwner(a AssetRef, remoteHikes, remoteObservations map[string]string) (string, bool) {
	var id string
	var ok bool
	switch a.EntityType {
	case EntityHike:
		id, ok = remoteHikes[a.EntityID]
	case EntityObservation:
		id, ok = remoteObservations[a.EntityID]
	}
	return id, ok
}

// PartitionAssets splits assets into those whose owning record was migrated
// and those that must be skipped. Order is preserved.
func PartitionAssets(assets []AssetRef, remoteHikes, remoteObservations map[string]string) (eligible, skipped []AssetRef) {
	for _, a := range assets {
		if _, ok := RemoteOwner(a, remoteHikes, remoteObservations); ok {
			eligible = append(eligible, a)
		} else {
			skipped = append(skipped, a)
		}
	}
	return eligible, skipped
}

// ObjectKey builds the object-storage key for an uploaded image:
// users/<user>/<entity type>s/<entity id>/<file name>.
func ObjectKey(userID, entityType, entityID, fileName string) string {
	return path.Join("users", userID, fmt.Sprintf("%ss", entityType), entityID, path.Base(fileName))
}

// Fraction returns transferred/total clamped to [0, 1]. An empty asset is complete.
func Fraction(transferred, total int64) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(transferred) / float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
