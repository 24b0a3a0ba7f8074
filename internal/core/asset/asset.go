// Package asset contains the pure business logic for image files attached to
// hikes and observations.
// This is part of the Functional Core - no I/O, only pure functions.
package asset

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// GenerateAssetID generates a local asset ID from the current max number.
func GenerateAssetID(currentMax int) string {
	return fmt.Sprintf("ASSET-%03d", currentMax+1)
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
}

// ContentType returns the image MIME type for a file name, or "" when the
// extension is not a supported image format.
func ContentType(name string) string {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// GuardResult represents the result of evaluating a guard condition.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// CanAttach evaluates whether a file may be attached as an image.
func CanAttach(name string, sizeBytes, maxBytes int64) GuardResult {
	if ContentType(name) == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("unsupported image type %q", filepath.Ext(name))}
	}
	if maxBytes > 0 && sizeBytes > maxBytes {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("image is %d bytes, limit is %d", sizeBytes, maxBytes)}
	}
	return GuardResult{Allowed: true}
}

// RetentionCutoff returns the instant before which synced assets may be removed.
// A non-positive retention keeps everything.
func RetentionCutoff(now time.Time, retention time.Duration) (time.Time, bool) {
	if retention <= 0 {
		return time.Time{}, false
	}
	return now.Add(-retention), true
}
