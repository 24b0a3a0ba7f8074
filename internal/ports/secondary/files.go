package secondary

import (
	"context"
	"io"
	"time"
)

// FileStore defines the secondary port for image files kept on the device.
type FileStore interface {
	// SaveFromURI copies the file at sourceURI (a path or file:// URI) into
	// the owner's directory and returns the stored path and its size.
	SaveFromURI(ctx context.Context, ownerID, sourceURI string) (path string, size int64, err error)

	// Delete removes a stored file. Deleting an absent file is not an error.
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// DirSize returns the total size of all files under dir. A missing dir is 0.
	DirSize(ctx context.Context, dir string) (int64, error)

	// DeleteDir removes dir recursively. A missing dir is not an error.
	DeleteDir(ctx context.Context, dir string) error

	// OwnerDir returns the directory holding an owner's files.
	OwnerDir(ownerID string) string

	// PrepareForUpload converts stored paths into transferable handles.
	// Missing files fail the whole call.
	PrepareForUpload(ctx context.Context, paths []string) ([]UploadHandle, error)
}

// UploadHandle is a stored file ready to be streamed to object storage.
type UploadHandle struct {
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
	Open        func() (io.ReadCloser, error)
}

// ProgressFunc receives bytes transferred so far and the total for one upload.
type ProgressFunc func(transferred, total int64)
