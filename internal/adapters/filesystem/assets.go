// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/example/hikelog/internal/apperr"
	coreasset "github.com/example/hikelog/internal/core/asset"
	"github.com/example/hikelog/internal/ports/secondary"
)

// AssetStore implements secondary.FileStore under a base directory, one
// subdirectory per owner.
type AssetStore struct {
	basePath string
}

// NewAssetStore creates a new filesystem asset store.
// If basePath is empty, defaults to ~/.hikelog/assets.
func NewAssetStore(basePath string) (*AssetStore, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		basePath = filepath.Join(home, ".hikelog", "assets")
	}

	return &AssetStore{basePath: basePath}, nil
}

// OwnerDir returns the directory holding an owner's files.
// Owner IDs are reduced to a single path element.
func (s *AssetStore) OwnerDir(ownerID string) string {
	name := filepath.Base(filepath.Clean("/" + ownerID))
	if name == "/" || name == "." {
		name = "_"
	}
	return filepath.Join(s.basePath, name)
}

// SaveFromURI copies sourceURI into the owner's directory under a fresh name.
func (s *AssetStore) SaveFromURI(ctx context.Context, ownerID, sourceURI string) (string, int64, error) {
	src, err := localPath(sourceURI)
	if err != nil {
		return "", 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, apperr.Validation("filesystem.save", "source image %s does not exist", src)
		}
		return "", 0, fmt.Errorf("failed to open source image: %w", err)
	}
	defer in.Close()

	dir := s.OwnerDir(ownerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create asset directory: %w", err)
	}

	dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create asset file: %w", err)
	}

	n, err := io.Copy(out, &ctxReader{ctx: ctx, r: in})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", 0, fmt.Errorf("failed to copy image: %w", err)
	}

	return dst, n, nil
}

// Delete removes a stored file. Deleting an absent file is not an error.
func (s *AssetStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset file: %w", err)
	}
	return nil
}

// Exists checks if a stored file exists at the given path.
func (s *AssetStore) Exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// DirSize returns the total size of all regular files under dir.
func (s *AssetStore) DirSize(ctx context.Context, dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}
	return total, nil
}

// DeleteDir removes dir recursively. A missing dir is not an error.
func (s *AssetStore) DeleteDir(ctx context.Context, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}
	return nil
}

// PrepareForUpload stats every path and returns handles that open the file
// lazily. A missing file fails the whole call.
func (s *AssetStore) PrepareForUpload(ctx context.Context, paths []string) ([]secondary.UploadHandle, error) {
	handles := make([]secondary.UploadHandle, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindPermanent, "filesystem.prepare", err, "image "+p+" is unavailable")
		}

		contentType := coreasset.ContentType(p)
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		path := p
		handles = append(handles, secondary.UploadHandle{
			Path:        path,
			Size:        info.Size(),
			ContentType: contentType,
			ModTime:     info.ModTime(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	return handles, nil
}

// localPath accepts a plain path or a file:// URI.
func localPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", apperr.Validation("filesystem.save", "invalid image URI %q", uri)
	}
	if u.Scheme != "file" {
		return "", apperr.Validation("filesystem.save", "unsupported image URI scheme %q", u.Scheme)
	}
	return filepath.Clean(u.Path), nil
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Ensure AssetStore implements the interface
var _ secondary.FileStore = (*AssetStore)(nil)
