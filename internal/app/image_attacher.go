package app

import (
	"context"
	"fmt"

	"github.com/example/hikelog/internal/apperr"
	coreasset "github.com/example/hikelog/internal/core/asset"
	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/retry"
)

// ImageAttacher places photos where the active backend keeps them. Guest
// photos are copied into the local asset store and tracked as assets; photos
// of signed-in users are staged locally, uploaded, and the staged copy removed.
type ImageAttacher struct {
	files    secondary.FileStore
	assets   secondary.AssetRepository
	objects  secondary.ObjectStore
	policy   retry.Policy
	maxBytes int64
}

// NewImageAttacher creates an ImageAttacher. objects may be nil when no object
// store is configured; attaching while signed in then fails.
func NewImageAttacher(
	files secondary.FileStore,
	assets secondary.AssetRepository,
	objects secondary.ObjectStore,
	policy retry.Policy,
	maxBytes int64,
) *ImageAttacher {
	return &ImageAttacher{
		files:    files,
		assets:   assets,
		objects:  objects,
		policy:   policy,
		maxBytes: maxBytes,
	}
}

// stagedImage is an image stored but not yet tied to its record.
type stagedImage struct {
	// Ref goes on the record: a local path or an object URL.
	Ref         string
	Path        string
	Key         string
	Size        int64
	ContentType string
	backend     auth.Backend
}

// Stage stores the image at sourceURI for the record identified by
// entityType and entityID.
func (a *ImageAttacher) Stage(ctx context.Context, backend auth.Backend, ownerID, entityType, entityID, sourceURI string) (*stagedImage, error) {
	if guard := coreasset.CanAttach(sourceURI, 0, 0); !guard.Allowed {
		return nil, apperr.Validation("image.attach", "%s", guard.Reason)
	}
	if backend == auth.BackendRemote && a.objects == nil {
		return nil, apperr.New(apperr.KindPermanent, "image.attach", "object storage is not configured")
	}

	path, size, err := a.files.SaveFromURI(ctx, ownerID, sourceURI)
	if err != nil {
		return nil, err
	}
	if guard := coreasset.CanAttach(path, size, a.maxBytes); !guard.Allowed {
		_ = a.files.Delete(ctx, path)
		return nil, apperr.Validation("image.attach", "%s", guard.Reason)
	}

	img := &stagedImage{
		Ref:         path,
		Path:        path,
		Size:        size,
		ContentType: coreasset.ContentType(path),
		backend:     backend,
	}
	if backend == auth.BackendLocal {
		return img, nil
	}

	// Signed in: the staged copy only lives until the upload finishes.
	defer func() { _ = a.files.Delete(ctx, path) }()

	handles, err := a.files.PrepareForUpload(ctx, []string{path})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image for upload: %w", err)
	}
	img.Key = migration.ObjectKey(ownerID, entityType, entityID, path)
	url, err := retry.Do(ctx, a.policy, "image.upload", func(ctx context.Context) (string, error) {
		return a.objects.Upload(ctx, img.Key, handles[0], nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	img.Ref = url
	img.Path = ""
	return img, nil
}

// Commit ties a staged image to its record. Local images become tracked
// assets; uploaded images need nothing more.
func (a *ImageAttacher) Commit(ctx context.Context, ownerID, entityType, entityID string, img *stagedImage) error {
	if img == nil || img.backend != auth.BackendLocal {
		return nil
	}
	id, err := a.assets.GetNextID(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate asset ID: %w", err)
	}
	return a.assets.Create(ctx, &secondary.AssetRecord{
		ID:          id,
		OwnerID:     ownerID,
		EntityType:  entityType,
		EntityID:    entityID,
		Path:        img.Path,
		ContentType: img.ContentType,
		SizeBytes:   img.Size,
	})
}

// Discard removes a staged image whose record could not be written.
func (a *ImageAttacher) Discard(ctx context.Context, img *stagedImage) {
	if img == nil {
		return
	}
	var err error
	if img.backend == auth.BackendLocal {
		err = a.files.Delete(ctx, img.Path)
	} else if a.objects != nil && img.Key != "" {
		err = a.objects.Delete(ctx, img.Key)
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("ref", img.Ref).Msg("failed to discard orphaned image")
	}
}
