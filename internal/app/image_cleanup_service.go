package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hikelog/internal/apperr"
	coreasset "github.com/example/hikelog/internal/core/asset"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/metrics"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
)

// ImageCleanupServiceImpl implements the ImageCleanupService interface.
type ImageCleanupServiceImpl struct {
	assets secondary.AssetRepository
	files  secondary.FileStore
	now    func() time.Time
}

// NewImageCleanupService creates a new ImageCleanupService with injected dependencies.
func NewImageCleanupService(assets secondary.AssetRepository, files secondary.FileStore) *ImageCleanupServiceImpl {
	return &ImageCleanupServiceImpl{
		assets: assets,
		files:  files,
		now:    time.Now,
	}
}

// CleanupOlderThan removes local copies of uploaded images older than retention.
// A file that cannot be deleted is reported and its row kept for the next pass.
func (s *ImageCleanupServiceImpl) CleanupOlderThan(ctx context.Context, retention time.Duration) (*primary.ImageCleanupReport, error) {
	cutoff, ok := coreasset.RetentionCutoff(s.now(), retention)
	if !ok {
		return nil, apperr.Validation("images.cleanup", "retention must be positive, got %s", retention)
	}

	candidates, err := s.assets.ListSyncedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list synced images: %w", err)
	}

	report := &primary.ImageCleanupReport{}
	for _, a := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.files.Delete(ctx, a.Path); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		if err := s.assets.Delete(ctx, a.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		report.Deleted++
		report.FreedBytes += a.SizeBytes
		metrics.ImagesCleaned.Inc()
	}

	logging.Ctx(ctx).Info().
		Time("cutoff", cutoff).
		Int("deleted", report.Deleted).
		Int64("freed_bytes", report.FreedBytes).
		Int("errors", len(report.Errors)).
		Msg("image cleanup finished")
	return report, nil
}

var _ primary.ImageCleanupService = (*ImageCleanupServiceImpl)(nil)
