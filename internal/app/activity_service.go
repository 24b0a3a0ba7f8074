package app

import (
	"context"
	"fmt"

	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
)

// ActivityServiceImpl implements the ActivityService interface.
type ActivityServiceImpl struct {
	logWriter secondary.LogWriter
}

// NewActivityService creates a new ActivityService with injected dependencies.
func NewActivityService(logWriter secondary.LogWriter) *ActivityServiceImpl {
	return &ActivityServiceImpl{logWriter: logWriter}
}

// Recent returns the newest activity first.
func (s *ActivityServiceImpl) Recent(ctx context.Context, limit int) ([]*primary.ActivityEntry, error) {
	records, err := s.logWriter.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	entries := make([]*primary.ActivityEntry, len(records))
	for i, r := range records {
		entries[i] = recordToActivityEntry(r)
	}
	return entries, nil
}

func recordToActivityEntry(r *secondary.ActivityRecord) *primary.ActivityEntry {
	entry := &primary.ActivityEntry{
		ActorID:    r.ActorID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     r.Action,
		CreatedAt:  r.CreatedAt,
	}
	if r.FieldName != "" {
		entry.Detail = fmt.Sprintf("%s: %q -> %q", r.FieldName, r.OldValue, r.NewValue)
	}
	return entry
}

var _ primary.ActivityService = (*ActivityServiceImpl)(nil)
