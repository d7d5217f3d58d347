package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Page size bounds for GetRecentActivity.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Service records and reads the audit trail of template, project and
// checklist changes.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogActivity appends entry, stamping CreatedAt when unset.
func (s *Service) LogActivity(ctx context.Context, tenantID string, entry *ActivityEntry) error {
	if entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("activity log failed",
			"tenant_id", tenantID,
			"project_id", entry.ProjectID,
			"type", entry.ActivityType,
			"error", err)
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists entries newest first. A zero limit means
// DefaultLimit; larger limits are capped at MaxLimit.
func (s *Service) GetRecentActivity(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	switch {
	case opts.Limit == 0:
		opts.Limit = DefaultLimit
	case opts.Limit > MaxLimit:
		opts.Limit = MaxLimit
	}
	return s.repo.List(ctx, tenantID, opts)
}
