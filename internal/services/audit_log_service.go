package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

// ErrAuditLogUnavailable indicates the audit store could not serve the query.
var ErrAuditLogUnavailable = errors.New("audit log: unavailable")

// AuditLogServiceDeps bundles collaborators required to construct the audit log service.
type AuditLogServiceDeps struct {
	AuditLogs repositories.AuditLogRepository
}

type auditLogService struct {
	audits repositories.AuditLogRepository
}

// NewAuditLogService wires dependencies into a concrete AuditLogService implementation.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.AuditLogs == nil {
		return nil, errors.New("audit log service: audit log repository is required")
	}
	return &auditLogService{audits: deps.AuditLogs}, nil
}

func (s *auditLogService) List(ctx context.Context, query AuditLogQuery) ([]domain.AuditLogEntry, error) {
	entries, err := s.audits.List(ctx, repositories.AuditLogFilter{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		Action:     query.Action,
		DateRange:  domain.RangeQuery[time.Time]{From: query.From, To: query.To},
		Limit:      query.Limit,
	})
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			return nil, fmt.Errorf("%w: %v", ErrAuditLogUnavailable, err)
		}
		return nil, err
	}
	return entries, nil
}
