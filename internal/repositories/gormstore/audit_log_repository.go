package gormstore

import (
	"context"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

type auditLogRepository struct {
	reg *Registry
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	const op = "gormstore.audit_logs.append"

	m, err := toAuditLogModel(entry)
	if err != nil {
		return translateError(op, err)
	}
	if err := r.reg.conn(ctx).Create(&m).Error; err != nil {
		return translateError(op, err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) ([]domain.AuditLogEntry, error) {
	const op = "gormstore.audit_logs.list"

	query := r.reg.conn(ctx).Order("created_at DESC")
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", string(filter.EntityType))
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.DateRange.From != nil {
		query = query.Where("created_at >= ?", *filter.DateRange.From)
	}
	if filter.DateRange.To != nil {
		query = query.Where("created_at <= ?", *filter.DateRange.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []auditLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(op, err)
	}
	entries := make([]domain.AuditLogEntry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, toAuditLogDomain(m))
	}
	return entries, nil
}
