package services

import (
	"context"
	"encoding/json"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"

	"gorm.io/gorm"
)

// AuditService is the audit sink. Events are written through the
// caller's open transaction so a mutation and its trail commit or roll
// back together - the ledger and the audit log can never diverge.
type AuditService struct {
	auditRepo repositories.AuditLogRepository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo repositories.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// AuditEvent describes one committed mutation or rejected attempt
type AuditEvent struct {
	Actor      domain.Actor
	Action     string
	EntityType string
	EntityID   uint
	Metadata   map[string]interface{}
}

// Record writes one audit event inside the given transaction
func (s *AuditService) Record(ctx context.Context, tx *gorm.DB, event *AuditEvent) error {
	metadata := "{}"
	if event.Metadata != nil {
		b, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadata = string(b)
	}

	entry := &models.AuditLog{
		ActorID:    event.Actor.ID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Metadata:   metadata,
		IPAddress:  event.Actor.IPAddress,
	}

	return s.auditRepo.WithTx(tx).Create(ctx, entry)
}

// List lists audit events with optional action filter
func (s *AuditService) List(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.auditRepo.List(ctx, action, offset, limit)
}

// ListByEntity lists audit events for one entity
func (s *AuditService) ListByEntity(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.auditRepo.ListByEntity(ctx, entityType, entityID, offset, limit)
}
