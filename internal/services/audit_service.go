package services

import (
	"context"

	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/sjperalta/fintera-financing/pkg/logger"
)

// AuditContext carries who performed an action and from where
type AuditContext struct {
	ActorID   uint
	IP        string
	UserAgent string
}

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry. Failures are logged and swallowed; auditing
// never undoes the audited action.
func (s *AuditService) Log(ctx context.Context, actor AuditContext, action, entity string, entityID uint, details string) {
	entry := &models.AuditLog{
		UserID:    actor.ActorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Log.WarnContext(ctx, "audit log write failed",
			"action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// History returns the audit trail of one entity, newest first
func (s *AuditService) History(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	return s.repo.FindByEntity(ctx, entity, entityID)
}
