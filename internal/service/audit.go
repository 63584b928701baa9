package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditEvent describes one administrative change.
type auditEvent struct {
	actor      *models.JWTClaims
	action     string
	resource   string
	resourceID string
	oldValues  interface{}
	newValues  interface{}
}

// emitAudit journals the event. Failures are logged and never fail the caller.
func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, source string, event auditEvent) {
	if audit == nil {
		return
	}
	var userID *string
	if event.actor != nil {
		id := event.actor.UserID
		userID = &id
	}
	resourceID := event.resourceID
	log := &models.AuditLog{
		UserID:     userID,
		Action:     event.action,
		Resource:   event.resource,
		ResourceID: &resourceID,
		OldValues:  marshalAudit(event.oldValues),
		NewValues:  marshalAudit(event.newValues),
		IPAddress:  "system",
		UserAgent:  source,
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil && logger != nil {
		logger.Warn("failed to record audit log",
			zap.String("action", event.action),
			zap.String("resource_id", event.resourceID),
			zap.Error(err),
		)
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

func actorID(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
