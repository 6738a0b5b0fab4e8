package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/studyshare-auth/internal/events"
)

// AuditService writes one structured log line per session event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to session events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleSessionIssued)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleSessionIssued)
	a.dispatcher.Subscribe(events.EventUserLoggedOut, a.handleLoggedOut)
}

func (a *AuditService) handleSessionIssued(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.SessionIssuedPayload); ok {
		fields = append(fields, zap.Time("expires_at", payload.ExpiresAt))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func (a *AuditService) handleLoggedOut(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.LoggedOutPayload); ok {
		fields = append(fields, zap.Bool("revoked", payload.Revoked), zap.Time("expires_at", payload.ExpiresAt))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
		zap.String("jti", event.TokenID),
		zap.Time("at", event.Timestamp),
	}
}
