package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/GeneralMarshal/postgres-auth/internal/events"
)

// AuditService writes a structured audit trail for authentication events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLogout, a.handleEvent)
}

func (a *AuditService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("email", event.Email),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
