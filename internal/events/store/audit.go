package store

import (
	"context"

	"github.com/serroba/url-shortener/internal/events"
	"go.uber.org/zap"
)

// AuditLog is an events.Store that writes every event to the audit logger.
type AuditLog struct {
	logger *zap.Logger
}

// NewAuditLog creates an audit log store.
func NewAuditLog(logger *zap.Logger) *AuditLog {
	return &AuditLog{logger: logger.Named("audit")}
}

func (a *AuditLog) SaveLinkCreated(_ context.Context, event *events.LinkCreated) error {
	a.logger.Info("link created",
		zap.String("code", event.Code),
		zap.String("originalUrl", event.OriginalURL),
		zap.Bool("custom", event.Custom),
		zap.Time("createdAt", event.CreatedAt),
		zap.String("clientIp", event.ClientIP),
	)

	return nil
}

func (a *AuditLog) SaveLinkAccessed(_ context.Context, event *events.LinkAccessed) error {
	a.logger.Info("link accessed",
		zap.String("code", event.Code),
		zap.Time("accessedAt", event.AccessedAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

func (a *AuditLog) SaveAccountRegistered(_ context.Context, event *events.AccountRegistered) error {
	a.logger.Info("account registered",
		zap.String("accountId", event.AccountID),
		zap.String("email", event.Email),
		zap.Bool("mailSent", event.MailSent),
		zap.Time("registeredAt", event.RegisteredAt),
	)

	return nil
}

func (a *AuditLog) SaveAccountVerified(_ context.Context, event *events.AccountVerified) error {
	a.logger.Info("account verified",
		zap.String("accountId", event.AccountID),
		zap.String("email", event.Email),
		zap.Time("verifiedAt", event.VerifiedAt),
	)

	return nil
}

var _ events.Store = (*AuditLog)(nil)
