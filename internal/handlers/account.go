package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/account"
	"github.com/serroba/url-shortener/internal/auth"
	"github.com/serroba/url-shortener/internal/events"
	"github.com/serroba/url-shortener/internal/metrics"
	"go.uber.org/zap"
)

const (
	msgRegistered         = "Registration successful. Check your email for the verification code."
	msgRegisteredNoMail   = "Registration successful, but the verification email could not be sent. Request a new code to continue."
	msgVerified           = "Email verified successfully."
	msgAlreadyVerified    = "Email already verified."
	msgVerificationResent = "A new verification code has been sent."
	msgLoggedIn           = "Login successful."
)

// AccountHandler handles registration, verification and login.
type AccountHandler struct {
	accounts   *account.Service
	tokens     *auth.Manager
	validator  *Validator
	publishers *events.Publishers
	logger     *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(
	accounts *account.Service,
	tokens *auth.Manager,
	validator *Validator,
	publishers *events.Publishers,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		accounts:   accounts,
		tokens:     tokens,
		validator:  validator,
		publishers: publishers,
		logger:     logger,
	}
}

func message(text string) *MessageResponse {
	resp := &MessageResponse{}
	resp.Body.Message = text

	return resp
}

func (h *AccountHandler) Register(ctx context.Context, req *RegisterRequest) (*MessageResponse, error) {
	if err := h.validator.Body(&req.Body); err != nil {
		return nil, err
	}

	result, err := h.accounts.Register(ctx, req.Body.Name, req.Body.Email, req.Body.Password)
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		h.logger.Error("failed to register account", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to register account", err)
	}

	acc := result.Account

	if err := h.publishers.AccountRegistered(ctx, &events.AccountRegistered{
		AccountID:    acc.ID,
		Email:        acc.Email,
		MailSent:     result.MailErr == nil,
		RegisteredAt: acc.CreatedAt,
	}); err != nil {
		h.logger.Error("failed to publish account registered event", zap.String("accountId", acc.ID), zap.Error(err))
	}

	if result.MailErr != nil {
		h.logger.Warn("verification email not sent after registration",
			zap.String("accountId", acc.ID),
			zap.Error(result.MailErr),
		)

		return message(msgRegisteredNoMail), nil
	}

	return message(msgRegistered), nil
}

func (h *AccountHandler) VerifyEmail(ctx context.Context, req *VerifyEmailRequest) (*MessageResponse, error) {
	if err := h.validator.Body(&req.Body); err != nil {
		return nil, err
	}

	result, err := h.accounts.Verify(ctx, req.Body.Email, req.Body.Code)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			metrics.Verifications.WithLabelValues("not_found").Inc()
		case errors.Is(err, account.ErrNoPendingVerification):
			metrics.Verifications.WithLabelValues("no_pending").Inc()
		case errors.Is(err, account.ErrCodeExpired):
			metrics.Verifications.WithLabelValues("expired").Inc()
		case errors.Is(err, account.ErrInvalidCode):
			metrics.Verifications.WithLabelValues("invalid").Inc()
		default:
			h.logger.Error("failed to verify email", zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to verify email", err)
		}

		return nil, huma.Error400BadRequest(err.Error())
	}

	if result.AlreadyVerified {
		metrics.Verifications.WithLabelValues("already_verified").Inc()

		return message(msgAlreadyVerified), nil
	}

	metrics.Verifications.WithLabelValues("verified").Inc()

	if err := h.publishers.AccountVerified(ctx, &events.AccountVerified{
		AccountID:  result.Account.ID,
		Email:      result.Account.Email,
		VerifiedAt: time.Now().UTC(),
	}); err != nil {
		h.logger.Error("failed to publish account verified event",
			zap.String("accountId", result.Account.ID),
			zap.Error(err),
		)
	}

	return message(msgVerified), nil
}

func (h *AccountHandler) ResendVerification(ctx context.Context, req *ResendVerificationRequest) (*MessageResponse, error) {
	if err := h.validator.Body(&req.Body); err != nil {
		return nil, err
	}

	if _, err := h.accounts.Resend(ctx, req.Body.Email); err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound), errors.Is(err, account.ErrAlreadyVerified):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, account.ErrMailDelivery):
			h.logger.Error("failed to resend verification email", zap.Error(err))

			return nil, huma.Error500InternalServerError(account.ErrMailDelivery.Error(), err)
		default:
			h.logger.Error("failed to resend verification code", zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to resend verification code", err)
		}
	}

	return message(msgVerificationResent), nil
}

func (h *AccountHandler) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := h.validator.Body(&req.Body); err != nil {
		return nil, err
	}

	acc, err := h.accounts.Login(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) || errors.Is(err, account.ErrNotVerified) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		h.logger.Error("failed to log in", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to log in", err)
	}

	token, err := h.tokens.Issue(acc.ID, acc.Email)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.String("accountId", acc.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to issue session token", err)
	}

	resp := &LoginResponse{}
	resp.Body.Message = msgLoggedIn
	resp.Body.Token = token

	return resp, nil
}
