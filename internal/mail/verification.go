package mail

import (
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
)

const verificationSubject = "Verify your email"

var verificationTemplate = template.Must(template.New("verification").Parse(
	`Hello {{.Name}},

Your verification code is {{.Code}}.
It is valid for {{.Minutes}} minutes.

If you did not create an account, you can ignore this email.
`))

// Sender sends a single message.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// VerificationMailer renders and sends verification-code emails.
type VerificationMailer struct {
	sender Sender
	logger *zap.Logger
	now    func() time.Time
}

// NewVerificationMailer creates a mailer that delivers through sender.
func NewVerificationMailer(sender Sender, logger *zap.Logger) *VerificationMailer {
	return &VerificationMailer{sender: sender, logger: logger, now: time.Now}
}

type verificationData struct {
	Name    string
	Code    string
	Minutes int
}

// Render builds the verification message without sending it.
func (v *VerificationMailer) Render(name, email, code string, expiresAt time.Time) (*Message, error) {
	minutes := int(math.Ceil(expiresAt.Sub(v.now()).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	var body strings.Builder
	if err := verificationTemplate.Execute(&body, verificationData{Name: name, Code: code, Minutes: minutes}); err != nil {
		return nil, fmt.Errorf("render verification email: %w", err)
	}

	return &Message{To: email, Subject: verificationSubject, Text: body.String()}, nil
}

// SendVerificationCode delivers a verification code to the account owner.
func (v *VerificationMailer) SendVerificationCode(ctx context.Context, name, email, code string, expiresAt time.Time) error {
	msg, err := v.Render(name, email, code, expiresAt)
	if err != nil {
		return err
	}

	receipt, err := v.sender.Send(ctx, msg)
	if err != nil {
		return err
	}

	fields := []zap.Field{zap.String("to", email), zap.String("transport", receipt.Transport)}
	if receipt.PreviewURL != "" {
		fields = append(fields, zap.String("preview", receipt.PreviewURL))
	}

	v.logger.Debug("verification email sent", fields...)

	return nil
}
