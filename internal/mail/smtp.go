package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

const defaultSMTPPort = 587

// SMTPConfig configures a conventional authenticated relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Secure selects implicit TLS (usually port 465) instead of STARTTLS.
	Secure bool
}

// SMTPProvider delivers mail through an authenticated SMTP relay.
type SMTPProvider struct {
	cfg SMTPConfig
}

// NewSMTPProvider creates a relay provider.
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}

	return &SMTPProvider{cfg: cfg}
}

func (s *SMTPProvider) Name() string { return "smtp" }

func (s *SMTPProvider) Configured() bool {
	return s.cfg.Host != "" && s.cfg.Username != ""
}

func (s *SMTPProvider) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	m, err := buildMsg(msg, firstNonEmpty(s.cfg.From, s.cfg.Username))
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	}

	if s.cfg.Secure {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, fmt.Errorf("send via smtp: %w", err)
	}

	return &Receipt{Transport: s.Name()}, nil
}

func buildMsg(msg *Message, defaultFrom string) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	if err := m.From(firstNonEmpty(msg.From, defaultFrom)); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)

	return m, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
