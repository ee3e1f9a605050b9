package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/url-shortener/internal/metrics"
	"go.uber.org/zap"
)

var ErrNoTransport = errors.New("no mail transport configured")

// Message is an outgoing email. An empty From is filled in by the transport.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Receipt describes a message accepted by a transport.
type Receipt struct {
	Transport  string
	MessageID  string
	PreviewURL string // set only by transports that capture instead of deliver
}

// Provider is a mail transport the dispatcher can try.
type Provider interface {
	Name() string
	// Configured reports whether the provider has the settings it needs.
	Configured() bool
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// Dispatcher sends messages through the first configured provider that succeeds.
type Dispatcher struct {
	providers []Provider
	logger    *zap.Logger
}

// NewDispatcher keeps the configured providers in priority order. The fallback
// provider is used only when none of them is configured.
func NewDispatcher(logger *zap.Logger, fallback Provider, providers ...Provider) *Dispatcher {
	d := &Dispatcher{logger: logger}

	for _, p := range providers {
		if p.Configured() {
			d.providers = append(d.providers, p)
		}
	}

	if len(d.providers) == 0 && fallback != nil {
		d.providers = append(d.providers, fallback)
	}

	return d
}

// Transports returns the provider names in the order they are tried.
func (d *Dispatcher) Transports() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.Name())
	}

	return names
}

// Send tries each provider in turn, falling back on any failure. The returned
// error joins every provider's failure.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if len(d.providers) == 0 {
		return nil, ErrNoTransport
	}

	var errs []error

	for _, p := range d.providers {
		receipt, err := p.Send(ctx, msg)
		if err == nil {
			metrics.MailDispatch.WithLabelValues(p.Name(), "sent").Inc()
			d.logger.Info("mail sent",
				zap.String("transport", p.Name()),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
			)

			return receipt, nil
		}

		metrics.MailDispatch.WithLabelValues(p.Name(), "failed").Inc()
		d.logger.Warn("mail transport failed, trying next",
			zap.String("transport", p.Name()),
			zap.String("to", msg.To),
			zap.Error(err),
		)

		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return nil, errors.Join(errs...)
}
