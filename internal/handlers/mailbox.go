package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/mail"
)

// MailboxHandler exposes messages captured by the dev mailbox.
type MailboxHandler struct {
	mailbox *mail.Mailbox
}

// NewMailboxHandler creates a dev mailbox handler.
func NewMailboxHandler(mailbox *mail.Mailbox) *MailboxHandler {
	return &MailboxHandler{mailbox: mailbox}
}

func (h *MailboxHandler) Get(_ context.Context, req *MailboxRequest) (*MailboxResponse, error) {
	captured, ok := h.mailbox.Get(req.ID)
	if !ok {
		return nil, huma.Error404NotFound("message not found")
	}

	resp := &MailboxResponse{}
	resp.Body.ID = captured.ID
	resp.Body.From = captured.Message.From
	resp.Body.To = captured.Message.To
	resp.Body.Subject = captured.Message.Subject
	resp.Body.Text = captured.Message.Text
	resp.Body.CapturedAt = captured.CapturedAt.UTC().Format(time.RFC3339)

	return resp, nil
}
