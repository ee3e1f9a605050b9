package mail

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMailboxCapacity = 100

// CapturedMessage is a message held by the dev mailbox.
type CapturedMessage struct {
	ID         string    `json:"id"`
	Message    Message   `json:"message"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Mailbox captures messages in memory instead of delivering them. It keeps the
// most recent messages up to its capacity.
type Mailbox struct {
	mu          sync.Mutex
	messages    map[string]CapturedMessage
	order       []string
	capacity    int
	previewBase string
	logger      *zap.Logger
	now         func() time.Time
}

// NewMailbox creates a dev mailbox whose preview links are rooted at previewBase.
func NewMailbox(previewBase string, logger *zap.Logger) *Mailbox {
	return &Mailbox{
		messages:    make(map[string]CapturedMessage),
		capacity:    defaultMailboxCapacity,
		previewBase: previewBase,
		logger:      logger,
		now:         time.Now,
	}
}

func (m *Mailbox) Name() string { return "mailbox" }

func (m *Mailbox) Configured() bool { return true }

func (m *Mailbox) Send(_ context.Context, msg *Message) (*Receipt, error) {
	id := uuid.NewString()
	captured := CapturedMessage{ID: id, Message: *msg, CapturedAt: m.now()}

	if captured.Message.From == "" {
		captured.Message.From = "no-reply@localhost"
	}

	m.mu.Lock()
	m.messages[id] = captured
	m.order = append(m.order, id)

	for len(m.order) > m.capacity {
		delete(m.messages, m.order[0])
		m.order = m.order[1:]
	}
	m.mu.Unlock()

	preview := m.PreviewURL(id)

	m.logger.Info("message captured in dev mailbox",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("preview", preview),
	)

	return &Receipt{Transport: m.Name(), MessageID: id, PreviewURL: preview}, nil
}

// PreviewURL returns where a captured message can be viewed.
func (m *Mailbox) PreviewURL(id string) string {
	return m.previewBase + "/dev/mailbox/" + id
}

// Get returns a captured message by id.
func (m *Mailbox) Get(id string) (CapturedMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]

	return msg, ok
}

// Len returns the number of messages currently held.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.order)
}
