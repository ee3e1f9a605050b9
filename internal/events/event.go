package events

import "time"

const (
	TopicLinkCreated       = "link.created"
	TopicLinkAccessed      = "link.accessed"
	TopicAccountRegistered = "account.registered"
	TopicAccountVerified   = "account.verified"
)

// LinkCreated is emitted when a short link is stored.
type LinkCreated struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"originalUrl"`
	Custom      bool      `json:"custom"`
	CreatedAt   time.Time `json:"createdAt"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
}

// LinkAccessed is emitted when a short link redirects.
type LinkAccessed struct {
	Code       string    `json:"code"`
	AccessedAt time.Time `json:"accessedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
}

// AccountRegistered is emitted after an account is created.
type AccountRegistered struct {
	AccountID    string    `json:"accountId"`
	Email        string    `json:"email"`
	MailSent     bool      `json:"mailSent"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// AccountVerified is emitted when an account's email is verified.
type AccountVerified struct {
	AccountID  string    `json:"accountId"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verifiedAt"`
}
