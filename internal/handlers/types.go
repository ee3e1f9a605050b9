package handlers

// Request fields are optional to huma so that missing values reach the
// validator and come back as 400s with per-field details.

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		OriginalURL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"originalUrl,omitempty" validate:"required,max=2048"`
		CustomID    string `doc:"Optional custom short id" example:"my-link" json:"customId,omitempty" validate:"omitempty,max=64,shortid,notreserved"`
	}
}

// ShortenResponse is the response for a successfully created short link.
type ShortenResponse struct {
	Body struct {
		ShortURL   string `doc:"The full short URL" example:"http://localhost:8888/abc123" json:"shortUrl"`
		ShortPath  string `doc:"The short link path" example:"/abc123" json:"shortPath"`
		DisplayURL string `doc:"The short URL on the display domain" example:"sho.rt/abc123" json:"displayUrl,omitempty"`
	}
}

// RedirectRequest resolves a short id or a static asset name.
type RedirectRequest struct {
	ShortID string `doc:"The short id, or a static file name" example:"abc123" path:"shortId"`
}

// RawResponse is a redirect or a raw body with an explicit content type.
type RawResponse struct {
	Status      int
	Location    string `header:"Location"`
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Body struct {
		Name     string `doc:"Display name" example:"Ada" json:"name,omitempty" validate:"required,max=100"`
		Email    string `doc:"Email address" example:"ada@example.com" json:"email,omitempty" validate:"required,email,max=254"`
		Password string `doc:"Password" json:"password,omitempty" validate:"required,max=72"`
	}
}

// VerifyEmailRequest submits a verification code.
type VerifyEmailRequest struct {
	Body struct {
		Email string `doc:"Email address" example:"ada@example.com" json:"email,omitempty" validate:"required"`
		Code  string `doc:"Six digit verification code" example:"123456" json:"code,omitempty" validate:"required"`
	}
}

// ResendVerificationRequest asks for a new verification code.
type ResendVerificationRequest struct {
	Body struct {
		Email string `doc:"Email address" example:"ada@example.com" json:"email,omitempty" validate:"required"`
	}
}

// LoginRequest authenticates a verified account.
type LoginRequest struct {
	Body struct {
		Email    string `doc:"Email address" example:"ada@example.com" json:"email,omitempty" validate:"required"`
		Password string `doc:"Password" json:"password,omitempty" validate:"required"`
	}
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Body struct {
		Message string `doc:"Outcome of the request" json:"message"`
	}
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Body struct {
		Message string `doc:"Outcome of the request" json:"message"`
		Token   string `doc:"HS256 session token" json:"token"`
	}
}

// MailboxRequest fetches a captured dev mailbox message.
type MailboxRequest struct {
	ID string `doc:"Captured message id" path:"id"`
}

// MailboxResponse is a captured dev mailbox message.
type MailboxResponse struct {
	Body struct {
		ID         string `json:"id"`
		From       string `json:"from"`
		To         string `json:"to"`
		Subject    string `json:"subject"`
		Text       string `json:"text"`
		CapturedAt string `json:"capturedAt"`
	}
}
