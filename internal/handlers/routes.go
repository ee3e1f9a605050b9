package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/ratelimit"
)

// authLimit applies the stricter auth scope to endpoints that check secrets.
var authLimit = map[string]any{
	ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeAuth},
}

// RegisterRoutes registers link and landing page routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "shorten",
		Method:      http.MethodPost,
		Path:        "/shorten",
		Summary:     "Create short link",
		Description: "Creates a short link, using the custom id when one is given.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, urlHandler.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "landing",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Landing page",
		Tags:        []string{"Static"},
	}, urlHandler.Landing)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{shortId}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL for a short id, or serves a static file when the segment has an extension.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, urlHandler.Redirect)
}

// RegisterAccountRoutes registers registration, verification and login routes.
func RegisterAccountRoutes(api huma.API, accountHandler *AccountHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/register",
		Summary:       "Register account",
		Description:   "Creates an account pending email verification and mails a verification code.",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusCreated,
		Metadata:      authLimit,
	}, accountHandler.Register)

	huma.Register(api, huma.Operation{
		OperationID: "verify-email",
		Method:      http.MethodPost,
		Path:        "/verify-email",
		Summary:     "Verify email",
		Tags:        []string{"Accounts"},
		Metadata:    authLimit,
	}, accountHandler.VerifyEmail)

	huma.Register(api, huma.Operation{
		OperationID: "resend-verification",
		Method:      http.MethodPost,
		Path:        "/resend-verification",
		Summary:     "Resend verification code",
		Tags:        []string{"Accounts"},
		Metadata:    authLimit,
	}, accountHandler.ResendVerification)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/login",
		Summary:     "Log in",
		Description: "Returns a session token for a verified account.",
		Tags:        []string{"Accounts"},
		Metadata:    authLimit,
	}, accountHandler.Login)
}

// RegisterMailboxRoutes exposes the dev mailbox. Only registered when mail is
// captured instead of delivered.
func RegisterMailboxRoutes(api huma.API, mailboxHandler *MailboxHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-mailbox",
		Method:      http.MethodGet,
		Path:        "/dev/mailbox/{id}",
		Summary:     "Show captured email",
		Tags:        []string{"Development"},
	}, mailboxHandler.Get)
}
