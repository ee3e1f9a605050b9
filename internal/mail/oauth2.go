package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	gmailScope        = "https://mail.google.com/"
	defaultProfileURL = "https://gmail.googleapis.com/gmail/v1/users/me/profile"
)

var (
	ErrNoAccessToken  = errors.New("token endpoint returned no access token")
	ErrNoRefreshToken = errors.New("token endpoint returned no refresh token")
)

// OAuth2Config configures XOAUTH2 delivery with a long-lived refresh token.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Sender       string
	// Host and Port default to Gmail's submission endpoint.
	Host string
	Port int
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// ProfileURL defaults to the Gmail users.getProfile endpoint.
	ProfileURL string
}

// OAuth2Provider delivers mail over SMTP authenticated with a fresh OAuth2 access
// token. Tokens are exchanged on every send and never cached.
type OAuth2Provider struct {
	cfg OAuth2Config
}

// NewOAuth2Provider creates an OAuth2 provider.
func NewOAuth2Provider(cfg OAuth2Config) *OAuth2Provider {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}

	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}

	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}

	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}

	return &OAuth2Provider{cfg: cfg}
}

func (o *OAuth2Provider) Name() string { return "oauth2" }

func (o *OAuth2Provider) Configured() bool {
	return o.cfg.ClientID != "" && o.cfg.ClientSecret != "" && o.cfg.RefreshToken != "" && o.cfg.Sender != ""
}

func (o *OAuth2Provider) config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		Endpoint:     o.cfg.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{gmailScope},
	}
}

// AccessToken exchanges the refresh token for a new access token.
func (o *OAuth2Provider) AccessToken(ctx context.Context) (string, error) {
	tok, err := o.config("").TokenSource(ctx, &oauth2.Token{RefreshToken: o.cfg.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("exchange refresh token: %w", err)
	}

	if tok.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	return tok.AccessToken, nil
}

func (o *OAuth2Provider) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	accessToken, err := o.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	m, err := buildMsg(msg, o.cfg.Sender)
	if err != nil {
		return nil, err
	}

	client, err := gomail.NewClient(o.cfg.Host,
		gomail.WithPort(o.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthXOAUTH2),
		gomail.WithUsername(o.cfg.Sender),
		gomail.WithPassword(accessToken),
	)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, fmt.Errorf("send via oauth2 smtp: %w", err)
	}

	return &Receipt{Transport: o.Name()}, nil
}

// AuthCodeURL returns the consent page URL that yields a code for ExchangeCode.
// Offline access with forced consent makes the endpoint issue a refresh token.
func (o *OAuth2Provider) AuthCodeURL(redirectURL, state string) string {
	return o.config(redirectURL).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a long-lived refresh token.
func (o *OAuth2Provider) ExchangeCode(ctx context.Context, redirectURL, code string) (string, error) {
	tok, err := o.config(redirectURL).Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}

	if tok.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	return tok.RefreshToken, nil
}

// Profile is the mailbox the refresh token belongs to.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int    `json:"messagesTotal"`
	ThreadsTotal  int    `json:"threadsTotal"`
	HistoryID     string `json:"historyId"`
}

// Profile fetches the Gmail profile of the account behind the refresh token.
func (o *OAuth2Provider) Profile(ctx context.Context) (*Profile, error) {
	client := oauth2.NewClient(ctx, o.config("").TokenSource(ctx, &oauth2.Token{RefreshToken: o.cfg.RefreshToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &profile, nil
}
