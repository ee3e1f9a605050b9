package mail_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serroba/url-shortener/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	name       string
	configured bool
	err        error
	sent       []*mail.Message
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Send(_ context.Context, msg *mail.Message) (*mail.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.sent = append(f.sent, msg)

	return &mail.Receipt{Transport: f.name}, nil
}

func testMessage() *mail.Message {
	return &mail.Message{To: "ada@example.com", Subject: "hi", Text: "hello"}
}

func TestDispatcher(t *testing.T) {
	logger := zap.NewNop()

	t.Run("uses first configured provider", func(t *testing.T) {
		first := &fakeProvider{name: "first", configured: true}
		second := &fakeProvider{name: "second", configured: true}
		fallback := &fakeProvider{name: "fallback", configured: true}

		d := mail.NewDispatcher(logger, fallback, first, second)

		receipt, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
		assert.Equal(t, "first", receipt.Transport)
		assert.Len(t, first.sent, 1)
		assert.Empty(t, second.sent)
		assert.Equal(t, []string{"first", "second"}, d.Transports())
	})

	t.Run("skips unconfigured providers", func(t *testing.T) {
		unset := &fakeProvider{name: "unset"}
		relay := &fakeProvider{name: "relay", configured: true}

		d := mail.NewDispatcher(logger, nil, unset, relay)

		receipt, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
		assert.Equal(t, "relay", receipt.Transport)
		assert.Equal(t, []string{"relay"}, d.Transports())
	})

	t.Run("falls back to next provider on failure", func(t *testing.T) {
		broken := &fakeProvider{name: "broken", configured: true, err: errors.New("auth failed")}
		relay := &fakeProvider{name: "relay", configured: true}

		d := mail.NewDispatcher(logger, nil, broken, relay)

		receipt, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
		assert.Equal(t, "relay", receipt.Transport)
	})

	t.Run("fallback used only when nothing is configured", func(t *testing.T) {
		fallback := &fakeProvider{name: "fallback", configured: true}
		d := mail.NewDispatcher(logger, fallback, &fakeProvider{name: "unset"})

		receipt, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
		assert.Equal(t, "fallback", receipt.Transport)

		broken := &fakeProvider{name: "broken", configured: true, err: errors.New("down")}
		d = mail.NewDispatcher(logger, fallback, broken)

		_, err = d.Send(context.Background(), testMessage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken: down")
	})

	t.Run("joins errors when all providers fail", func(t *testing.T) {
		errA := errors.New("a failed")
		errB := errors.New("b failed")
		d := mail.NewDispatcher(logger, nil,
			&fakeProvider{name: "a", configured: true, err: errA},
			&fakeProvider{name: "b", configured: true, err: errB},
		)

		_, err := d.Send(context.Background(), testMessage())
		require.Error(t, err)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
	})

	t.Run("no providers", func(t *testing.T) {
		d := mail.NewDispatcher(logger, nil)

		_, err := d.Send(context.Background(), testMessage())
		assert.ErrorIs(t, err, mail.ErrNoTransport)
	})
}

func TestMailbox(t *testing.T) {
	box := mail.NewMailbox("http://localhost:8888", zap.NewNop())

	assert.Equal(t, "mailbox", box.Name())
	assert.True(t, box.Configured())

	receipt, err := box.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "mailbox", receipt.Transport)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Equal(t, "http://localhost:8888/dev/mailbox/"+receipt.MessageID, receipt.PreviewURL)

	captured, ok := box.Get(receipt.MessageID)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", captured.Message.To)
	assert.Equal(t, "no-reply@localhost", captured.Message.From)
	assert.Equal(t, 1, box.Len())

	_, ok = box.Get("missing")
	assert.False(t, ok)
}

func TestMailbox_EvictsOldest(t *testing.T) {
	box := mail.NewMailbox("", zap.NewNop())

	first, err := box.Send(context.Background(), testMessage())
	require.NoError(t, err)

	for range 100 {
		_, err := box.Send(context.Background(), testMessage())
		require.NoError(t, err)
	}

	assert.Equal(t, 100, box.Len())

	_, ok := box.Get(first.MessageID)
	assert.False(t, ok)
}

func tokenServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-me", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func oauthConfig(tokenURL string) mail.OAuth2Config {
	return mail.OAuth2Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-me",
		Sender:       "sender@example.com",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuth2Provider(t *testing.T) {
	t.Run("configured requires all credentials", func(t *testing.T) {
		assert.False(t, mail.NewOAuth2Provider(mail.OAuth2Config{ClientID: "id"}).Configured())
		assert.True(t, mail.NewOAuth2Provider(oauthConfig("http://unused")).Configured())
	})

	t.Run("exchanges refresh token", func(t *testing.T) {
		srv := tokenServer(t, http.StatusOK, `{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600}`)

		token, err := mail.NewOAuth2Provider(oauthConfig(srv.URL)).AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ya29.fresh", token)
	})

	t.Run("rejected refresh token", func(t *testing.T) {
		srv := tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)

		_, err := mail.NewOAuth2Provider(oauthConfig(srv.URL)).AccessToken(context.Background())
		assert.Error(t, err)
	})

	t.Run("setup failure falls back to next provider", func(t *testing.T) {
		srv := tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
		relay := &fakeProvider{name: "relay", configured: true}

		d := mail.NewDispatcher(zap.NewNop(), nil, mail.NewOAuth2Provider(oauthConfig(srv.URL)), relay)

		receipt, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
		assert.Equal(t, "relay", receipt.Transport)
		assert.Len(t, relay.sent, 1)
	})
}

func TestSMTPProvider_Configured(t *testing.T) {
	assert.False(t, mail.NewSMTPProvider(mail.SMTPConfig{Host: "smtp.example.com"}).Configured())
	assert.True(t, mail.NewSMTPProvider(mail.SMTPConfig{Host: "smtp.example.com", Username: "u"}).Configured())
}

func TestVerificationMailer(t *testing.T) {
	t.Run("renders code and validity", func(t *testing.T) {
		box := mail.NewMailbox("", zap.NewNop())
		mailer := mail.NewVerificationMailer(box, zap.NewNop())

		msg, err := mailer.Render("Ada", "ada@example.com", "123456", time.Now().Add(15*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", msg.To)
		assert.Equal(t, "Verify your email", msg.Subject)
		assert.Contains(t, msg.Text, "Hello Ada")
		assert.Contains(t, msg.Text, "123456")
		assert.Contains(t, msg.Text, "15 minutes")
	})

	t.Run("sends through sender", func(t *testing.T) {
		box := mail.NewMailbox("", zap.NewNop())
		mailer := mail.NewVerificationMailer(box, zap.NewNop())

		err := mailer.SendVerificationCode(context.Background(), "Ada", "ada@example.com", "654321", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, box.Len())
	})

	t.Run("propagates send failure", func(t *testing.T) {
		mailer := mail.NewVerificationMailer(mail.NewDispatcher(zap.NewNop(), nil), zap.NewNop())

		err := mailer.SendVerificationCode(context.Background(), "Ada", "ada@example.com", "654321", time.Now().Add(time.Minute))
		assert.ErrorIs(t, err, mail.ErrNoTransport)
	})
}

func TestOAuth2Provider_Profile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.fresh" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = w.Write([]byte(`{"emailAddress":"sender@example.com","messagesTotal":7,"threadsTotal":3,"historyId":"42"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := oauthConfig(srv.URL + "/token")
	cfg.ProfileURL = srv.URL + "/profile"

	profile, err := mail.NewOAuth2Provider(cfg).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", profile.EmailAddress)
	assert.Equal(t, 7, profile.MessagesTotal)
	assert.Equal(t, "42", profile.HistoryID)

	t.Run("non ok status", func(t *testing.T) {
		cfg := oauthConfig(srv.URL + "/token")
		cfg.ProfileURL = srv.URL + "/missing"

		_, err := mail.NewOAuth2Provider(cfg).Profile(context.Background())
		assert.ErrorContains(t, err, "unexpected status 404")
	})
}

func TestOAuth2Provider_ExchangeCode(t *testing.T) {
	newServer := func(t *testing.T, body string) *httptest.Server {
		t.Helper()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
			assert.Equal(t, "the-code", r.Form.Get("code"))
			assert.Equal(t, "http://localhost:3001/callback", r.Form.Get("redirect_uri"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		t.Cleanup(srv.Close)

		return srv
	}

	t.Run("returns refresh token", func(t *testing.T) {
		srv := newServer(t, `{"access_token":"a","refresh_token":"1//long-lived","token_type":"Bearer"}`)

		token, err := mail.NewOAuth2Provider(oauthConfig(srv.URL)).
			ExchangeCode(context.Background(), "http://localhost:3001/callback", "the-code")
		require.NoError(t, err)
		assert.Equal(t, "1//long-lived", token)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		srv := newServer(t, `{"access_token":"a","token_type":"Bearer"}`)

		_, err := mail.NewOAuth2Provider(oauthConfig(srv.URL)).
			ExchangeCode(context.Background(), "http://localhost:3001/callback", "the-code")
		assert.ErrorIs(t, err, mail.ErrNoRefreshToken)
	})

	t.Run("consent url requests offline access", func(t *testing.T) {
		cfg := oauthConfig("http://unused/token")
		cfg.Endpoint.AuthURL = "https://accounts.example.com/auth"

		u := mail.NewOAuth2Provider(cfg).AuthCodeURL("http://localhost:3001/callback", "xyz")

		assert.Contains(t, u, "https://accounts.example.com/auth?")
		assert.Contains(t, u, "access_type=offline")
		assert.Contains(t, u, "prompt=consent")
		assert.Contains(t, u, "state=xyz")
	})
}
