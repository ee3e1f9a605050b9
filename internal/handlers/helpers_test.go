package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/url-shortener/internal/account"
	"github.com/serroba/url-shortener/internal/auth"
	"github.com/serroba/url-shortener/internal/events"
	"github.com/serroba/url-shortener/internal/handlers"
	"github.com/serroba/url-shortener/internal/mail"
	"github.com/serroba/url-shortener/internal/middleware"
	"github.com/serroba/url-shortener/internal/shortener"
	"github.com/serroba/url-shortener/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testBaseURL   = "http://localhost:8888"
	testCode      = "123456"
	testIndexHTML = "<html>landing</html>"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (r *recordingPublisher) Publish(topic string, _ ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.topics = append(r.topics, topic)

	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.topics...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type fixedIssuer struct{}

func (fixedIssuer) Issue(now time.Time) (account.PendingVerification, error) {
	return account.PendingVerification{Code: testCode, ExpiresAt: now.Add(account.CodeTTL)}, nil
}

type failingStore struct {
	err error
}

func (f *failingStore) Create(context.Context, *shortener.Link) error { return f.err }

func (f *failingStore) GetByCode(context.Context, shortener.Code) (*shortener.Link, error) {
	return nil, f.err
}

type serverOptions struct {
	linkStore     shortener.Repository
	generator     shortener.CodeGenerator
	displayDomain string
	noMail        bool
	publisher     *recordingPublisher
}

type testServer struct {
	router    *chi.Mux
	clock     *clock
	mailbox   *mail.Mailbox
	tokens    *auth.Manager
	publisher *recordingPublisher
	staticDir string
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	logger := zap.NewNop()

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte(testIndexHTML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{}"), 0o600))

	if opts.linkStore == nil {
		opts.linkStore = store.NewMemoryStore()
	}

	if opts.generator == nil {
		gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
		require.NoError(t, err)

		opts.generator = gen
	}

	if opts.publisher == nil {
		opts.publisher = &recordingPublisher{}
	}

	clk := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	mailbox := mail.NewMailbox(testBaseURL, logger)

	var dispatcher *mail.Dispatcher
	if opts.noMail {
		dispatcher = mail.NewDispatcher(logger, nil)
	} else {
		dispatcher = mail.NewDispatcher(logger, mailbox)
	}

	accounts, err := account.NewService(
		store.NewAccountMemoryStore(),
		account.NewBcryptHasher(bcrypt.MinCost),
		mail.NewVerificationMailer(dispatcher, logger),
		account.WithClock(clk.now),
		account.WithCodeIssuer(fixedIssuer{}),
	)
	require.NoError(t, err)

	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	static, err := handlers.NewStaticFiles(staticDir)
	require.NoError(t, err)

	validator := handlers.NewValidator()
	publishers := events.NewPublishers(opts.publisher)

	router := chi.NewMux()
	router.Use(middleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMetaMiddleware(api))

	handlers.RegisterRoutes(api, handlers.NewURLHandler(
		shortener.New(opts.linkStore, opts.generator),
		static,
		validator,
		testBaseURL,
		opts.displayDomain,
		publishers,
		logger,
	))
	handlers.RegisterAccountRoutes(api, handlers.NewAccountHandler(accounts, tokens, validator, publishers, logger))
	handlers.RegisterMailboxRoutes(api, handlers.NewMailboxHandler(mailbox))

	return &testServer{
		router:    router,
		clock:     clk,
		mailbox:   mailbox,
		tokens:    tokens,
		publisher: opts.publisher,
		staticDir: staticDir,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

func (s *testServer) post(t *testing.T, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	return s.do(t, http.MethodPost, target, body)
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()

	return s.do(t, http.MethodGet, target, nil)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}
