package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/events"
	"github.com/serroba/url-shortener/internal/metrics"
	"github.com/serroba/url-shortener/internal/middleware"
	"github.com/serroba/url-shortener/internal/shortener"
	"go.uber.org/zap"
)

const (
	notFoundBody    = "Link not found"
	textContentType = "text/plain; charset=utf-8"
)

// URLHandler handles link shortening, redirects and static assets.
type URLHandler struct {
	shortener     *shortener.Shortener
	static        *StaticFiles
	validator     *Validator
	baseURL       string
	displayDomain string
	publishers    *events.Publishers
	logger        *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	s *shortener.Shortener,
	static *StaticFiles,
	validator *Validator,
	baseURL string,
	displayDomain string,
	publishers *events.Publishers,
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		shortener:     s,
		static:        static,
		validator:     validator,
		baseURL:       strings.TrimRight(baseURL, "/"),
		displayDomain: strings.TrimRight(displayDomain, "/"),
		publishers:    publishers,
		logger:        logger,
	}
}

func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	if err := h.validator.Body(&req.Body); err != nil {
		return nil, err
	}

	link, kind, err := h.shortener.Shorten(ctx, req.Body.OriginalURL, shortener.Code(req.Body.CustomID))
	if err != nil {
		if errors.Is(err, shortener.ErrDuplicateCode) {
			return nil, huma.Error400BadRequest("custom id already in use")
		}

		h.logger.Error("failed to shorten url", zap.String("customId", req.Body.CustomID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to save link", err)
	}

	metrics.LinksCreated.WithLabelValues(string(kind)).Inc()

	meta := middleware.RequestMetaFromContext(ctx)
	event := &events.LinkCreated{
		Code:        string(link.Code),
		OriginalURL: link.OriginalURL,
		Custom:      kind == shortener.KindCustom,
		CreatedAt:   link.CreatedAt,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
	}

	if err := h.publishers.LinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &ShortenResponse{}
	resp.Body.ShortURL = h.baseURL + link.Path()
	resp.Body.ShortPath = link.Path()

	if h.displayDomain != "" {
		resp.Body.DisplayURL = h.displayDomain + link.Path()
	}

	return resp, nil
}

// Redirect serves a static asset when the segment has a file extension and
// otherwise redirects to the link's original URL.
func (h *URLHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RawResponse, error) {
	if IsAsset(req.ShortID) {
		return h.serveStatic(req.ShortID)
	}

	link, err := h.shortener.Resolve(ctx, shortener.Code(req.ShortID))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return &RawResponse{
				Status:      http.StatusNotFound,
				ContentType: textContentType,
				Body:        []byte(notFoundBody),
			}, nil
		}

		h.logger.Error("failed to resolve link", zap.String("code", req.ShortID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to get link", err)
	}

	meta := middleware.RequestMetaFromContext(ctx)
	event := &events.LinkAccessed{
		Code:       req.ShortID,
		AccessedAt: time.Now().UTC(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err := h.publishers.LinkAccessed(ctx, event); err != nil {
		h.logger.Error("failed to publish link accessed event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return &RawResponse{Status: http.StatusFound, Location: link.OriginalURL}, nil
}

// Landing serves the index page.
func (h *URLHandler) Landing(_ context.Context, _ *struct{}) (*RawResponse, error) {
	return h.serveStatic("index.html")
}

func (h *URLHandler) serveStatic(name string) (*RawResponse, error) {
	data, contentType, err := h.static.Read(name)
	if err != nil {
		switch {
		case errors.Is(err, ErrOutsideRoot):
			h.logger.Warn("rejected static path outside root", zap.String("path", name))

			return nil, huma.Error400BadRequest("invalid path")
		case errors.Is(err, ErrFileNotFound):
			return nil, huma.Error404NotFound("file not found")
		default:
			return nil, huma.Error500InternalServerError("failed to read file", err)
		}
	}

	return &RawResponse{Status: http.StatusOK, ContentType: contentType, Body: data}, nil
}
