package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/url-shortener/internal/account"
	"github.com/serroba/url-shortener/internal/auth"
	"github.com/serroba/url-shortener/internal/events"
	"github.com/serroba/url-shortener/internal/handlers"
	"github.com/serroba/url-shortener/internal/health"
	"github.com/serroba/url-shortener/internal/mail"
	"github.com/serroba/url-shortener/internal/middleware"
	"github.com/serroba/url-shortener/internal/ratelimit"
	"github.com/serroba/url-shortener/internal/shortener"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		router := chi.NewMux()
		router.Use(middleware.RequestID, middleware.AccessLog(logger), middleware.Metrics)
		router.Handle("/metrics", promhttp.Handler())

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(middleware.RequestMetaMiddleware(api))

		if opts.RateLimit {
			api.UseMiddleware(middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				logger,
			))
		}

		static, err := handlers.NewStaticFiles(opts.StaticDir)
		if err != nil {
			return nil, err
		}

		validator := handlers.NewValidator()
		publishers := do.MustInvoke[*events.Publishers](i)

		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))

		handlers.RegisterRoutes(api, handlers.NewURLHandler(
			do.MustInvoke[*shortener.Shortener](i),
			static,
			validator,
			baseURL(opts),
			opts.DisplayDomain,
			publishers,
			logger,
		))

		handlers.RegisterAccountRoutes(api, handlers.NewAccountHandler(
			do.MustInvoke[*account.Service](i),
			do.MustInvoke[*auth.Manager](i),
			validator,
			publishers,
			logger,
		))

		if DevMailboxActive(do.MustInvoke[*mail.Dispatcher](i)) {
			handlers.RegisterMailboxRoutes(api, handlers.NewMailboxHandler(do.MustInvoke[*mail.Mailbox](i)))
			logger.Warn("no mail transport configured, verification codes are captured in the dev mailbox")
		}

		return api, nil
	})
}
