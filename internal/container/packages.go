package container

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/url-shortener/internal/account"
	"github.com/serroba/url-shortener/internal/auth"
	"github.com/serroba/url-shortener/internal/events"
	eventstore "github.com/serroba/url-shortener/internal/events/store"
	"github.com/serroba/url-shortener/internal/health"
	"github.com/serroba/url-shortener/internal/mail"
	"github.com/serroba/url-shortener/internal/messaging"
	"github.com/serroba/url-shortener/internal/ratelimit"
	"github.com/serroba/url-shortener/internal/shortener"
	"github.com/serroba/url-shortener/internal/store"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const startupTimeout = 5 * time.Second

var ErrNoPostgresDSN = errors.New("postgres store selected without a DSN")

func ResourcesPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*Resources, error) {
		return &Resources{}, nil
	})
}

func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		logger, closeFile, err := NewLogger(LogConfig{
			Level:      opts.LogLevel,
			Format:     opts.LogFormat,
			File:       opts.LogFile,
			MaxSizeMB:  opts.LogMaxSizeMB,
			MaxBackups: opts.LogMaxBackups,
			MaxAgeDays: opts.LogMaxAgeDays,
		})
		if err != nil {
			return nil, err
		}

		do.MustInvoke[*Resources](i).Add(closeFile)

		return logger, nil
	})
}

// RedisPackage provides a *redis.Client, or nil when no address is configured.
// An unreachable server is logged and the client kept so it can recover.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.RedisAddr == "" {
			logger.Info("redis disabled")

			return nil, nil
		}

		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", zap.String("addr", opts.RedisAddr), zap.Error(err))
		}

		do.MustInvoke[*Resources](i).Add(client.Close)

		return client, nil
	})
}

func MongoPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*mongo.Client, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		client, err := mongo.Connect(options.Client().ApplyURI(opts.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err := client.Ping(ctx, nil); err != nil {
			logger.Error("mongo ping failed", zap.Error(err))
		}

		do.MustInvoke[*Resources](i).Add(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
			defer cancel()

			return client.Disconnect(ctx)
		})

		return client, nil
	})

	do.Provide(injector, func(i *do.Injector) (*mongo.Database, error) {
		opts := do.MustInvoke[*Options](i)

		return do.MustInvoke[*mongo.Client](i).Database(opts.MongoDatabase), nil
	})
}

func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PostgresDSN == "" {
			return nil, ErrNoPostgresDSN
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		if err := store.Migrate(ctx, pool); err != nil {
			logger.Error("postgres migration failed", zap.Error(err))
		}

		do.MustInvoke[*Resources](i).Add(func() error {
			pool.Close()

			return nil
		})

		return pool, nil
	})
}

// RepositoryPackage selects the link and account stores for the configured
// backend. Links are fronted by the Redis cache when Redis is available.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var links shortener.Repository

		switch opts.Store {
		case StoreMemory:
			links = store.NewMemoryStore()
		case StorePostgres:
			links = store.NewPostgresStore(do.MustInvoke[*pgxpool.Pool](i))
		case StoreMongo:
			mongoStore := store.NewMongoStore(do.MustInvoke[*mongo.Database](i))
			ensureIndexes(logger, "links", mongoStore.EnsureIndexes)
			links = mongoStore
		default:
			return nil, fmt.Errorf("unknown store backend %q", opts.Store)
		}

		client := do.MustInvoke[*redis.Client](i)
		if client == nil {
			return links, nil
		}

		ttl := time.Duration(opts.CacheTTLMinutes) * time.Minute

		return store.NewRedisCacheRepository(links, client, ttl, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (account.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case StoreMemory:
			return store.NewAccountMemoryStore(), nil
		case StorePostgres:
			return store.NewPostgresAccountStore(do.MustInvoke[*pgxpool.Pool](i)), nil
		case StoreMongo:
			accounts := store.NewMongoAccountStore(do.MustInvoke[*mongo.Database](i))
			ensureIndexes(do.MustInvoke[*zap.Logger](i), "accounts", accounts.EnsureIndexes)

			return accounts, nil
		default:
			return nil, fmt.Errorf("unknown store backend %q", opts.Store)
		}
	})
}

func ensureIndexes(logger *zap.Logger, collection string, ensure func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := ensure(ctx); err != nil {
		logger.Error("failed to ensure indexes", zap.String("collection", collection), zap.Error(err))
	}
}

func ShortenerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Shortener, error) {
		opts := do.MustInvoke[*Options](i)

		generator, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		return shortener.New(do.MustInvoke[shortener.Repository](i), generator), nil
	})
}

func OAuth2Config(opts *Options) mail.OAuth2Config {
	return mail.OAuth2Config{
		ClientID:     opts.GoogleClientID,
		ClientSecret: opts.GoogleClientSecret,
		RefreshToken: opts.GoogleRefreshToken,
		Sender:       firstNonEmpty(opts.MailFrom, opts.SMTPUsername),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// MailPackage provides the dispatcher, preferring OAuth2 then the SMTP relay,
// and capturing mail in the dev mailbox when neither is configured.
func MailPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*mail.Mailbox, error) {
		opts := do.MustInvoke[*Options](i)

		return mail.NewMailbox(baseURL(opts), do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*mail.OAuth2Provider, error) {
		return mail.NewOAuth2Provider(OAuth2Config(do.MustInvoke[*Options](i))), nil
	})

	do.Provide(injector, func(i *do.Injector) (*mail.Dispatcher, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		smtp := mail.NewSMTPProvider(mail.SMTPConfig{
			Host:     opts.SMTPHost,
			Port:     opts.SMTPPort,
			Username: opts.SMTPUsername,
			Password: opts.SMTPPassword,
			From:     opts.MailFrom,
			Secure:   opts.SMTPSecure,
		})

		dispatcher := mail.NewDispatcher(logger,
			do.MustInvoke[*mail.Mailbox](i),
			do.MustInvoke[*mail.OAuth2Provider](i),
			smtp,
		)

		logger.Info("mail transports", zap.Strings("transports", dispatcher.Transports()))

		return dispatcher, nil
	})
}

// DevMailboxActive reports whether mail is captured rather than delivered.
func DevMailboxActive(dispatcher *mail.Dispatcher) bool {
	transports := dispatcher.Transports()

	return len(transports) == 1 && transports[0] == "mailbox"
}

func AccountPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*account.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		notifier := mail.NewVerificationMailer(do.MustInvoke[*mail.Dispatcher](i), logger)

		return account.NewService(
			do.MustInvoke[account.Repository](i),
			account.NewBcryptHasher(opts.BcryptCost),
			notifier,
		)
	})
}

func AuthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*auth.Manager, error) {
		opts := do.MustInvoke[*Options](i)

		secret := opts.JWTSecret
		if secret == "" {
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("generate session secret: %w", err)
			}

			secret = hex.EncodeToString(buf)

			do.MustInvoke[*zap.Logger](i).Warn("no JWT secret configured, session tokens will not survive a restart")
		}

		return auth.NewManager(secret, time.Duration(opts.JWTTTLHours)*time.Hour)
	})
}

func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		policy := ratelimit.NewPolicy(ratelimit.PolicyConfig{
			GlobalPerMinute: int64(opts.GlobalPerMinute),
			ReadPerMinute:   int64(opts.ReadPerMinute),
			WritePerMinute:  int64(opts.WritePerMinute),
			AuthPerMinute:   int64(opts.AuthPerMinute),
			AuthPerHour:     int64(opts.AuthPerHour),
		})

		var limitStore ratelimit.Store = store.NewRateLimitMemoryStore()
		if client := do.MustInvoke[*redis.Client](i); client != nil {
			limitStore = store.NewRateLimitRedisStore(client)
		}

		return ratelimit.NewPolicyLimiter(limitStore, policy), nil
	})
}

// EventsPackage provides the in-process bus used when Redis is disabled. The
// same instance serves as publisher and subscriber.
func EventsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		return messaging.NewInProcess(do.MustInvoke[*zap.Logger](i)), nil
	})
}

func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		var publisher message.Publisher

		if client := do.MustInvoke[*redis.Client](i); client != nil {
			p, err := messaging.NewRedisPublisher(client, do.MustInvoke[*zap.Logger](i))
			if err != nil {
				return nil, err
			}

			publisher = p
		} else {
			publisher = do.MustInvoke[*gochannel.GoChannel](i)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (*events.Publishers, error) {
		return events.NewPublishers(do.MustInvoke[*messaging.PublisherGroup](i).Publisher()), nil
	})
}

func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var subscriber message.Subscriber

		if client := do.MustInvoke[*redis.Client](i); client != nil {
			s, err := messaging.NewRedisSubscriber(client, opts.ConsumerGroup, logger)
			if err != nil {
				return nil, err
			}

			subscriber = s
		} else {
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
		}

		return events.NewConsumerGroup(subscriber, eventstore.NewAuditLog(logger), logger), nil
	})
}

func HealthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)
		h := health.NewHandler()

		switch opts.Store {
		case StoreMongo:
			h.Add("mongo", health.NewMongoChecker(do.MustInvoke[*mongo.Client](i)))
		case StorePostgres:
			h.Add("postgres", health.NewPostgresChecker(do.MustInvoke[*pgxpool.Pool](i)))
		}

		if client := do.MustInvoke[*redis.Client](i); client != nil {
			h.Add("redis", health.NewRedisChecker(client))
		}

		return h, nil
	})
}

func baseURL(opts *Options) string {
	if opts.BaseURL != "" {
		return opts.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", opts.Port)
}

// ServerPackages registers everything the HTTP server needs on top of the
// options, resources and logger.
func ServerPackages(injector *do.Injector) {
	RedisPackage(injector)
	MongoPackage(injector)
	PostgresPackage(injector)
	RepositoryPackage(injector)
	ShortenerPackage(injector)
	MailPackage(injector)
	AccountPackage(injector)
	AuthPackage(injector)
	RateLimitPackage(injector)
	EventsPackage(injector)
	PublisherGroupPackage(injector)
	ConsumerGroupPackage(injector)
	HealthPackage(injector)
	HTTPPackage(injector)
}
