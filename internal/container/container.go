package container

import (
	"errors"
	"sync"
)

// Store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Options struct {
	Port          int    `default:"8888"                 help:"Port to listen on"                                    short:"p"`
	BaseURL       string `default:""                     help:"Public base URL of short links (default http://localhost:<port>)"`
	DisplayDomain string `default:""                     help:"Domain shown to users for short links"`
	StaticDir     string `default:"public"               help:"Directory of static files"`
	CodeLength    int    `default:"6"                    help:"Length of generated short codes"                      short:"c"`

	Store         string `default:"mongo"                     help:"Store backend: mongo, postgres or memory"`
	MongoURI      string `default:"mongodb://localhost:27017" help:"MongoDB connection URI"`
	MongoDatabase string `default:"urlshortener"              help:"MongoDB database name"`
	PostgresDSN   string `default:""                          help:"PostgreSQL connection string"`

	RedisAddr       string `default:"localhost:6379" help:"Redis server address, empty to run without Redis" short:"r"`
	CacheTTLMinutes int    `default:"60"             help:"Link cache TTL in minutes"`
	ConsumerGroup   string `default:"audit"          help:"Redis stream consumer group"`

	LogLevel      string `default:"info"    help:"Log level: debug, info, warn or error"`
	LogFormat     string `default:"json"    help:"Log format: json or console"`
	LogFile       string `default:""        help:"Also write logs to this file, rotated"`
	LogMaxSizeMB  int    `default:"100"     help:"Rotate the log file after this many megabytes"`
	LogMaxBackups int    `default:"5"       help:"Rotated log files to keep"`
	LogMaxAgeDays int    `default:"30"      help:"Days to keep rotated log files"`

	JWTSecret   string `default:""   help:"HMAC secret for session tokens, random per process when empty"`
	JWTTTLHours int    `default:"24" help:"Session token lifetime in hours"`
	BcryptCost  int    `default:"10" help:"bcrypt cost for password hashes"`

	SMTPHost     string `default:""    help:"SMTP relay host"`
	SMTPPort     int    `default:"587" help:"SMTP relay port"`
	SMTPUsername string `default:""    help:"SMTP relay username"`
	SMTPPassword string `default:""    help:"SMTP relay password"`
	SMTPSecure   bool   `default:"false" help:"Use implicit TLS for the SMTP relay"`
	MailFrom     string `default:""    help:"Sender address for outgoing mail"`

	GoogleClientID     string `default:"" help:"Google OAuth2 client id"`
	GoogleClientSecret string `default:"" help:"Google OAuth2 client secret"`
	GoogleRefreshToken string `default:"" help:"Google OAuth2 refresh token"`

	RateLimit       bool `default:"true" help:"Enable rate limiting"`
	GlobalPerMinute int  `default:"1000" help:"Requests per minute across all endpoints"`
	ReadPerMinute   int  `default:"600"  help:"Read requests per minute"`
	WritePerMinute  int  `default:"60"   help:"Write requests per minute"`
	AuthPerMinute   int  `default:"10"   help:"Account requests per minute"`
	AuthPerHour     int  `default:"50"   help:"Account requests per hour"`
}

// Resources closes clients that do not implement do.Shutdownable. Closers run
// in reverse registration order.
type Resources struct {
	mu      sync.Mutex
	closers []func() error
}

func (r *Resources) Add(closer func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closers = append(r.closers, closer)
}

func (r *Resources) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}
