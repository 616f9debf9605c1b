package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/HallBook/internal/api"
	"github.com/BTreeMap/HallBook/internal/booking"
	"github.com/BTreeMap/HallBook/internal/lockfile"
	"github.com/BTreeMap/HallBook/internal/messaging"
	"github.com/BTreeMap/HallBook/internal/models"
	"github.com/BTreeMap/HallBook/internal/store"
	"github.com/BTreeMap/HallBook/internal/twiliowhatsapp"
	"github.com/BTreeMap/HallBook/internal/util"
	"github.com/BTreeMap/HallBook/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for HallBook state data
	DefaultStateDir = "/var/lib/hallbook"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultHalls is the resource catalog used when HALLS is not set
	DefaultHalls = "1:Hall 1,2:Hall 2"
)

// Messaging backends selectable with MESSAGING_BACKEND.
const (
	BackendNone     = "none"
	BackendWhatsApp = "whatsapp"
	BackendTwilio   = "twilio"
)

func main() {
	loadDotEnv()
	initializeLogger(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse command line flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("HallBook failed to run", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("HallBook exited successfully")
}

// run wires the configured modules and serves until ctx is cancelled.
func run(ctx context.Context, flags Flags) error {
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	resources, err := models.ParseResources(*flags.halls)
	if err != nil {
		return fmt.Errorf("invalid hall catalog: %w", err)
	}

	sessions, closeSessions, err := buildSessionStore(flags)
	if err != nil {
		return err
	}
	defer closeSessions()

	provider, closeProvider, err := buildBusyProvider(flags)
	if err != nil {
		return err
	}
	defer closeProvider()

	machine := booking.NewMachine(buildBookingOptions(flags, resources, sessions, provider)...)

	msgService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}

	apiOpts := buildAPIOptions(flags)
	slog.Info("Bootstrapping HallBook with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "",
		"redis_set", *flags.redisAddr != "", "api_addr", *flags.apiAddr, "messaging", *flags.messaging,
		"halls", len(resources), "api_options", len(apiOpts))
	return api.Run(ctx, machine, msgService, apiOpts...)
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SessionTTL       time.Duration
	APIAddr          string
	Halls            string
	FetchTimeout     time.Duration
	MessagingBackend string
	WhatsAppDSN      string
	RateLimit        float64
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	redisAddr    *string
	sessionTTL   *time.Duration
	apiAddr      *string
	halls        *string
	fetchTimeout *time.Duration
	messaging    *string
	whatsappDSN  *string
	qrOutput     *string
	numeric      *bool
	rateLimit    *float64

	// Not exposed as flags.
	redisPassword string
	redisDB       int
}

// loadDotEnv loads a .env file from the working directory if present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
}

// initializeLogger installs the default slog logger. format "json" selects
// the JSON handler; level defaults to debug.
func initializeLogger(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// loadEnvironmentConfig reads configuration from environment variables
func loadEnvironmentConfig() Config {
	config := Config{
		StateDir:         util.GetenvDefault("HALLBOOK_STATE_DIR", DefaultStateDir),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          util.ParseIntEnv("REDIS_DB", 0),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", store.DefaultSessionTTL),
		APIAddr:          util.GetenvDefault("API_ADDR", api.DefaultServerAddress),
		Halls:            util.GetenvDefault("HALLS", DefaultHalls),
		FetchTimeout:     util.ParseDurationEnv("BUSY_FETCH_TIMEOUT", booking.DefaultFetchTimeout),
		MessagingBackend: strings.ToLower(util.GetenvDefault("MESSAGING_BACKEND", BackendNone)),
		WhatsAppDSN:      strings.TrimSpace(os.Getenv("WHATSAPP_DB_DSN")),
		RateLimit:        util.ParseFloatEnv("RATE_LIMIT_RPS", api.DefaultRateLimit),
	}

	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = defaultWhatsAppDSN(config.StateDir)
		slog.Debug("No WHATSAPP_DB_DSN set, defaulting to SQLite in the state directory", "dsn", config.WhatsAppDSN)
	}

	slog.Debug("environment variables loaded",
		"HALLBOOK_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR", config.RedisAddr,
		"REDIS_DB", config.RedisDB,
		"SESSION_TTL", config.SessionTTL,
		"API_ADDR", config.APIAddr,
		"HALLS", config.Halls,
		"BUSY_FETCH_TIMEOUT", config.FetchTimeout,
		"MESSAGING_BACKEND", config.MessagingBackend,
		"RATE_LIMIT_RPS", config.RateLimit)

	return config
}

func defaultWhatsAppDSN(stateDir string) string {
	return "file:" + filepath.Join(stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
}

// parseCommandLineFlags parses args with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:     fs.String("state-dir", config.StateDir, "state directory for the lock file and SQLite data (overrides $HALLBOOK_STATE_DIR)"),
		dbDSN:        fs.String("db-dsn", config.DatabaseURL, "busy interval database, postgres DSN or SQLite path; empty uses the built-in fixture (overrides $DATABASE_URL)"),
		redisAddr:    fs.String("redis-addr", config.RedisAddr, "Redis address for booking sessions; empty keeps them in memory (overrides $REDIS_ADDR)"),
		sessionTTL:   fs.Duration("session-ttl", config.SessionTTL, "expiry of idle sessions in Redis (overrides $SESSION_TTL)"),
		apiAddr:      fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		halls:        fs.String("halls", config.Halls, "hall catalog as id:Name,id:Name (overrides $HALLS)"),
		fetchTimeout: fs.Duration("fetch-timeout", config.FetchTimeout, "timeout for loading busy intervals (overrides $BUSY_FETCH_TIMEOUT)"),
		messaging:    fs.String("messaging", config.MessagingBackend, "chat backend: none, whatsapp or twilio (overrides $MESSAGING_BACKEND)"),
		whatsappDSN:  fs.String("whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow device database DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:     fs.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numeric:      fs.Bool("numeric-code", false, "print the WhatsApp pairing code instead of a QR code"),
		rateLimit:    fs.Float64("rate-limit", config.RateLimit, "API requests per second per client IP, 0 disables (overrides $RATE_LIMIT_RPS)"),

		redisPassword: config.RedisPassword,
		redisDB:       config.RedisDB,
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// Follow an overridden state directory unless the WhatsApp DSN was set explicitly.
	if *flags.whatsappDSN == defaultWhatsAppDSN(config.StateDir) && *flags.stateDir != config.StateDir {
		*flags.whatsappDSN = defaultWhatsAppDSN(*flags.stateDir)
		slog.Debug("Updated WhatsApp DSN based on state directory", "state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr", *flags.redisAddr,
		"sessionTTL", *flags.sessionTTL,
		"apiAddr", *flags.apiAddr,
		"fetchTimeout", *flags.fetchTimeout,
		"messaging", *flags.messaging,
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"rateLimit", *flags.rateLimit)

	return flags, nil
}

// buildStoreOptions constructs busy interval database options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use the fixture busy provider")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL provider", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite provider", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildSessionStoreOptions constructs Redis session store options
func buildSessionStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.redisAddr == "" {
		return storeOpts
	}
	storeOpts = append(storeOpts,
		store.WithRedisAddr(*flags.redisAddr),
		store.WithRedisDB(flags.redisDB),
		store.WithSessionTTL(*flags.sessionTTL),
	)
	if flags.redisPassword != "" {
		storeOpts = append(storeOpts, store.WithRedisPassword(flags.redisPassword))
	}
	return storeOpts
}

// buildSessionStore returns the Redis store when an address is configured, the in-memory store otherwise.
func buildSessionStore(flags Flags) (store.SessionStore, func(), error) {
	opts := buildSessionStoreOptions(flags)
	if len(opts) == 0 {
		slog.Info("Using in-memory session store")
		return store.NewInMemoryStore(), func() {}, nil
	}
	rs, err := store.NewRedisStore(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Redis session store: %w", err)
	}
	slog.Info("Using Redis session store", "addr", *flags.redisAddr)
	return rs, func() {
		if err := rs.Close(); err != nil {
			slog.Error("Failed to close Redis session store", "error", err)
		}
	}, nil
}

// buildBusyProvider opens the configured busy interval database.
func buildBusyProvider(flags Flags) (store.BusyProvider, func(), error) {
	opts := buildStoreOptions(flags)
	if len(opts) == 0 {
		return store.MockBusyProvider{}, func() {}, nil
	}

	type closingProvider interface {
		store.BusyProvider
		Close() error
	}
	var (
		p   closingProvider
		err error
	)
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		p, err = store.NewPostgresBusyProvider(opts...)
	} else {
		p, err = store.NewSQLiteBusyProvider(opts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open busy interval database: %w", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Error("Failed to close busy interval database", "error", err)
		}
	}, nil
}

// buildBookingOptions constructs booking machine options
func buildBookingOptions(flags Flags, resources []models.Resource, sessions store.SessionStore, provider store.BusyProvider) []booking.Option {
	opts := []booking.Option{
		booking.WithResources(resources),
		booking.WithStore(sessions),
		booking.WithProvider(provider),
	}
	if *flags.fetchTimeout > 0 {
		opts = append(opts, booking.WithFetchTimeout(*flags.fetchTimeout))
	}
	return opts
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.whatsappDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.whatsappDSN))
	}
	return waOpts
}

var errUnknownBackend = errors.New("unknown messaging backend")

// buildMessagingService connects the configured chat backend. It returns nil for BackendNone.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch *flags.messaging {
	case BackendNone, "":
		slog.Info("No messaging backend configured, serving the HTTP API only")
		return nil, nil
	case BackendWhatsApp:
		client, err := whatsapp.NewClient(buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	case BackendTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownBackend, *flags.messaging)
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.rateLimit >= 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(*flags.rateLimit, api.DefaultRateBurst))
	}
	return apiOpts
}
