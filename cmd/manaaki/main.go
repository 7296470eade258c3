package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/manaaki-care/manaaki/internal/dispatch"
	"github.com/manaaki-care/manaaki/internal/escalation"
	"github.com/manaaki-care/manaaki/internal/messaging"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/runner"
	"github.com/manaaki-care/manaaki/internal/store"
	"github.com/manaaki-care/manaaki/internal/templates"
	"github.com/manaaki-care/manaaki/internal/util"
	"github.com/manaaki-care/manaaki/internal/wellness"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Manaaki state data
	DefaultStateDir = "/var/lib/manaaki"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "manaaki.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	senders := buildSenderRegistry(flags)
	resolver := templates.NewResolver(st)
	dispatcher := dispatch.NewDispatcher(st, senders, resolver)
	engine := escalation.NewEngine(st, senders, nil)
	analyzer := wellness.NewAnalyzer(st)

	r := runner.NewRunner(st, dispatcher, engine, analyzer)
	registerTaskHandlers(r, st, analyzer)
	if err := r.Start(); err != nil {
		slog.Error("Failed to start runner", "error", err)
		os.Exit(1)
	}

	slog.Info("Manaaki engine running", "db_driver", *flags.dbDriver, "dsn_set", *flags.dbDSN != "")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("Shutdown signal received, stopping")
	r.Stop()
	slog.Info("Manaaki exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	WebhookURL  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDriver   *string
	dbDSN      *string
	webhookURL *string
}

// initializeLogger sets up structured logging with debug level by default;
// LOG_LEVEL overrides.
func initializeLogger() {
	level := slog.LevelDebug
	switch strings.ToLower(util.ParseStringEnv("LOG_LEVEL", "debug")) {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("MANAAKI_STATE_DIR"),
		WebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No MANAAKI_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MANAAKI_STATE_DIR", config.StateDir,
		"NOTIFY_WEBHOOK_URL_SET", config.WebhookURL != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for Manaaki data (overrides $MANAAKI_STATE_DIR)"),
		dbDriver:   flag.String("db-driver", config.DbDriver, "database driver: sqlite or postgres (overrides $DB_DRIVER)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		webhookURL: flag.String("webhook-url", config.WebhookURL, "webhook endpoint for push and email delivery (overrides $NOTIFY_WEBHOOK_URL)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"webhookURL_set", *flags.webhookURL != "")
	return flags
}

// registerTaskHandlers binds deferred task kinds to their work. The app
// backend shares the store and enqueues these for the engine to pick up on
// its next drain.
func registerTaskHandlers(r *runner.Runner, st store.Store, analyzer *wellness.Analyzer) {
	r.RegisterTaskHandler("generate_weekly_report", func(ctx context.Context, task models.DeferredTask) error {
		var payload struct {
			UserID    string `json:"user_id"`
			WeekStart string `json:"week_start"` // YYYY-MM-DD
		}
		if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
			return fmt.Errorf("invalid weekly report payload: %w", err)
		}
		weekStart, err := time.Parse("2006-01-02", payload.WeekStart)
		if err != nil {
			return fmt.Errorf("invalid week start %q: %w", payload.WeekStart, err)
		}
		user, err := st.GetUserProfile(payload.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s not found", payload.UserID)
		}
		return analyzer.GenerateWeeklyReport(ctx, *user, weekStart)
	})
}

// openStore selects the storage backend by driver, inferring Postgres from a
// URL-shaped DSN when no driver is set.
func openStore(flags Flags) (store.Store, error) {
	driver := strings.ToLower(*flags.dbDriver)
	dsn := *flags.dbDSN
	if driver == "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite"
		}
	}
	switch driver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	default:
		return store.NewSQLiteStore(store.WithDSN(dsn))
	}
}

// buildSenderRegistry wires each delivery channel to a sender. Twilio covers
// SMS and voice when credentials are present; the webhook endpoint covers
// push and email when configured.
func buildSenderRegistry(flags Flags) *messaging.Registry {
	registry := messaging.NewRegistry()

	if !util.ParseBoolEnv("TWILIO_ENABLED", true) {
		slog.Info("Twilio disabled by TWILIO_ENABLED, sms and voice channels off")
	} else if client, err := messaging.NewTwilioClient(); err != nil {
		slog.Warn("Twilio not configured, sms and voice channels disabled", "error", err)
	} else {
		registry.Register(models.ChannelSMS, messaging.NewTwilioSMSSender(client))
		registry.Register(models.ChannelVoice, messaging.NewTwilioVoiceSender(client))
	}

	if url := *flags.webhookURL; url != "" {
		registry.Register(models.ChannelPush, messaging.NewWebhookSender(models.ChannelPush, url))
		registry.Register(models.ChannelEmail, messaging.NewWebhookSender(models.ChannelEmail, url))
	} else {
		slog.Warn("No webhook URL configured, push and email channels disabled")
	}
	return registry
}
