package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/toyutoyu/supportbot/internal/api"
	"github.com/toyutoyu/supportbot/internal/backend"
	"github.com/toyutoyu/supportbot/internal/conversation"
	"github.com/toyutoyu/supportbot/internal/genai"
	"github.com/toyutoyu/supportbot/internal/line"
	"github.com/toyutoyu/supportbot/internal/monitor"
	"github.com/toyutoyu/supportbot/internal/scheduler"
	"github.com/toyutoyu/supportbot/internal/session"
	"github.com/toyutoyu/supportbot/internal/util"
)

// Default configuration constants
const (
	// DefaultCronSchedule runs the monitor at the top of every hour.
	DefaultCronSchedule = "0 * * * *"
	// DefaultCronTimezone is the timezone cron expressions are evaluated in.
	DefaultCronTimezone = "Asia/Tokyo"
	// DefaultBackendBaseURL is the production WordPress backend.
	DefaultBackendBaseURL = "https://toyutoyu.com"
)

// defaultTargetURLs are probed when TARGET_URLS is not configured.
var defaultTargetURLs = []string{
	"https://toyutoyu.com/app/",
	"https://toyutoyu.com/",
}

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.logFile, *flags.logLevel)

	slog.Info("Bootstrapping toyutoyu support bot")

	lineClient := line.NewClient(*flags.lineToken)
	backendClient := backend.NewClient(*flags.backendBaseURL,
		backend.WithWebhookSecret(config.BackendWebhookSecret))
	responder := genai.New(buildGenAIOptions(flags)...)
	sessions := session.NewStore(buildSessionOptions(flags)...)

	convHandler := conversation.NewHandler(sessions, lineClient, backendClient, responder)
	server := api.NewServer(*flags.channelSecret, convHandler, api.WithAddr(":"+*flags.port))

	mon := buildMonitor(flags, lineClient)
	sched, err := scheduler.New(*flags.cronTimezone)
	if err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	if err := sched.AddJob(*flags.cronSchedule, func() {
		mon.Tick(context.Background())
	}); err != nil {
		slog.Error("Failed to schedule monitor job", "error", err, "schedule", *flags.cronSchedule)
		os.Exit(1)
	}
	slog.Info("Monitor scheduled", "schedule", *flags.cronSchedule, "timezone", *flags.cronTimezone, "targets", strings.Join(config.TargetURLs, ", "))

	// Shut the HTTP server down on SIGINT/SIGTERM; the scheduler stops via
	// the deferred Stop above.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	if err := server.Run(); err != nil {
		slog.Error("Support bot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Support bot exited successfully")
}

// Config holds environment configuration
type Config struct {
	Port                 string
	TargetURLs           []string
	ProbeTimeout         time.Duration
	CronSchedule         string
	CronTimezone         string
	LineChannelSecret    string
	LineChannelToken     string
	LineTo               string
	LineBroadcast        bool
	BackendBaseURL       string
	BackendWebhookSecret string
	LoginFlowTTL         time.Duration
	LoggedInTTL          time.Duration
	OpenAIKey            string
	OpenAIModel          string
	LogFile              string
	LogLevel             string
}

// Flags holds command line flag values
type Flags struct {
	port           *string
	probeTimeout   *time.Duration
	cronSchedule   *string
	cronTimezone   *string
	channelSecret  *string
	lineToken      *string
	lineTo         *string
	lineBroadcast  *bool
	backendBaseURL *string
	loginFlowTTL   *time.Duration
	loggedInTTL    *time.Duration
	openaiKey      *string
	openaiModel    *string
	logFile        *string
	logLevel       *string

	targetURLs []string
}

// initializeLogger sets up structured logging, optionally multiplexed into a
// rotating log file.
func initializeLogger(logFile, logLevel string) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		// No .env is the normal case in production.
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		Port:                 util.GetEnv("PORT", "8080"),
		ProbeTimeout:         time.Duration(util.ParseIntEnv("TIMEOUT_MS", 10000)) * time.Millisecond,
		CronSchedule:         util.GetEnv("CRON_SCHEDULE", DefaultCronSchedule),
		CronTimezone:         util.GetEnv("CRON_TIMEZONE", DefaultCronTimezone),
		LineChannelSecret:    os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelToken:     os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		LineTo:               os.Getenv("LINE_TO"),
		LineBroadcast:        util.ParseBoolEnv("LINE_BROADCAST", false),
		BackendBaseURL:       util.GetEnv("TOYUTOYU_BASE_URL", DefaultBackendBaseURL),
		BackendWebhookSecret: os.Getenv("TOYUTOYU_WEBHOOK_SECRET"),
		LoginFlowTTL:         util.ParseDurationEnv("SESSION_LOGIN_TTL", session.DefaultLoginFlowTTL),
		LoggedInTTL:          util.ParseDurationEnv("SESSION_LOGGED_IN_TTL", session.DefaultLoggedInTTL),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          os.Getenv("OPENAI_MODEL"),
		LogFile:              os.Getenv("LOG_FILE"),
		LogLevel:             util.GetEnv("LOG_LEVEL", "info"),
	}

	config.TargetURLs = util.ParseTargetURLs(os.Getenv("TARGET_URLS"))
	if len(config.TargetURLs) == 0 {
		config.TargetURLs = defaultTargetURLs
	}

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		port:           flag.String("port", config.Port, "HTTP listen port (overrides $PORT)"),
		probeTimeout:   flag.Duration("probe-timeout", config.ProbeTimeout, "per-probe timeout (overrides $TIMEOUT_MS)"),
		cronSchedule:   flag.String("cron-schedule", config.CronSchedule, "monitor cron expression (overrides $CRON_SCHEDULE)"),
		cronTimezone:   flag.String("cron-timezone", config.CronTimezone, "timezone for the cron schedule (overrides $CRON_TIMEZONE)"),
		channelSecret:  flag.String("line-channel-secret", config.LineChannelSecret, "LINE channel secret for webhook signatures (overrides $LINE_CHANNEL_SECRET)"),
		lineToken:      flag.String("line-channel-token", config.LineChannelToken, "LINE channel access token (overrides $LINE_CHANNEL_ACCESS_TOKEN)"),
		lineTo:         flag.String("line-to", config.LineTo, "LINE user id for monitor notifications (overrides $LINE_TO)"),
		lineBroadcast:  flag.Bool("line-broadcast", config.LineBroadcast, "broadcast monitor notifications instead of pushing (overrides $LINE_BROADCAST)"),
		backendBaseURL: flag.String("backend-base-url", config.BackendBaseURL, "toyutoyu backend base URL (overrides $TOYUTOYU_BASE_URL)"),
		loginFlowTTL:   flag.Duration("login-flow-ttl", config.LoginFlowTTL, "TTL for sessions mid login flow (overrides $SESSION_LOGIN_TTL)"),
		loggedInTTL:    flag.Duration("logged-in-ttl", config.LoggedInTTL, "TTL for logged-in sessions (overrides $SESSION_LOGGED_IN_TTL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:    flag.String("openai-model", config.OpenAIModel, "OpenAI model for the fallback responder (overrides $OPENAI_MODEL)"),
		logFile:        flag.String("log-file", config.LogFile, "rotating log file path (overrides $LOG_FILE)"),
		logLevel:       flag.String("log-level", config.LogLevel, "log level: debug, info, warn, error (overrides $LOG_LEVEL)"),

		targetURLs: config.TargetURLs,
	}

	flag.Parse()
	return flags
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	return opts
}

// buildSessionOptions constructs session store configuration options
func buildSessionOptions(flags Flags) []session.Option {
	return []session.Option{
		session.WithLoginFlowTTL(*flags.loginFlowTTL),
		session.WithLoggedInTTL(*flags.loggedInTTL),
	}
}

// buildMonitor wires the checker and notifier for the scheduled passes.
func buildMonitor(flags Flags, lineClient *line.Client) *monitor.Monitor {
	checker := monitor.NewChecker(monitor.WithTimeout(*flags.probeTimeout))

	var notifierOpts []monitor.NotifierOption
	if *flags.lineBroadcast {
		notifierOpts = append(notifierOpts, monitor.WithBroadcast(lineClient))
	} else if *flags.lineTo != "" {
		notifierOpts = append(notifierOpts, monitor.WithLine(lineClient, *flags.lineTo))
	}
	notifier := monitor.NewNotifier(notifierOpts...)

	return monitor.New(checker, notifier, flags.targetURLs)
}
