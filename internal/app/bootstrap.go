package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"voicegate/internal/auth"
	"voicegate/internal/db"
	"voicegate/internal/httpx"
	"voicegate/internal/invite"
	"voicegate/internal/maintenance"
	"voicegate/internal/observability"
	"voicegate/internal/voice"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	// The signing secret is a fatal configuration error when absent, never
	// a request-time failure.
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	tokens, err := auth.NewTokenService(
		jwtSecret,
		envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 30),
		envDaysOrDefault("REFRESH_TOKEN_TTL_DAYS", 7),
	)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	limiter := auth.NewLoginRateLimiter(
		envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		envMinutesOrDefault("LOGIN_WINDOW_MINUTES", 15),
	)

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, tokens, limiter)
	authHandler := auth.NewHandler(authService)

	inviteRepo := invite.NewRepository(database)
	inviteHandler := invite.NewHandler(inviteRepo)

	voiceClient := voice.NewClient(os.Getenv("AGENT_ID"), os.Getenv("XI_API_KEY"))
	voiceHandler := voice.NewHandler(voiceClient)

	cleanupHandler := maintenance.NewCleanupHandler(
		inviteRepo,
		logger,
		os.Getenv("CRON_SECRET"),
		envDaysOrDefault("INVITE_RETENTION_DAYS", 30),
		envIntOrDefault("CLEANUP_BATCH_SIZE", 500),
	)

	adminGate := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(tokens, authRepo, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", authHandler.Login)
	mux.HandleFunc("POST /token/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/validate-code", inviteHandler.ValidateCode)
	mux.HandleFunc("POST /api/increment-code", inviteHandler.IncrementCode)
	mux.Handle("GET /api/codes", adminGate(inviteHandler.ListCodes))
	mux.Handle("POST /api/codes", adminGate(inviteHandler.CreateCode))
	mux.HandleFunc("GET /api/signed-url", voiceHandler.SignedURL)
	mux.HandleFunc("GET /api/getAgentId", voiceHandler.AgentID)
	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))
	mountStatic(mux, logger, envOrDefault("WEB_DIST_DIR", "../frontend/dist"))

	throttle := observability.NewRequestRateLimiter(
		envIntOrDefault("RATE_LIMIT_MAX", 10),
		envSecondsOrDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		"/static/", "/admin",
	)

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			httpx.CORS(allowedOrigins(), throttle.Middleware(mux))))

	return &Runtime{
		Handler: handler,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000"}
	}

	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
