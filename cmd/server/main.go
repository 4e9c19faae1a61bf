// Command server starts the VidTube API HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vidtube/internal/api"
	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/observability/logging"
	"vidtube/internal/server"
	"vidtube/internal/serverutil"
	"vidtube/internal/storage"
	"vidtube/internal/watch"
)

func main() {
	addr := flag.String("addr", "", "listen address (e.g. :8080)")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	dataPath := flag.String("data", "", "path to the JSON datastore file")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum Postgres pool connections")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum Postgres pool connections")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime of a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time of a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "Postgres pool health check interval")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout for acquiring a Postgres connection")
	postgresAppName := flag.String("postgres-app-name", "", "application name reported to Postgres")
	accessSecret := flag.String("jwt-access-secret", "", "signing secret for access tokens")
	refreshSecret := flag.String("jwt-refresh-secret", "", "signing secret for refresh tokens")
	accessTTL := flag.Duration("jwt-access-ttl", 0, "access token lifetime")
	refreshTTL := flag.Duration("jwt-refresh-ttl", 0, "refresh token lifetime")
	mediaCloudName := flag.String("media-cloud-name", "", "asset host cloud name for direct uploads")
	mediaAPIKey := flag.String("media-api-key", "", "asset host API key")
	mediaAPISecret := flag.String("media-api-secret", "", "asset host API secret")
	mediaUploadFolder := flag.String("media-upload-folder", "", "default folder for signed uploads")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	shutdownTimeout := flag.Duration("shutdown-timeout", 0, "graceful shutdown deadline")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("VIDTUBE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("VIDTUBE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")

	issuerCfg := auth.IssuerConfig{
		AccessSecret:  firstNonEmpty(*accessSecret, os.Getenv("VIDTUBE_JWT_ACCESS_SECRET")),
		RefreshSecret: firstNonEmpty(*refreshSecret, os.Getenv("VIDTUBE_JWT_REFRESH_SECRET")),
		AccessTTL:     resolveDuration(*accessTTL, "VIDTUBE_JWT_ACCESS_TTL", 0),
		RefreshTTL:    resolveDuration(*refreshTTL, "VIDTUBE_JWT_REFRESH_TTL", 0),
	}
	if issuerCfg.AccessSecret == "" || issuerCfg.RefreshSecret == "" {
		logger.Error("JWT secrets are required: set VIDTUBE_JWT_ACCESS_SECRET and VIDTUBE_JWT_REFRESH_SECRET")
		os.Exit(1)
	}
	if issuerCfg.AccessSecret == issuerCfg.RefreshSecret {
		logger.Error("access and refresh token secrets must differ")
		os.Exit(1)
	}

	dsn := strings.TrimSpace(firstNonEmpty(*postgresDSN, os.Getenv("VIDTUBE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	driver := resolveStorageDriver(*storageDriver, os.Getenv("VIDTUBE_STORAGE_DRIVER"), dsn)

	var (
		store storage.Repository
		err   error
	)
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("VIDTUBE_DATA"))
		store, err = storage.New(dataFile)
	case "postgres":
		if dsn == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		openCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = storage.NewPostgresRepository(openCtx, storage.PostgresConfig{
			DSN:                 dsn,
			MaxConnections:      int32(resolveInt(*postgresMaxConns, "VIDTUBE_POSTGRES_MAX_CONNS")),
			MinConnections:      int32(resolveInt(*postgresMinConns, "VIDTUBE_POSTGRES_MIN_CONNS")),
			MaxConnLifetime:     resolveDuration(*postgresMaxConnLifetime, "VIDTUBE_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime:     resolveDuration(*postgresMaxConnIdle, "VIDTUBE_POSTGRES_MAX_CONN_IDLE", 0),
			HealthCheckInterval: resolveDuration(*postgresHealthInterval, "VIDTUBE_POSTGRES_HEALTH_INTERVAL", 0),
			AcquireTimeout:      resolveDuration(*postgresAcquireTimeout, "VIDTUBE_POSTGRES_ACQUIRE_TIMEOUT", 0),
			ApplicationName:     firstNonEmpty(*postgresAppName, os.Getenv("VIDTUBE_POSTGRES_APP_NAME")),
		})
		cancel()
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	issuer := auth.NewIssuer(issuerCfg)
	sessions := auth.NewSessionManager(store, issuer, auth.WithLogger(logging.WithComponent(logger, "auth")))
	engine := watch.NewEngine(store, watch.WithLogger(logging.WithComponent(logger, "watch")))

	mediaStore := media.NewStore(media.Config{
		CloudName:    firstNonEmpty(*mediaCloudName, os.Getenv("VIDTUBE_MEDIA_CLOUD_NAME")),
		APIKey:       firstNonEmpty(*mediaAPIKey, os.Getenv("VIDTUBE_MEDIA_API_KEY")),
		APISecret:    firstNonEmpty(*mediaAPISecret, os.Getenv("VIDTUBE_MEDIA_API_SECRET")),
		UploadFolder: firstNonEmpty(*mediaUploadFolder, os.Getenv("VIDTUBE_MEDIA_UPLOAD_FOLDER")),
	})
	if !mediaStore.Enabled() {
		logger.Warn("media credentials not configured; upload signing disabled")
	}

	handler := api.NewHandler(store, sessions, engine, mediaStore)
	handler.Logger = logger

	listenAddr := firstNonEmpty(*addr, os.Getenv("VIDTUBE_ADDR"))
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("VIDTUBE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("VIDTUBE_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "VIDTUBE_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "VIDTUBE_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "VIDTUBE_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "VIDTUBE_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("VIDTUBE_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("VIDTUBE_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*redisTimeout, "VIDTUBE_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("VIDTUBE_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("VidTube API listening", "addr", listenAddr, "storage", driver)

	runErr := serverutil.Run(ctx, serverutil.Config{
		Server:          srv,
		ShutdownTimeout: resolveDuration(*shutdownTimeout, "VIDTUBE_SHUTDOWN_TIMEOUT", serverutil.DefaultShutdownTimeout),
	})

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(closeCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("server error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func resolveStorageDriver(flagValue, envValue, dsn string) string {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver
	}
	if dsn != "" {
		return "postgres"
	}
	return "json"
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/vidtube.json"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}
