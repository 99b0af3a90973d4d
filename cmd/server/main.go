package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/restatedev/sdk-go/server"
	"go.uber.org/fx"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/api"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/audit"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/authz"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
	appconfig "github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/config"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/events"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/secrets"
	postgres "github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/storage/postgres"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/telemetry"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/upstream"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/workflow"
)

func newLogger(cfg appconfig.Config) *log.Logger {
	prefix := ""
	if cfg.ServiceName != "" {
		prefix = fmt.Sprintf("[%s] ", cfg.ServiceName)
	}
	logger := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds)
	log.SetOutput(os.Stdout)
	log.SetFlags(logger.Flags())
	log.SetPrefix(prefix)
	return logger
}

func setupTelemetry(lc fx.Lifecycle, cfg appconfig.Config) {
	var cleanup func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			cleanup = telemetry.InitTracer(cfg.ServiceName, cfg.Telemetry.TracesEndpoint)
			return nil
		},
		OnStop: func(context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})
}

func newTokenManager(cfg appconfig.Config, logger *log.Logger) *upstream.TokenManager {
	return upstream.NewTokenManager(cfg.Upstream.BaseURL, upstream.Credentials{
		ClientID:     cfg.Upstream.ClientID,
		ClientSecret: cfg.Upstream.ClientSecret,
	}, upstream.NewHTTPClient(), logger)
}

func newUpstreamClient(cfg appconfig.Config, tokens *upstream.TokenManager, logger *log.Logger) *upstream.Client {
	return upstream.NewClient(cfg.Upstream.BaseURL, tokens, upstream.NewHTTPClient(), logger)
}

// newSQLDB provides the operation log pool. The gateway keeps serving without
// it; callers check Repository.Available.
func newSQLDB(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger) *sql.DB {
	if !cfg.Database.Enabled {
		logger.Printf("SINIESTROS_DB_HOST not set, operation log disabled")
		return nil
	}
	logger.Printf("Connecting to PostgreSQL database %s@%s:%d", cfg.Database.Database, cfg.Database.Host, cfg.Database.Port)
	db, err := postgres.OpenDatabase(cfg.Database.DatabaseConfig)
	if err != nil {
		logger.Printf("WARNING: failed to connect to database: %v", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Printf("WARNING: %v", err)
		_ = db.Close()
		return nil
	}
	logger.Printf("Database connection established successfully")
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db
}

// newEventPublisher constructs a shared Kafka producer and binds its lifecycle to Fx.
func newEventPublisher(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger) events.Publisher {
	if !cfg.Kafka.Enabled() {
		logger.Printf("KAFKA_BROKERS not set, lifecycle events disabled")
	}
	pub := events.NewProducer(cfg.Kafka.Brokers)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub
}

func newRecorder(repo *postgres.Repository, pub events.Publisher, cfg appconfig.Config, logger *log.Logger) *audit.Recorder {
	return audit.NewRecorder(repo, pub, cfg.Kafka.ClaimsTopic, logger)
}

func newClaimsService(client *upstream.Client, rec *audit.Recorder, cfg appconfig.Config, logger *log.Logger) *claims.Service {
	return claims.NewService(client, cfg.Claims.Options(), logger).WithRecorder(rec)
}

func newAPIHandler(svc *claims.Service, repo *postgres.Repository, cfg appconfig.Config, logger *log.Logger) (*api.Handler, error) {
	return api.NewHandler(svc, repo, authz.NewFromEnv(), api.Options{TypedErrors: cfg.HTTP.TypedErrors}, logger)
}

func registerWebServer(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger, shutdowner fx.Shutdowner, h *api.Handler) {
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Printf("Gateway API listening on %s", cfg.HTTP.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Printf("Gateway API server error: %v", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// In-flight payments may still be waiting on their follow-up query.
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Claims.FollowUpDelay+5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func registerRestateServer(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger, shutdowner fx.Shutdowner, svc *claims.Service) {
	if !cfg.Restate.Enabled {
		return
	}
	srv := workflow.Bind(server.NewRestate(), workflow.NewHandlers(svc, logger))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Println("Restate server listening on", cfg.Restate.ListenAddr)
			logger.Println("")
			logger.Println("Service Architecture:")
			logger.Printf("  - %s: SERVICE (CrearSiniestro, ConsultarEstado, PagoSiniestro, ModificacionReserva)", workflow.ServiceName)
			logger.Println("")
			logger.Println("Register with Restate:")
			displayRestateAddr := cfg.Restate.ListenAddr
			if strings.HasPrefix(displayRestateAddr, ":") {
				displayRestateAddr = "localhost" + displayRestateAddr
			}
			logger.Printf("  restate deployments register http://%s", displayRestateAddr)
			logger.Println("")

			go func() {
				defer close(done)
				if err := srv.Start(ctx, cfg.Restate.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
					logger.Printf("Restate server error: %v", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := secrets.BootstrapFromOpenBao(ctx); err != nil {
		cancel()
		log.Fatalf("load secrets from OpenBao: %v", err)
	}
	cancel()

	app := fx.New(
		fx.Provide(
			appconfig.Load,
			newLogger,
			newTokenManager,
			newUpstreamClient,
			newSQLDB,
			postgres.NewRepository,
			newEventPublisher,
			newRecorder,
			newClaimsService,
			newAPIHandler,
		),
		fx.Invoke(
			func(logger *log.Logger, cfg appconfig.Config) {
				logger.Printf("Starting %s against %s...", cfg.ServiceName, cfg.Upstream.BaseURL)
			},
			setupTelemetry,
			registerWebServer,
			registerRestateServer,
		),
	)

	app.Run()
}
