// Command server runs the Full Fuel TV API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/fullfuel-tv/internal/config"
	"github.com/iliyamo/fullfuel-tv/internal/database"
	"github.com/iliyamo/fullfuel-tv/internal/handler"
	"github.com/iliyamo/fullfuel-tv/internal/identity"
	"github.com/iliyamo/fullfuel-tv/internal/logger"
	"github.com/iliyamo/fullfuel-tv/internal/metrics"
	"github.com/iliyamo/fullfuel-tv/internal/middleware"
	"github.com/iliyamo/fullfuel-tv/internal/queue"
	"github.com/iliyamo/fullfuel-tv/internal/repository"
	"github.com/iliyamo/fullfuel-tv/internal/router"
	"github.com/iliyamo/fullfuel-tv/internal/service"
	"github.com/iliyamo/fullfuel-tv/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	users := repository.NewUserRepo(db)
	content := repository.NewContentRepo(db)

	google, err := identity.NewGoogleVerifier(ctx, identity.GoogleConfig{
		ClientID: cfg.GoogleClientID,
		CertsURL: cfg.GoogleCertsURL,
		Client:   &http.Client{Timeout: cfg.VerifierTimeout},
	})
	if err != nil {
		return err
	}
	if cfg.AllowUnverifiedAssertions {
		log.Warn("unverified Google assertions are accepted when certificate verification fails")
	}

	authCfg := service.AuthConfig{
		Users:           users,
		Tokens:          utils.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL),
		Verifier:        identity.NewChain(google, cfg.AllowUnverifiedAssertions, log),
		Metrics:         collector,
		Logger:          log,
		BcryptCost:      cfg.BcryptCost,
		StoreTimeout:    cfg.StoreTimeout,
		VerifierTimeout: cfg.VerifierTimeout,
	}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, 0, log)
		authCfg.Events = pub
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("account event publisher stopped", "error", err)
			}
		}()

		consumer := &queue.Consumer{URL: cfg.AMQPURL, LogDir: "logs", Logger: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("account event consumer stopped", "error", err)
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set, account events disabled")
	}
	auth := service.NewAuthService(authCfg)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))

	router.RegisterRoutes(e, metrics.Handler(reg))
	router.RegisterAuth(e, handler.NewAuthHandler(auth), middleware.NewTokenBucket(cfg.RateLimit, rdb))
	router.RegisterUsers(e, handler.NewUserHandler(users, log, cfg.StoreTimeout), auth)
	router.RegisterContent(e, handler.NewContentHandler(content, log, cfg.StoreTimeout), auth,
		middleware.NewRedisCache(cfg.Cache, rdb))

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
