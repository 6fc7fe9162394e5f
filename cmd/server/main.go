package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewardly/rewardly/api"
	"github.com/rewardly/rewardly/cache"
	redisstore "github.com/rewardly/rewardly/cache/redis"
	"github.com/rewardly/rewardly/config"
	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/filestore"
	"github.com/rewardly/rewardly/internal/auth"
	"github.com/rewardly/rewardly/internal/fbgraph"
	"github.com/rewardly/rewardly/internal/mailer"
	"github.com/rewardly/rewardly/internal/qr"
	"github.com/rewardly/rewardly/mongodb"
	"github.com/rewardly/rewardly/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.Storage).
		Str("links", cfg.Links).
		Msg("starting rewardly server")

	ctx := context.Background()

	users, cleanupStorage, err := newUserRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize user storage")
	}
	defer cleanupStorage()

	links, err := newLinkStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize link registry")
	}
	defer func() {
		if err := links.Close(); err != nil {
			log.Error().Err(err).Msg("error closing link registry")
		}
	}()

	notifier := mailer.NewSMTPNotifier(mailer.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		AdminEmail: cfg.AdminEmail,
	})

	tokens := services.NewTokenService(cfg.JWTSecretKey, cfg.AccessTokenTTL())
	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)

	fbConfig := services.FacebookConfig{
		AppID:       cfg.FacebookAppID,
		AppSecret:   cfg.FacebookAppSecret,
		RedirectURL: cfg.FacebookRedirectURL(),
	}
	if !fbConfig.Configured() {
		log.Warn().Msg("facebook app credentials not set, facebook linking disabled")
	}

	restAPI := api.New(
		services.NewAuthService(users, hasher, tokens, notifier),
		services.NewUserService(users, notifier),
		services.NewLinkingService(links, users, qr.NewRenderer(), notifier),
		services.NewFacebookService(fbConfig, links, users, fbgraph.NewClient(""), notifier),
		tokens,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))
	restAPI.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("server stopped")
}

func setupLogging(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("invalid LOG_LEVEL, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func newUserRepository(ctx context.Context, cfg *config.ServerConfig) (domain.UserRepository, func(), error) {
	switch cfg.Storage {
	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo, err := mongodb.NewUserRepository(ctx, db)
		if err != nil {
			mongodb.Disconnect(ctx, client)
			return nil, nil, err
		}
		return repo, func() { mongodb.Disconnect(context.Background(), client) }, nil
	default:
		repo, err := filestore.NewUserRepository(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func newLinkStore(ctx context.Context, cfg *config.ServerConfig) (domain.LinkStore, error) {
	if cfg.Links != config.LinksRedis {
		return cache.NewMemoryLinkStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return redisstore.NewLinkStore(client, "rewardly"), nil
}
