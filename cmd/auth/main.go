package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/bootstrap"
	"github.com/vinshon/buildxup-backend/internal/config"
	httptransport "github.com/vinshon/buildxup-backend/internal/http"
	"github.com/vinshon/buildxup-backend/internal/http/handler"
	httpmiddleware "github.com/vinshon/buildxup-backend/internal/http/middleware"
	apimiddleware "github.com/vinshon/buildxup-backend/internal/middleware"
	"github.com/vinshon/buildxup-backend/internal/notify"
	"github.com/vinshon/buildxup-backend/internal/otp"
	"github.com/vinshon/buildxup-backend/internal/repository"
	"github.com/vinshon/buildxup-backend/internal/server"
	"github.com/vinshon/buildxup-backend/internal/service"
	"github.com/vinshon/buildxup-backend/internal/telemetry"
	"github.com/vinshon/buildxup-backend/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newCompanyRepository,
			newMembershipRepository,
			newAccountRepository,
			newTempOTPRepository,
			newSender,
			newTokenCodec,
			newOTPService,
			service.NewAuthService,
			newAuthHandler,
			newHealthHandler,
			newAuthMiddleware,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSchema, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newCompanyRepository(pool *pgxpool.Pool) repository.CompanyRepository {
	return repository.NewPostgresCompanyRepo(pool)
}

func newMembershipRepository(pool *pgxpool.Pool) repository.MembershipRepository {
	return repository.NewPostgresMembershipRepo(pool)
}

func newAccountRepository(pool *pgxpool.Pool) repository.AccountRepository {
	return repository.NewPostgresAccountRepo(pool)
}

func newTempOTPRepository(pool *pgxpool.Pool) repository.TempOTPRepository {
	return repository.NewPostgresTempOTPRepo(pool)
}

// newSender picks the delivery backend. Without a provider URL codes are
// logged instead of sent, which is the development setup.
func newSender(cfg config.Config, logger *zap.Logger) notify.Sender {
	if cfg.SMSProviderURL == "" {
		return notify.NewLogSender(logger)
	}
	return notify.NewHTTPSender(cfg.SMSProviderURL, cfg.SMSProviderToken, cfg.SMSSender, cfg.EmailFrom, nil, logger)
}

func newTokenCodec(cfg config.Config) *token.Codec {
	return token.NewCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func newOTPService(
	store repository.TempOTPRepository,
	users repository.UserRepository,
	sender notify.Sender,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) *otp.Service {
	return otp.NewService(store, users, sender, node, cfg.OTPTTL, logger)
}

func newAuthHandler(auth *service.AuthService, cfg config.Config, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, cfg.Development(), logger)
}

func newHealthHandler(pool *pgxpool.Pool) *handler.HealthHandler {
	return handler.NewHealthHandler(pool)
}

func newAuthMiddleware(auth *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Verifier: auth}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			logger.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
