// Package server arma las dependencias del servicio y expone el handler HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/connections"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/health"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/controllers/signin"
	mw "github.com/dropDatabas3/socialconnect/internal/http/v2/middlewares"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/router"
	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/rate"
	"github.com/dropDatabas3/socialconnect/internal/session"
	"github.com/dropDatabas3/socialconnect/internal/social"
	"github.com/dropDatabas3/socialconnect/internal/store"
)

// App es el servicio armado.
type App struct {
	Handler   http.Handler
	Store     store.AdapterConnection
	Users     *store.UsersConnectionRepository
	Factories *connect.Registry
	Services  *social.ServiceRegistry
	Metrics   *metrics.Metrics

	closers []func() error
}

// Close libera store y cache en orden inverso de creación.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build arma el servicio a partir de la config. Los providers vienen de los
// builders registrados (importar providers/all).
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.From(ctx).With(logger.Component("server.wiring"))
	app := &App{}
	built := false
	defer func() {
		if !built {
			_ = app.Close()
		}
	}()

	// 1. Claves
	credCodec, err := cfg.Codec(config.KeyCredentials)
	if err != nil {
		return nil, fmt.Errorf("credentials key: %w", err)
	}
	configCodec, err := cfg.Codec(config.KeyConfig)
	if err != nil {
		return nil, fmt.Errorf("config key: %w", err)
	}
	stateKey, err := cfg.DerivedKey(config.KeyState)
	if err != nil {
		return nil, fmt.Errorf("state key: %w", err)
	}
	issuer := cfg.Server.BaseURL
	if issuer == "" {
		issuer = "socialconnect"
	}
	states, err := social.NewStateSigner(stateKey, issuer, cfg.Security.StateTTL)
	if err != nil {
		return nil, err
	}

	// 2. Métricas
	m, err := metrics.New(nil)
	if err != nil {
		return nil, err
	}
	app.Metrics = m

	// 3. Providers
	pcfgs, err := cfg.ProviderConfigs(configCodec)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	for i := range pcfgs {
		pcfgs[i].HTTPClient = httpClient
		pcfgs[i].Observe = m.ObserveProviderCall
		pcfgs[i].Exchange = m.OAuthExchange
	}
	app.Factories = connect.NewRegistry()
	app.Services = social.NewServiceRegistry()
	if err := providers.Setup(pcfgs, states, app.Factories, app.Services); err != nil {
		return nil, err
	}
	log.Info("providers configured", logger.Count(len(pcfgs)))

	// 4. Storage
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		Path:         cfg.Storage.Path,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", cfg.Storage.Driver, err)
	}
	app.Store = conn
	app.closers = append(app.closers, conn.Close)
	if cfg.Storage.Migrate {
		if mc, ok := conn.(store.MigratableConnection); ok {
			res, err := mc.Migrate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", logger.Count(len(res.Applied)))
		}
	}
	if err := m.RegisterPool(conn); err != nil {
		return nil, err
	}

	var signUp repository.ConnectionSignUp
	if cfg.Social.ImplicitSignUp {
		signUp = repository.ConnectionSignUpFunc(func(context.Context, connect.Connection) (string, error) {
			return uuid.NewString(), nil
		})
	}
	users, err := store.NewUsersConnectionRepository(store.ConnectionsDeps{
		Store:          conn.Connections(),
		Registry:       app.Factories,
		Codec:          credCodec,
		SignUp:         signUp,
		RefreshExpired: cfg.Storage.RefreshExpired,
	})
	if err != nil {
		return nil, err
	}
	app.Users = users

	// 5. Cache de sesiones + rate limiter
	var (
		cacheClient cache.Client
		limiter     rate.Limiter
	)
	switch cfg.Cache.Kind {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		cacheClient = cache.NewRedis(rdb, cfg.Cache.Redis.Prefix)
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.SignIn.Limit, cfg.Rate.SignIn.Window)
		}
	default:
		cacheClient = cache.NewMemory("", 0)
		if cfg.Rate.Enabled {
			limiter = rate.NewMemoryLimiter(cfg.Rate.SignIn.Limit, cfg.Rate.SignIn.Window)
		}
	}
	sessions := session.NewStore(session.Deps{
		Cache: cacheClient,
		TTL:   cfg.Session.TTL,
		Cookie: session.CookieConfig{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.Domain,
			Secure:   cfg.Session.Secure,
			SameSite: cfg.Session.SameSite,
		},
	})

	// 6. Flujo social
	connector := social.NewConnector(users)
	filter, err := social.NewFilter(social.FilterDeps{
		Services:  app.Services,
		Provider:  social.NewAuthenticationProvider(users, nil),
		Connector: connector,
		Sessions:  sessions,
		URLs: social.URLs{
			BaseURL:        cfg.Server.BaseURL,
			SignInPath:     cfg.Social.SignInPath,
			SignupURL:      cfg.Social.SignupURL,
			PostLoginURL:   cfg.Social.PostLoginURL,
			PostConnectURL: cfg.Social.PostConnectURL,
			FailureURL:     cfg.Social.FailureURL,
		},
		Recorder: m,
	})
	if err != nil {
		return nil, err
	}

	// 7. HTTP
	ctrls, err := controllers.New(controllers.Deps{
		Connect: connections.Deps{
			Services:       app.Services,
			Connector:      connector,
			Users:          users,
			Sessions:       sessions,
			BaseURL:        cfg.Server.BaseURL,
			ConnectPath:    cfg.Social.ConnectPath,
			PostConnectURL: cfg.Social.PostConnectURL,
			Recorder:       m,
		},
		SignIn: signin.Deps{
			Filter:   filter,
			Utils:    social.NewSignInUtils(app.Factories, users),
			Sessions: sessions,
			Recorder: m,
		},
		HealthChecks: map[string]health.Pinger{
			"store": conn,
			"cache": cacheClient,
		},
	})
	if err != nil {
		return nil, err
	}

	app.Handler = router.New(router.Deps{
		Controllers: ctrls,
		Sessions:    sessions,
		Metrics:     m,
		RateLimiter: limiter,
		Reconnect: mw.ReconnectConfig{
			Users: users,
			OnRemoved: func(providerID string) {
				m.ConnectionChanged(providerID, connections.OpRemoved)
			},
		},
		SignInPath:  cfg.Social.SignInPath,
		ConnectPath: cfg.Social.ConnectPath,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	built = true
	return app, nil
}

// Run sirve hasta que ctx se cancela y luego hace shutdown ordenado.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.From(ctx).With(logger.Component("server"))

	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("cleanup error", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", cfg.Storage.Driver),
			logger.String("cache", cfg.Cache.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
