// Package app arma el grafo de dependencias a partir de la configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/hellocms/internal/auth"
	"github.com/dropDatabas3/hellocms/internal/cache"
	"github.com/dropDatabas3/hellocms/internal/collection"
	"github.com/dropDatabas3/hellocms/internal/config"
	authctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/health"
	recordsctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/records"
	usersctrl "github.com/dropDatabas3/hellocms/internal/http/controllers/users"
	"github.com/dropDatabas3/hellocms/internal/http/router"
	"github.com/dropDatabas3/hellocms/internal/jwt"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
	"github.com/dropDatabas3/hellocms/internal/observability/metrics"
	"github.com/dropDatabas3/hellocms/internal/rate"
	"github.com/dropDatabas3/hellocms/internal/records"
	"github.com/dropDatabas3/hellocms/internal/security/password"
	"github.com/dropDatabas3/hellocms/internal/store"
	_ "github.com/dropDatabas3/hellocms/internal/store/adapters/dal"
	"github.com/dropDatabas3/hellocms/internal/store/adapters/sqldb"
	"github.com/dropDatabas3/hellocms/internal/users"
)

// App es la aplicación cableada.
type App struct {
	Handler  http.Handler
	Store    store.AdapterConnection
	Cache    cache.Client
	Registry *collection.Registry
	Records  *records.Service
	Users    *users.Service
	Auth     *auth.Service
}

type options struct {
	collectionOpts []collection.Option
	collections    []collection.Collection
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
}

// Option personaliza New.
type Option func(*options)

// WithCollectionOptions agrega opciones al registry (ej: collection.WithHooks).
func WithCollectionOptions(opts ...collection.Option) Option {
	return func(o *options) { o.collectionOpts = append(o.collectionOpts, opts...) }
}

// WithCollections usa estas colecciones en lugar de leer collections.path.
func WithCollections(cols ...collection.Collection) Option {
	return func(o *options) { o.collections = cols }
}

// WithMetricsRegistry usa un registry propio.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// OpenStore abre la conexión de almacenamiento configurada.
func OpenStore(ctx context.Context, cfg *config.Config) (store.AdapterConnection, error) {
	s := cfg.Storage
	return store.OpenAdapter(ctx, store.AdapterConfig{
		Name:          s.Driver,
		DSN:           s.DSN,
		MaxOpenConns:  s.MaxOpenConns,
		MaxIdleConns:  s.MaxIdleConns,
		RedisAddr:     s.Redis.Addr,
		RedisPassword: s.Redis.Password,
		RedisDB:       s.Redis.DB,
		RedisPrefix:   s.Redis.Prefix,
		DeletedTTL:    config.Dur(s.KV.DeletedTTL),
	})
}

// Migrate aplica migraciones si el store las soporta.
func Migrate(ctx context.Context, conn store.AdapterConnection) (*store.MigrationResult, error) {
	m, ok := conn.(store.Migratable)
	if !ok {
		return &store.MigrationResult{}, nil
	}
	return m.Migrate(ctx)
}

// LoadRegistry construye el registry desde collections.path.
func LoadRegistry(cfg *config.Config, opts ...collection.Option) (*collection.Registry, error) {
	cols, err := collection.LoadFile(cfg.Collections.Path)
	if err != nil {
		return nil, err
	}
	return collection.NewRegistry(cols, opts...)
}

// NewUsersService arma el servicio de usuarios con la política configurada.
func NewUsersService(cfg *config.Config, conn store.AdapterConnection, opts ...users.Option) (*users.Service, error) {
	pc := cfg.Auth.Password
	policy := password.Policy{
		MinLength:     pc.MinLength,
		RequireUpper:  pc.RequireUpper,
		RequireLower:  pc.RequireLower,
		RequireDigit:  pc.RequireDigit,
		RequireSymbol: pc.RequireSymbol,
	}
	if pc.BlacklistPath != "" {
		f, err := os.Open(pc.BlacklistPath)
		if err != nil {
			return nil, fmt.Errorf("password blacklist: %w", err)
		}
		defer f.Close()
		if policy.Blacklist, err = password.ReadBlacklist(f); err != nil {
			return nil, fmt.Errorf("password blacklist: %w", err)
		}
	}
	return users.NewService(conn.Users(), policy, cfg.Auth.BcryptCost, opts...), nil
}

// New abre el store y cablea servicios, controllers y router.
// El llamador debe invocar Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	log := logger.Named("app")

	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// 1. Store
	if a.Store, err = OpenStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("store opened", logger.Adapter(a.Store.Name()))
	if cfg.Storage.AutoMigrate {
		res, err := Migrate(ctx, a.Store)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", logger.Count(len(res.Applied)))
	}

	// 2. Colecciones
	if o.collections != nil {
		a.Registry, err = collection.NewRegistry(o.collections, o.collectionOpts...)
	} else {
		a.Registry, err = LoadRegistry(cfg, o.collectionOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	log.Info("collections loaded", logger.Count(a.Registry.Len()))

	// 3. Cache de principals
	cc := cache.Config{Kind: cfg.Cache.Kind, Prefix: cfg.Cache.Redis.Prefix}
	if cfg.Cache.Kind == "redis" {
		cc.Addr = cfg.Cache.Redis.Addr
		cc.Password = cfg.Cache.Redis.Password
		cc.DB = cfg.Cache.Redis.DB
	}
	if a.Cache, err = cache.New(ctx, cc); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	// 4. Auth
	issuer, err := jwt.NewIssuer(cfg.Auth.Issuer, []byte(cfg.Auth.JWTSecret), config.Dur(cfg.Auth.SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("jwt issuer: %w", err)
	}
	resolver := auth.NewResolver(issuer, a.Store.Sessions(), a.Store.Users(), a.Cache, config.Dur(cfg.Auth.PrincipalCacheTTL))
	a.Auth = auth.NewService(a.Store.Users(), a.Store.Sessions(), issuer, resolver)

	// 5. Servicios de dominio
	if a.Users, err = NewUsersService(cfg, a.Store, users.WithInvalidator(resolver)); err != nil {
		return nil, err
	}
	a.Records = records.NewService(a.Registry, a.Store.Records())

	// 6. Métricas
	var extra []prometheus.Collector
	if sc, ok := a.Store.(*sqldb.Connection); ok {
		extra = append(extra, metrics.NewDBStatsCollector(sc.DB(), sc.Name()))
	}
	metricsHandler, err := metrics.Register(metrics.Config{Registry: o.registerer, Gatherer: o.gatherer, Extra: extra})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 7. Rate limiting
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		limiter = newLimiter(cfg, a.Cache)
	}

	// 8. HTTP
	a.Handler = router.New(router.Deps{
		Records: recordsctrl.NewController(a.Records, cfg.Server.MaxBodyBytes),
		Auth:    authctrl.NewController(a.Auth, a.Users),
		Users:   usersctrl.NewController(a.Users),
		Health: healthctrl.NewController(
			healthctrl.Check{Name: "store", Pinger: a.Store},
			healthctrl.Check{Name: "cache", Pinger: a.Cache},
		),
		Resolver:      resolver,
		Metrics:       metricsHandler,
		SignInLimiter: limiter,
	})
	return a, nil
}

// newLimiter comparte la conexión redis del cache si existe; si no, memoria.
func newLimiter(cfg *config.Config, c cache.Client) rate.Limiter {
	max := cfg.Rate.SignIn.Limit
	window := config.Dur(cfg.Rate.SignIn.Window)
	if rc, ok := cache.RedisOf(c); ok {
		return rate.NewRedisLimiter(rc, cfg.Cache.Redis.Prefix+":rl:", max, window)
	}
	return rate.NewMemoryLimiter(max, window)
}

// Close libera cache y store.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
