package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/potatoreg/internal/auth"
	"github.com/dropDatabas3/potatoreg/internal/bootstrap"
	"github.com/dropDatabas3/potatoreg/internal/cache"
	"github.com/dropDatabas3/potatoreg/internal/config"
	httpx "github.com/dropDatabas3/potatoreg/internal/http"
	healthctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/health"
	rbacctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/rbac"
	registryctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/registry"
	simplectl "github.com/dropDatabas3/potatoreg/internal/http/controllers/simple"
	ssoctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/ssoflow"
	usersctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/users"
	rbacsvc "github.com/dropDatabas3/potatoreg/internal/http/services/rbac"
	registrysvc "github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	ssosvc "github.com/dropDatabas3/potatoreg/internal/http/services/ssoflow"
	userssvc "github.com/dropDatabas3/potatoreg/internal/http/services/users"
	jwtx "github.com/dropDatabas3/potatoreg/internal/jwt"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/oidc"
	"github.com/dropDatabas3/potatoreg/internal/security/token"
	"github.com/dropDatabas3/potatoreg/internal/sso"
	"github.com/dropDatabas3/potatoreg/internal/storage"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
	"github.com/dropDatabas3/potatoreg/internal/store/memory"
	"github.com/dropDatabas3/potatoreg/internal/store/pg"
	migrations "github.com/dropDatabas3/potatoreg/migrations/postgres"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "potatoreg:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "ruta del archivo de configuración")
		migrate    = flag.Bool("migrate", false, "aplicar migraciones pendientes al arrancar")
	)
	flag.Parse()

	// .env opcional: en prod la config viene del entorno real
	_ = godotenv.Load()

	configSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configSet = true
		}
	})
	// el default "config.yaml" es opcional; un path explícito que no existe es error
	if _, err := os.Stat(*configPath); err != nil && !configSet && os.Getenv("CONFIG_PATH") == "" {
		*configPath = ""
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *migrate {
		cfg.Flags.Migrate = true
	}

	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: cfg.App.Name})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Storage ----
	var (
		st   core.Store
		ping interface {
			Ping(context.Context) error
		}
		pool *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case "pg":
		pgStore, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pgStore.Close()

		migrator := pg.NewMigrator(migrations.FS)
		if cfg.Flags.Migrate {
			res, err := migrator.Run(ctx, pgStore)
			if err != nil {
				return err
			}
			log.Info("migrations applied",
				logger.Int("applied", len(res.Applied)),
				logger.Int("skipped", len(res.Skipped)))
		} else if pending, err := migrator.HasPending(ctx, pgStore); err == nil && pending {
			log.Warn("pending migrations detected; run with -migrate")
		}

		st, ping, pool = pgStore, pgStore, pgStore.Pool()
	case "memory":
		memStore := memory.New()
		st, ping = memStore, memStore
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	artifacts, err := storage.NewDisk(cfg.Storage.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("preparing artifacts dir: %w", err)
	}

	// ---- Cache ----
	ch, err := cache.New(cache.Config{
		Kind:             cfg.Cache.Kind,
		Prefix:           cfg.Cache.Redis.Prefix,
		RedisAddr:        cfg.Cache.Redis.Addr,
		RedisDB:          cfg.Cache.Redis.DB,
		RedisPassword:    cfg.Cache.Redis.Password,
		MemoryDefaultTTL: cfg.MemoryTTL(),
	})
	if err != nil {
		return fmt.Errorf("building cache: %w", err)
	}

	// ---- Sesiones ----
	secret := cfg.JWT.Secret
	if secret == "" {
		// solo dev: Validate ya abortó este caso en prod
		secret, err = token.GenerateOpaque(32)
		if err != nil {
			return err
		}
		log.Warn("jwt.secret not set; using ephemeral secret, sessions will not survive restarts")
	}
	issuer, err := jwtx.NewIssuer(secret, cfg.JWT.Algorithm, cfg.AccessTTL())
	if err != nil {
		return err
	}
	resolver := auth.NewResolver(st.Users(), issuer)

	// ---- SSO ----
	metadata := oidc.NewMetadataCache(ch, nil)
	keys := oidc.NewKeyCache(ch, metadata, nil)
	states := oidc.NewStateStore(ch)
	var provider *oidc.Provider
	if cfg.SSO.Enabled {
		provider = oidc.NewProvider(oidc.Config{
			IssuerURL:     cfg.SSO.IssuerURL,
			ClientID:      cfg.SSO.ClientID,
			ClientSecret:  cfg.SSO.ClientSecret,
			RedirectURL:   cfg.SSO.RedirectURL,
			Scopes:        cfg.SSO.Scopes,
			AllowedAlgs:   cfg.SSO.AllowedAlgs,
			UsernameClaim: cfg.SSO.UsernameClaim,
			EmailClaim:    cfg.SSO.EmailClaim,
		}, metadata, keys, nil)
	}
	provisioner := sso.NewProvisioner(st, cfg.SSO.AllowAccountLinking)

	// ---- Bootstrap admin ----
	if err := bootstrap.EnsureAdmin(ctx, st.Users(),
		cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminEmail); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	// ---- Metrics ----
	metricsHandler, err := httpx.RegisterMetrics(httpx.MetricsConfig{
		Pool: func() *pgxpool.Pool { return pool },
	})
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// ---- Services + controllers ----
	loginSvc := userssvc.NewLoginService(userssvc.LoginDeps{
		Resolver:     resolver,
		Issuer:       issuer,
		Users:        st.Users(),
		LocalEnabled: cfg.Auth.LocalEnabled,
	})
	crudSvc := userssvc.NewCrudService(userssvc.CrudDeps{Users: st.Users()})
	tokenSvc := userssvc.NewTokenService(userssvc.TokenDeps{Users: st.Users()})
	indexSvc := registrysvc.NewIndexService(registrysvc.IndexDeps{
		Users: st.Users(), Packages: st.Packages(), Storage: artifacts,
	})
	uploadSvc := registrysvc.NewUploadService(registrysvc.UploadDeps{
		Packages: st.Packages(), Storage: artifacts,
	})
	packageSvc := registrysvc.NewPackageService(registrysvc.PackageDeps{
		Users: st.Users(), Packages: st.Packages(), Storage: artifacts,
	})
	rbacSvc := rbacsvc.New(rbacsvc.Deps{
		Users: st.Users(), Roles: st.Roles(), Packages: st.Packages(),
	})
	ssoSvc := ssosvc.New(ssosvc.Deps{
		Enabled:     cfg.SSO.Enabled,
		Provider:    provider,
		States:      states,
		Provisioner: provisioner,
		Issuer:      issuer,
		Users:       st.Users(),
	})

	router := httpx.NewRouter(httpx.RouterDeps{
		Resolver: resolver,
		Health:   healthctl.New(cfg.App.Name, version, ping),
		Token:    usersctl.NewTokenController(loginSvc),
		Users:    usersctl.NewUsersController(crudSvc, tokenSvc),
		Simple:   simplectl.New(indexSvc),
		Upload:   registryctl.NewUploadController(uploadSvc, httpx.RecordUpload),
		Packages: registryctl.NewPackagesController(packageSvc),
		RBAC:     rbacctl.New(rbacSvc),
		SSO:      ssoctl.New(ssoSvc),
		Metrics:  metricsHandler,
	})

	srv := httpx.NewServer(cfg.Server.Addr, router)
	log.Info("starting registry",
		logger.String("env", cfg.App.Env),
		logger.String("driver", cfg.Storage.Driver),
		logger.String("version", version))
	return srv.Run(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
