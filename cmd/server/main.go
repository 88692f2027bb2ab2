package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/planfence/planfence/modules/account"
	billingmod "github.com/planfence/planfence/modules/billing"
	"github.com/planfence/planfence/modules/files"
	"github.com/planfence/planfence/modules/mailer"
	"github.com/planfence/planfence/modules/pages"
	"github.com/planfence/planfence/pkg/config"
	"github.com/planfence/planfence/pkg/cookie"
	"github.com/planfence/planfence/pkg/email"
	"github.com/planfence/planfence/pkg/httpserver"
	"github.com/planfence/planfence/pkg/logger"
	"github.com/planfence/planfence/pkg/mongo"
	"github.com/planfence/planfence/pkg/redis"
	"github.com/planfence/planfence/pkg/session"
	"github.com/planfence/planfence/pkg/upload"
	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

type appConfig struct {
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
	CookieSecret string `env:"COOKIE_SECRET,required"`
	// SessionStore selects the session backend: "memory" or "redis".
	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`
}

func main() {
	ctx := context.Background()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "planfence"))
	logger.SetAsDefault(log)

	if err := run(ctx, appCfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)
	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	store := user.NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	cookieManager, err := cookie.New([]string{appCfg.CookieSecret})
	if err != nil {
		return err
	}

	healthchecks := []func(context.Context) error{mongo.Healthcheck(db.Client())}

	var sessionCfg session.Config
	config.MustLoad(&sessionCfg)
	sessionOpts := []session.Option{session.WithCookieManager(cookieManager)}
	if appCfg.SessionStore == "redis" {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		sessionOpts = append(sessionOpts, session.WithStore(session.NewRedisStore(redisClient)))
		healthchecks = append(healthchecks, redis.Healthcheck(redisClient))
	}
	sessions := session.NewFromConfig(sessionCfg, sessionOpts...)

	var billingCfg billing.Config
	config.MustLoad(&billingCfg)
	gateway, err := billing.NewGateway(billingCfg)
	if err != nil {
		return err
	}
	reconciler := billing.NewReconciler(store, billingCfg.Prices(), log.With(slog.String("component", "reconciler")))

	var uploadCfg upload.Config
	config.MustLoad(&uploadCfg)
	storage, err := newStorage(ctx, uploadCfg)
	if err != nil {
		return err
	}

	var emailCfg email.Config
	config.MustLoad(&emailCfg)
	sender, err := newSender(appCfg.Environment, emailCfg)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware)
	r.Use(user.CurrentUser(store, log.With(slog.String("component", "user"))))

	account.NewModule(store, gateway, sessions, log.With(slog.String("component", "account"))).Register(r)
	billingmod.NewModule(store, gateway, gateway, reconciler, log.With(slog.String("component", "billing"))).Register(r)
	pages.NewModule(log.With(slog.String("component", "pages"))).Register(r)
	files.NewModule(store, storage, uploadCfg.MaxFileSize, log.With(slog.String("component", "files"))).Register(r)
	mailer.NewModule(sender, log.With(slog.String("component", "mailer"))).Register(r)

	r.Get("/health", httpserver.HealthCheckHandler(log, healthchecks...))

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	log.Info("starting server",
		slog.String("addr", httpCfg.Addr),
		slog.String("environment", appCfg.Environment))
	return srv.Run(ctx, r)
}

func newStorage(ctx context.Context, cfg upload.Config) (upload.Storage, error) {
	if cfg.Driver == "s3" {
		return upload.NewS3Storage(ctx, cfg.S3)
	}
	return upload.NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
}

func newSender(environment string, cfg email.Config) (email.EmailSender, error) {
	if environment == "production" {
		return email.NewPostmarkClient(cfg)
	}
	return email.NewDevSender(cfg.DevOutputDir), nil
}
