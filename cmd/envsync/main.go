package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/EnvSync-Cloud/envsync-api/pkg/access"
	"github.com/EnvSync-Cloud/envsync-api/pkg/api"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apikeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apps"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/cache"
	"github.com/EnvSync-Cloud/envsync-api/pkg/config"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envtypes"
	"github.com/EnvSync-Cloud/envsync-api/pkg/idp"
	"github.com/EnvSync-Cloud/envsync-api/pkg/mail"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/onboarding"
	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
	"github.com/EnvSync-Cloud/envsync-api/pkg/roles"
	"github.com/EnvSync-Cloud/envsync-api/pkg/settings"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
	"github.com/EnvSync-Cloud/envsync-api/pkg/uploads"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Connect(ctx, storage.Config{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	c, err := cache.New(cache.Config{
		Backend:    cfg.Cache.Backend,
		RedisURL:   cfg.Cache.RedisURL,
		TTL:        cfg.Cache.TTL,
		MemorySize: cfg.Cache.MemorySize,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize cache")
		os.Exit(1)
	}
	defer c.Close()

	verifier, err := auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
		IssuerURL: cfg.Auth.IssuerURL,
		Audience:  cfg.Auth.Audience,
	})
	if err != nil {
		logger.WithError(err).Error("failed to discover OIDC provider")
		os.Exit(1)
	}

	objectStore, err := uploads.NewS3Store(ctx, cfg.S3)
	if err != nil {
		logger.WithError(err).Error("failed to initialize object storage")
		os.Exit(1)
	}

	idpClient := idp.NewClient(ctx, idp.Config{
		Domain:       cfg.Auth.IssuerURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
	})

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}

	auditStore := audit.NewDBStore(db)
	recorder := audit.NewAsyncRecorder(auditStore, logger, metrics, cfg.Audit.QueueSize)
	defer recorder.Close()

	sweeper := audit.NewRetentionSweeper(auditStore, logger, cfg.Audit.RetentionDays)
	if err := sweeper.Start(cfg.Audit.RetentionSchedule); err != nil {
		logger.WithError(err).Error("failed to start audit retention sweeper")
		os.Exit(1)
	}
	defer sweeper.Stop()

	authStore := auth.NewStore(db)
	authMiddleware := auth.NewMiddleware(auth.NewValidator(verifier, authStore, metrics), authStore)

	orgStore := orgs.NewStore(db, c, metrics)
	roleStore := rbac.NewStore(db)
	envTypeStore := envtypes.NewStore(db)
	appStore := apps.NewStore(db)
	userStore := users.NewStore(db)
	onboardingStore := onboarding.NewStore(db)
	onboardingService := onboarding.NewService(
		onboardingStore, orgStore, roleStore, envTypeStore, userStore, idpClient)

	handlers := api.Handlers{
		Access:     access.NewHandlers(cfg.Auth),
		Onboarding: onboarding.NewHandlers(onboardingStore, onboardingService, mailer, recorder, cfg.Server.BaseURL),
		Orgs:       orgs.NewHandlers(orgStore, recorder),
		Users:      users.NewHandlers(userStore, idpClient, recorder),
		Roles:      roles.NewHandlers(roleStore, recorder, metrics),
		Apps:       apps.NewHandlers(appStore, recorder),
		EnvTypes:   envtypes.NewHandlers(envTypeStore, recorder),
		Envs:       envs.NewHandlers(envs.NewStore(db), envTypeStore, appStore, recorder),
		APIKeys:    apikeys.NewHandlers(apikeys.NewStore(db), recorder, metrics),
		Settings:   settings.NewHandlers(settings.NewStore(db), recorder),
		Uploads:    uploads.NewHandlers(objectStore, recorder),
		Audit:      audit.NewHandlers(auditStore, recorder, metrics),
	}

	server := api.NewServer(cfg, logger, metrics, db, c, authMiddleware, recorder, handlers)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
