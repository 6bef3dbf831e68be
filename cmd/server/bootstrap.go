package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/api"
	"github.com/charlesng35/sosrelay/internal/app"
	"github.com/charlesng35/sosrelay/internal/app/maintenance"
	iauth "github.com/charlesng35/sosrelay/internal/auth"
	"github.com/charlesng35/sosrelay/internal/cache"
	"github.com/charlesng35/sosrelay/internal/database"
	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/middleware"
	"github.com/charlesng35/sosrelay/internal/realtime"
	"github.com/charlesng35/sosrelay/internal/services"
	"github.com/charlesng35/sosrelay/pkg/sms"
)

const smsProviderSemaphore = "semaphore"

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Hub       *realtime.Hub
	Recorder  *fanout.Recorder
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises storage, delivery providers, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background())
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	var sharedCache cache.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to the database cache", zap.Error(err))
		} else {
			sharedCache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	stack.RateStore = middleware.NewCacheRateStore(sharedCache)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, emailProvider, err := cfg.Email.NewMailer()
	if err != nil {
		return nil, fmt.Errorf("initialise %s mailer: %w", emailProvider, err)
	}
	smsGateway, err := sms.NewSemaphoreSender(cfg.SMS.SemaphoreSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise sms gateway: %w", err)
	}

	records, err := newRecordStore(cfg, stack.DB)
	if err != nil {
		return nil, err
	}
	log.Info("notification records configured", zap.String("backend", cfg.RecordsBackend()))

	stack.Recorder = fanout.NewRecorder(records, cfg.Fanout.RecorderConfig())
	orchestrator := fanout.NewOrchestrator(
		fanout.NewEmailSender(emailProvider, mailer),
		fanout.NewSMSSender(smsProviderSemaphore, smsGateway),
		stack.Recorder,
	)

	stack.Hub = realtime.NewHub(cfg.Realtime.AllowedOrigins...)

	contacts, err := services.NewContactService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise contact service: %w", err)
	}
	alerts, err := services.NewAlertService(stack.DB, contacts, orchestrator, records, stack.Hub)
	if err != nil {
		return nil, fmt.Errorf("initialise alert service: %w", err)
	}
	alerts.WithFeedCache(sharedCache, cfg.Cache.ActiveFeedTTL)

	evidenceStore, err := evidence.New(cfg.Storage.EvidenceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise evidence storage: %w", err)
	}
	if err := evidenceStore.EnsureBuckets(ctx); err != nil {
		return nil, err
	}

	stack.Cleaner = maintenance.NewCleaner(
		maintenance.WithCachePurger(dbStore),
		maintenance.WithRecordRetention(records, cfg.Maintenance.RecordRetentionDays),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		DB:        stack.DB,
		JWT:       jwtSvc,
		Hub:       stack.Hub,
		Notifier:  orchestrator,
		Alerts:    alerts,
		Contacts:  contacts,
		Evidence:  evidenceStore,
		RateStore: stack.RateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown drains queued notification records, stops background jobs and releases connections.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var err error
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Recorder != nil {
		err = multierr.Append(err, s.Recorder.Close(ctx))
	}
	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			err = multierr.Append(err, fmt.Errorf("maintenance jobs still running: %w", ctx.Err()))
		}
	}
	if s.Redis != nil {
		err = multierr.Append(err, s.Redis.Close())
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
	}
	return err
}

func newRecordStore(cfg *app.Config, db *gorm.DB) (services.RecordStore, error) {
	if cfg.RecordsBackend() == app.RecordsBackendREST {
		store, err := services.NewRestRecordStore(cfg.Backend.RestRecordConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise rest record store: %w", err)
		}
		return store, nil
	}

	store, err := services.NewNotificationRecordService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise record store: %w", err)
	}
	return store, nil
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.Connection()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
