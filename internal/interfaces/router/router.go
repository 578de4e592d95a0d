package router

import (
	"context"
	"fmt"
	"time"

	authsvc "rics-valuation/internal/application/auth"
	"rics-valuation/internal/application/photos"
	reportsvc "rics-valuation/internal/application/reports"
	wizardsvc "rics-valuation/internal/application/wizard"
	"rics-valuation/internal/config"
	"rics-valuation/internal/infrastructure/kvstore"
	authhandler "rics-valuation/internal/interfaces/handlers/auth"
	healthhandler "rics-valuation/internal/interfaces/handlers/health"
	reporthandler "rics-valuation/internal/interfaces/handlers/reports"
	uploadhandler "rics-valuation/internal/interfaces/handlers/uploads"
	wizardhandler "rics-valuation/internal/interfaces/handlers/wizard"
	"rics-valuation/internal/metrics"
	"rics-valuation/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// BodyLimit leaves room for full-size phone photos before compression.
const BodyLimit = 16 * 1024 * 1024

const sweepInterval = 10 * time.Minute

// Deps are the backends CreateApp opened, for startup checks and shutdown.
type Deps struct {
	Store   kvstore.Store
	Redis   *redis.Client
	Reports *reportsvc.Store
	Wizard  *wizardsvc.Manager

	stopSweep context.CancelFunc
}

// Close stops the session sweeper and releases the redis client.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	if d.stopSweep != nil {
		d.stopSweep()
	}
	if d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

// CreateApp opens the configured store, migrates legacy reports and mounts every route.
func CreateApp(cfg *config.Config) (*fiber.App, *Deps, error) {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	}

	store, err := kvstore.Open(kvstore.Options{
		Backend:    cfg.StoreBackend,
		DSN:        cfg.StoreDSN,
		Redis:      rdb,
		QuotaBytes: cfg.StoreQuotaBytes,
	})
	if err != nil {
		return nil, nil, err
	}

	reports := reportsvc.NewStore(store, cfg.ReportsKey)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if recs, err := reports.Migrate(ctx); err != nil {
		log.Warn().Err(err).Msg("legacy report migration not saved")
	} else {
		log.Info().Int("reports", len(recs)).Str("backend", cfg.StoreBackend).Msg("report store ready")
	}

	manager := wizardsvc.NewManager(reports, wizardsvc.Options{
		SeedExamples: cfg.SeedExamples,
		IdleTimeout:  cfg.WizardIdleTimeout,
	})
	sweepCtx, stop := context.WithCancel(context.Background())
	go manager.Run(sweepCtx, sweepInterval)
	deps := &Deps{Store: store, Redis: rdb, Reports: reports, Wizard: manager, stopSweep: stop}
	return newApp(cfg, deps), deps, nil
}

func newApp(cfg *config.Config, deps *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               BodyLimit,
	})

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessions := deps.Store
	if deps.Redis != nil {
		sessions = kvstore.NewRedis(deps.Redis, 0)
	}

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(sessions))
	app.Use(middleware.HealthMarker(deps.Redis))

	hh := &healthhandler.Handlers{
		Rdb:            deps.Redis,
		Store:          deps.Store,
		StoreBackend:   cfg.StoreBackend,
		Sessions:       deps.Wizard,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.JSON)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ah := &authhandler.Handlers{
		Verifier: authsvc.PasscodeVerifier{Hash: cfg.AccessPasscodeHash},
		Sessions: sessions,
		Config:   sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	var guard []fiber.Handler
	if cfg.LoginEnabled() {
		guard = append(guard, middleware.RequireAuth())
	} else {
		log.Warn().Msg("ACCESS_PASSCODE_HASH not set, report routes are open")
	}

	rh := &reporthandler.Handlers{Store: deps.Reports, Session: sessionCfg}
	rg := app.Group("/api/v1/reports", guard...)
	rg.Get("/", rh.List)
	rg.Get("/filters", rh.Filters)
	rg.Get("/:id", rh.Get)
	rg.Delete("/:id", rh.Delete)
	rg.Patch("/:id/status", rh.ChangeStatus)
	rg.Post("/:id/archive", rh.Archive)
	rg.Get("/:id/export", rh.Export)

	wh := &wizardhandler.Handlers{Manager: deps.Wizard}
	uh := &uploadhandler.Handlers{Manager: deps.Wizard, Options: photos.Options{
		MaxWidth:  cfg.PhotoMaxWidth,
		MaxHeight: cfg.PhotoMaxHeight,
		Quality:   cfg.PhotoJPEGQuality,
	}}
	wg := app.Group("/api/v1/wizard", guard...)
	wg.Post("/", wh.Start)
	wg.Post("/open/:id", wh.Open)
	wg.Get("/:sid", wh.Get)
	wg.Post("/:sid/steps/:step", wh.SaveStep)
	wg.Post("/:sid/next", wh.Next)
	wg.Post("/:sid/previous", wh.Previous)
	wg.Post("/:sid/goto/:step", wh.GoTo)
	wg.Post("/:sid/comparables", wh.AddComparable)
	wg.Patch("/:sid/comparables/:cid", wh.UpdateComparable)
	wg.Put("/:sid/comparables/:cid/adjustments/:field", wh.UpdateAdjustment)
	wg.Delete("/:sid/comparables/:cid", wh.RemoveComparable)
	wg.Put("/:sid/mode", wh.SetMode)
	wg.Put("/:sid/valuation/manual", wh.SetManualValuation)
	wg.Post("/:sid/valuation/calculate", wh.Calculate)
	wg.Post("/:sid/photo", uh.UploadPhoto)
	wg.Delete("/:sid/photo", uh.RemovePhoto)
	wg.Put("/:sid/status", wh.SetStatus)
	wg.Post("/:sid/finalize", wh.Finalize)
	wg.Post("/:sid/close", wh.Close)
	wg.Delete("/:sid/report", wh.DeleteReport)

	return app
}
