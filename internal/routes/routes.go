package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rupeeflow/rupeeflow/internal/auth"
	"github.com/rupeeflow/rupeeflow/internal/config"
	"github.com/rupeeflow/rupeeflow/internal/funding"
	"github.com/rupeeflow/rupeeflow/internal/gateway"
	"github.com/rupeeflow/rupeeflow/internal/idempotency"
	"github.com/rupeeflow/rupeeflow/internal/identity"
	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/limits"
	"github.com/rupeeflow/rupeeflow/internal/middleware"
	"github.com/rupeeflow/rupeeflow/internal/notification"
	"github.com/rupeeflow/rupeeflow/internal/otp"
	"github.com/rupeeflow/rupeeflow/internal/storage"
	"github.com/rupeeflow/rupeeflow/internal/transfers"
	"github.com/rupeeflow/rupeeflow/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// every store falls back to its in-memory twin, which keeps local development
// and the test suite self-contained.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	policy := otp.Policy{Validity: d.Cfg.Limits.OTPValidity, CodeLength: d.Cfg.Limits.OTPLength}
	ceilings := limits.Ceilings{
		AddedMinor:       d.Cfg.Limits.DailyAddCeilingMinor,
		TransferredMinor: d.Cfg.Limits.DailyTransferMinor,
	}

	var (
		db           storage.Queryer
		runner       storage.TxRunner
		walletStore  wallet.Store
		ledgerEngine ledger.Engine
		otpManager   otp.Manager
		tracker      limits.Tracker
		identityRepo identity.Repository
	)
	if d.DB != nil {
		db = d.DB
		runner = storage.NewPgxRunner(d.DB)
		walletStore = wallet.NewPostgresStore()
		ledgerEngine = ledger.NewPostgresEngine()
		otpManager = otp.NewPostgresManager(policy)
		tracker = limits.NewPostgresTracker(ceilings)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		walletStore = wallet.NewMemoryStore()
		ledgerEngine = ledger.NewInMemory()
		otpManager = otp.NewMemoryManager(policy)
		tracker = limits.NewMemoryTracker(ceilings)
		runner = storage.NewMemoryRunner(
			walletStore.(storage.Participant),
			ledgerEngine.(storage.Participant),
			otpManager.(storage.Participant),
			tracker.(storage.Participant),
		)
		identityRepo = identity.NewMemoryRepository()
	}

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	walletSvc := wallet.NewService(walletStore, ledgerEngine, db)
	notifier := notification.NewLoggerNotifier(d.Logger)
	guard := idempotency.NewGuard(d.Cache, ledgerEngine, db, d.Cfg.IdempotencyTTL, d.Logger)

	var gw gateway.Gateway = gateway.NewSimulated()
	if d.Cfg.StripeSecretKey != "" {
		gw = gateway.SplitByMethod(gateway.NewStripe(d.Cfg.StripeSecretKey), gw)
	}
	gw = gateway.WithTimeout(gw, d.Cfg.GatewayTimeout)

	fundingSvc := funding.NewService(d.Cfg, funding.Deps{
		Runner:  runner,
		DB:      db,
		Wallets: walletStore,
		Ledger:  ledgerEngine,
		Tracker: tracker,
		Guard:   guard,
		Gateway: gw,
		Logger:  d.Logger,
	})
	transferSvc := transfers.NewService(d.Cfg, transfers.Deps{
		Runner:   runner,
		DB:       db,
		Wallets:  walletStore,
		Ledger:   ledgerEngine,
		OTPs:     otpManager,
		Tracker:  tracker,
		Guard:    guard,
		Users:    identitySvc,
		Notifier: notifier,
		Logger:   d.Logger,
	})

	identityHandler := identity.NewHandler(identitySvc, walletSvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	fundingHandler := funding.NewHandler(fundingSvc)
	transferHandler := transfers.NewHandler(transferSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identityHandler)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	protected := api.Group("", middleware.JWTAuth(authSvc))
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"email":         user.Email,
			"name":          user.Name,
			"status":        user.Status,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
			"last_login":    user.LastLogin,
		})
	})
	RegisterWalletRoutes(protected, walletHandler)
	RegisterFundingRoutes(protected, fundingHandler)
	RegisterTransferRoutes(protected, transferHandler)

	return nil
}
