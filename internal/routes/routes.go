package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/clearing/internal/config"
	"github.com/congo-pay/clearing/internal/events"
	"github.com/congo-pay/clearing/internal/gateway"
	"github.com/congo-pay/clearing/internal/idempotency"
	"github.com/congo-pay/clearing/internal/ledger"
	"github.com/congo-pay/clearing/internal/metrics"
	"github.com/congo-pay/clearing/internal/middleware"
	"github.com/congo-pay/clearing/internal/reconciliation"
	"github.com/congo-pay/clearing/internal/retry"
	"github.com/congo-pay/clearing/internal/saga"
	"github.com/congo-pay/clearing/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, in which case in-memory stores are used.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Publisher events.Publisher
	Registry  *prometheus.Registry
	// Gateway overrides the simulated interbank network.
	Gateway gateway.Gateway
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.Development() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	if err := RegisterMetricsRoute(app, d.Registry); err != nil {
		return err
	}

	var ledgerStore ledger.Store
	var reconStore reconciliation.Store
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresLedger(d.DB)
		reconStore = reconciliation.NewPostgresStore(d.DB)
	} else {
		ledgerStore = ledger.NewInMemory()
		reconStore = reconciliation.NewMemoryStore()
	}

	var idemStore idempotency.Store
	if d.Cache != nil {
		idemStore = idempotency.NewRedisStore(d.Cache)
	} else {
		idemStore = idempotency.NewMemoryStore()
	}
	guard := idempotency.NewGuard(idemStore, d.Cfg.IdempotencyTTL)

	gw := d.Gateway
	if gw == nil {
		gw = gateway.NewSimulator(gateway.SimulatorConfig{
			MinLatency:  d.Cfg.GatewayMinLatency,
			MaxLatency:  d.Cfg.GatewayMaxLatency,
			FailureRate: d.Cfg.GatewayFailureRate,
		})
	}

	transfer := gateway.NewStep(gw, gateway.DefaultBreakerConfig(), d.Logger)
	RegisterHealthRoutes(app, d, transfer)

	coordinator := saga.NewCoordinator(saga.Deps{
		Guard:           guard,
		Ledger:          ledger.NewOperations(ledgerStore),
		Transfer:        transfer,
		Reconciliations: reconStore,
		Publisher:       d.Publisher,
		Metrics:         metrics.NewRecorder(d.Registry),
		Logger:          d.Logger,
	}, SagaConfig(d.Cfg))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterClearingRoutes(api, coordinator, guard)
	RegisterWalletRoutes(api, wallet.NewHandler(wallet.NewService(ledgerStore)))
	RegisterReconciliationRoutes(api, reconciliation.NewHandler(reconStore))

	return nil
}

// SagaConfig derives coordinator limits from the runtime configuration.
func SagaConfig(cfg config.Config) saga.Config {
	out := saga.DefaultConfig()
	if cfg.SagaTimeout > 0 {
		out.Timeout = cfg.SagaTimeout
	}
	if cfg.StepTimeout > 0 {
		out.StepTimeout = cfg.StepTimeout
	}
	steps := []struct {
		policy   *retry.Policy
		attempts int
	}{
		{&out.IdempotencyRetry, cfg.IdempotencyAttempts},
		{&out.DebitRetry, cfg.DebitAttempts},
		{&out.TransferRetry, cfg.TransferAttempts},
		{&out.CreditRetry, cfg.CreditAttempts},
	}
	for _, step := range steps {
		if step.attempts > 0 {
			step.policy.MaxAttempts = step.attempts
		}
		if cfg.RetryBaseDelay > 0 {
			step.policy.BaseDelay = cfg.RetryBaseDelay
		}
		if cfg.RetryMaxDelay > 0 {
			step.policy.MaxDelay = cfg.RetryMaxDelay
		}
		if cfg.RetryJitter > 0 {
			step.policy.Jitter = cfg.RetryJitter
		}
	}
	return out
}
