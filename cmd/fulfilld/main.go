// Command fulfilld runs the order fulfillment service: an HTTP API over the
// order workflow, with every downstream dependency guarded by its own
// resilience pipeline and exposed through the health endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orderstack/fulfillment/api"
	"github.com/orderstack/fulfillment/auth"
	"github.com/orderstack/fulfillment/backends"
	"github.com/orderstack/fulfillment/config"
	"github.com/orderstack/fulfillment/health"
	"github.com/orderstack/fulfillment/monitor"
	"github.com/orderstack/fulfillment/observe"
	"github.com/orderstack/fulfillment/order"
	"github.com/orderstack/fulfillment/orderlog"
	"github.com/orderstack/fulfillment/resilience"
	"github.com/orderstack/fulfillment/store"
	"github.com/orderstack/fulfillment/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fulfilld:", err)
		os.Exit(1)
	}
}

func run() error {
	demoOrders := flag.Int("demo", 0, "process this many demo orders concurrently and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			obs.Logger().Error(shutdownCtx, "telemetry shutdown", observe.F("error", err.Error()))
		}
	}()
	logger := obs.Logger()

	mon := monitor.New()
	listeners := []resilience.PipelineOption{resilience.WithListener(mon)}
	if cfg.Observe.Metrics.Enabled {
		callMetrics, err := observe.NewCallMetrics(obs.Meter())
		if err != nil {
			return fmt.Errorf("setup call metrics: %w", err)
		}
		listeners = append(listeners, resilience.WithListener(callMetrics))
	}

	inventoryPipe := resilience.NewPipeline("inventory", cfg.Inventory.Pipeline(), listeners...)
	paymentPipe := resilience.NewPipeline("payment", cfg.Payment.Pipeline(), listeners...)
	shippingPipe := resilience.NewPipeline("shipping", cfg.Shipping.Pipeline(), listeners...)

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	auditLog, closeAudit, err := newAuditLog(cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	wf, err := workflow.New(workflow.Deps{
		Repo: repo,
		Inventory: backends.NewSimulatedInventory(backends.SimulatedInventoryConfig{
			InitialStock: demoStock(),
		}),
		Payment:           backends.NewSimulatedPayment(backends.SimulatedPaymentConfig{}),
		Shipping:          backends.NewSimulatedShipping(backends.SimulatedShippingConfig{}),
		InventoryPipeline: inventoryPipe,
		PaymentPipeline:   paymentPipe,
		ShippingPipeline:  shippingPipe,
		Logger:            logger,
		AuditLog:          auditLog,
	})
	if err != nil {
		return err
	}

	if *demoOrders > 0 {
		return runDemo(ctx, wf, mon, logger, *demoOrders)
	}

	agg := health.NewAggregator(health.AggregatorConfig{})
	for _, dep := range []string{"inventory", "payment", "shipping"} {
		agg.Register(health.NewDependencyChecker(dep, mon, health.DependencyCheckerConfig{}))
	}

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg, mon)

	var verifier *auth.Verifier
	if cfg.Auth.SigningKey != "" {
		verifier, err = auth.NewVerifier(auth.VerifierConfig{
			Key:    []byte(cfg.Auth.SigningKey),
			Issuer: cfg.Auth.Issuer,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn(ctx, "no auth signing key configured, admin endpoints disabled")
	}
	api.NewServer(wf, logger).Register(mux, verifier, cfg.Auth.AdminRole)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "fulfillment service listening", observe.F("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRepository(ctx context.Context, cfg config.Config) (order.Repository, func(), error) {
	switch cfg.Store {
	case "redis":
		repo, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func newAuditLog(cfg config.Config) (orderlog.Log, func(), error) {
	if cfg.AuditLogPath == "" {
		return orderlog.Nop{}, func() {}, nil
	}
	log, err := orderlog.NewSQLite(cfg.AuditLogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return log, func() { log.Close() }, nil
}

// runDemo pushes n orders through the workflow concurrently and prints the
// per-dependency metrics the monitor collected along the way.
func runDemo(ctx context.Context, wf *workflow.Workflow, mon *monitor.Monitor, logger observe.Logger, n int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			o, err := wf.CreateOrder(gctx, workflow.CreateOrderRequest{
				CustomerID: fmt.Sprintf("demo-customer-%d", i%5),
				Items: []order.Item{
					{ProductID: "widget", ProductName: "Widget", Quantity: 1 + i%3, UnitPrice: 9.99},
				},
				ShippingAddress: order.Address{
					Street: "1 Demo St", City: "Springfield", State: "IL", Zip: "62704", Country: "US",
				},
				PaymentMethod: "card",
			})
			if err != nil {
				return err
			}
			// Step failures land the order in failed state; that is a demo
			// outcome, not a run error.
			final, err := wf.ProcessOrder(gctx, o.ID)
			if final == nil {
				return err
			}
			logger.Info(gctx, "demo order finished",
				observe.F("order_id", o.ID),
				observe.F("status", string(final.Status)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for dep, m := range mon.AllMetrics() {
		fmt.Printf("%-10s requests=%d success=%.1f%% retries=%d timeouts=%d circuit=%s\n",
			dep, m.TotalRequests, m.SuccessRate(), m.TotalRetries, m.TimeoutCount, m.State)
	}
	return nil
}

// demoStock seeds the simulated inventory. Real inventory, payment, and
// shipping adapters would replace the simulated clients behind the same
// interfaces.
func demoStock() map[string]int {
	return map[string]int{
		"widget": 1000,
		"gadget": 1000,
		"gizmo":  250,
	}
}
