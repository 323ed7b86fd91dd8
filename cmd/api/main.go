package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/danuprasetya/go-storefront/internal/auth"
	"github.com/danuprasetya/go-storefront/internal/catalog"
	"github.com/danuprasetya/go-storefront/internal/config"
	"github.com/danuprasetya/go-storefront/internal/httpx"
	kafkax "github.com/danuprasetya/go-storefront/internal/kafka"
	"github.com/danuprasetya/go-storefront/internal/orders"
	"github.com/danuprasetya/go-storefront/internal/payments"
	"github.com/danuprasetya/go-storefront/internal/postgres"
	"github.com/danuprasetya/go-storefront/internal/pricing"
	"github.com/danuprasetya/go-storefront/internal/realtime"
	"github.com/danuprasetya/go-storefront/internal/redisx"
	"github.com/danuprasetya/go-storefront/internal/shipping"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	paidProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	paidProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	statusProd.Start(ctx)
	cancelProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	cancelProd.Start(ctx)
	stockProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockUpdated, 1024)
	stockProd.Start(ctx)

	// Domain wiring
	orderRepo := &orders.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}
	sessions := &auth.Sessions{Secret: cfg.JWTSecret}
	validator := &pricing.Validator{DB: db}
	checkout := &payments.Checkout{
		Orders:        orderRepo,
		Payments:      paymentRepo,
		Gateway:       payments.NewRESTGateway(cfg.GatewayBaseURL, cfg.GatewaySecretKey),
		Stock:         orderRepo,
		Coupons:       validator,
		Cache:         payments.RedisSessionCache{RDB: rdb},
		Producer:      paidProd,
		StockProducer: stockProd,
		AppBaseURL:    cfg.AppBaseURL,
		Service:       cfg.ServiceName,
	}

	router := httpx.NewRouter(httpx.MaintenanceGate(cfg.MaintenanceMode, cfg.ServiceRoleKey))
	(&httpx.CheckoutHandler{Checkout: checkout, Sessions: sessions}).Register(router)
	(&httpx.OrdersHandler{
		Repo:           orderRepo,
		Sessions:       sessions,
		Redis:          rdb,
		StatusProducer: statusProd,
		CancelProducer: cancelProd,
		Service:        cfg.ServiceName,
		ServiceRoleKey: cfg.ServiceRoleKey,
	}).Register(router)
	(&httpx.PricingHandler{
		Validator:  validator,
		Calculator: &shipping.Calculator{},
		Sessions:   sessions,
	}).Register(router)
	(&httpx.CatalogHandler{Repo: &catalog.Repo{DB: db, Redis: rdb}}).Register(router)
	(&httpx.RealtimeHandler{Notifier: realtime.NewNotifier(rdb), Sessions: sessions}).Register(router)
	(&httpx.AdminHandler{
		Users:           &auth.Users{DB: db},
		ServiceRoleKey:  cfg.ServiceRoleKey,
		MaintenanceFlag: cfg.MaintenanceMode,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	producers := []*kafkax.Producer{paidProd, statusProd, cancelProd, stockProd}
	for _, p := range producers {
		p.Close()
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}

func setupLogger(level string) {
	log.SetFormatter(&log.JSONFormatter{})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
