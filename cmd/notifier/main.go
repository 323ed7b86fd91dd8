package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/danuprasetya/go-storefront/internal/config"
	kafkax "github.com/danuprasetya/go-storefront/internal/kafka"
	"github.com/danuprasetya/go-storefront/internal/notify"
	"github.com/danuprasetya/go-storefront/internal/orders"
	"github.com/danuprasetya/go-storefront/internal/postgres"
	"github.com/danuprasetya/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log.SetFormatter(&log.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	bridge := &notify.Bridge{
		Orders:      &orders.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "realtime-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	// One consumer per topic; order topics share the order handler.
	run := func(topic string, h kafkax.Handler) {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func() {
			log.WithFields(log.Fields{"group": group, "topic": topic, "workers": workers}).
				Info("notifier consumer started")
			if err := cons.Start(ctx, h); err != nil {
				log.WithError(err).WithField("topic", topic).Error("consumer exit")
				cancel()
			}
		}()
	}
	run(orders.TopicOrderPaid, bridge.HandleOrderEvent)
	run(orders.TopicOrderStatus, bridge.HandleOrderEvent)
	run(orders.TopicOrderCancelled, bridge.HandleOrderEvent)
	run(orders.TopicStockUpdated, bridge.HandleStockEvent)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
