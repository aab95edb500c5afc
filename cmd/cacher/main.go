package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-orders.git/internal/cache"
	"github.com/ariefcatur/go-shop-orders.git/internal/config"
	kafkax "github.com/ariefcatur/go-shop-orders.git/internal/kafka"
	"github.com/ariefcatur/go-shop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/joho/godotenv"
)

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

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &cache.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-cacher",
	}

	// Consumer
	group := getenv("CACHER_GROUP", "cache-svc")
	workers := mustAtoi(os.Getenv("CACHER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, shop.TopicOrderPlaced, workers)

	go func() {
		log.Printf("cacher consumer started: group=%s topic=%s workers=%d", group, shop.TopicOrderPlaced, workers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
