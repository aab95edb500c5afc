package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-orders.git/internal/auth"
	"github.com/ariefcatur/go-shop-orders.git/internal/config"
	"github.com/ariefcatur/go-shop-orders.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-orders.git/internal/kafka"
	"github.com/ariefcatur/go-shop-orders.git/internal/postgres"
	"github.com/ariefcatur/go-shop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	// domain + handlers
	repo := &shop.Repo{DB: db}
	placer := &shop.Placer{DB: db, Timeout: cfg.OrderTimeout}
	am := &auth.Manager{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}

	router := httpx.NewRouter()
	(&httpx.UsersHandler{Store: repo, Auth: am}).Register(router)
	(&httpx.ProductsHandler{Store: repo, Redis: rdb, Auth: am}).Register(router)
	(&httpx.OrdersHandler{
		Placer:   placer,
		Store:    repo,
		Producer: prod,
		Redis:    rdb,
		Auth:     am,
		Service:  cfg.ServiceName,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
