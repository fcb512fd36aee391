package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/config"
	"github.com/xelth-com/centerhub/internal/events"
	"github.com/xelth-com/centerhub/internal/handlers"
	"github.com/xelth-com/centerhub/internal/logger"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/report"
	"github.com/xelth-com/centerhub/internal/session"
	"github.com/xelth-com/centerhub/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	memory := flag.Bool("memory", false, "keep all data in memory instead of postgres")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "centerhub-api")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// 2. Open the store; closeStore is called in the shutdown path below
	st, closeStore, err := openStore(*memory, cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())

	// 3. Live feed and event stream
	hub := websocket.NewHub(zlog.Named("ws"))
	go hub.Run(ctx)

	opts := []activity.Option{activity.WithPublisher(hub)}
	var kafkaPub *events.KafkaPublisher
	if cfg.Kafka.Broker != "" {
		kafkaPub = events.NewKafkaPublisher(cfg.Kafka.Broker, cfg.Kafka.ActivityTopic, zlog.Named("kafka"))
		opts = append(opts, activity.WithPublisher(kafkaPub))
		zlog.Info("activity stream enabled", zap.String("broker", cfg.Kafka.Broker), zap.String("topic", cfg.Kafka.ActivityTopic))
	}
	rec := activity.NewLogger(st.Activities, zlog.Named("activity"), opts...)
	go rec.Run(ctx)

	// 4. Token registry
	var kv auth.KVStore
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zlog.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		kv = auth.NewRedisKVStore(rdb)
	} else {
		zlog.Warn("REDIS_ADDR not set, tokens are kept in memory and lost on restart")
		kv = auth.NewMemoryKVStore(nil)
	}

	// 5. Services
	sessions := session.NewManager(st.Sessions, st.Centers, rec, zlog.Named("session"), nil)
	authSvc := auth.NewService(st.Centers, st.Sessions, sessions,
		auth.NewTokenIssuer(cfg.JWTSecret, nil),
		auth.NewTokenRegistry(kv, nil),
		auth.Options{
			AdminPasswordHash:  cfg.AdminPasswordHash,
			TokenTTL:           cfg.Session.MaxAge,
			RevalidateInterval: cfg.Session.RevalidateInterval,
		}, zlog.Named("auth"))
	deps := records.Deps{Centers: st.Centers, Recorder: rec}

	router := handlers.NewRouter(handlers.Deps{
		Auth:        authSvc,
		Sessions:    sessions,
		Activity:    rec,
		Reports:     report.NewAggregator(st, zlog.Named("report"), report.Options{Location: cfg.Timezone}),
		Hub:         hub,
		Centers:     records.NewCenters(deps),
		Technicians: records.NewTechnicians(st.Technicians, deps),
		Customers:   records.NewCustomers(st.Customers, deps),
		Inventory:   records.NewInventory(st.Inventory, deps),
		Sales:       records.NewSales(st.Sales, st.Inventory, deps),
		Maintenance: records.NewMaintenance(st.Maintenance, deps),
		Log:         zlog.Named("http"),
	})

	// 6. Background loops
	reconciler := activity.NewReconciler(st.Activities, st.Centers, zlog.Named("reconciler"))
	if cfg.Session.ReconcileInterval > 0 {
		go reconciler.Run(ctx, cfg.Session.ReconcileInterval)
	}
	if cfg.Session.MaxAge > 0 && cfg.Session.SweepInterval > 0 {
		go sessions.RunSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.MaxAge)
	}

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zlog.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}

	// stops the hub, publisher queue, reconciler and sweeper
	stop()

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			zlog.Warn("kafka writer close error", zap.Error(err))
		}
	}
	if rdb != nil {
		rdb.Close()
	}

	if err := closeStore(); err != nil {
		zlog.Error("database close error", zap.Error(err))
	}
	zlog.Info("shutdown complete")
}
