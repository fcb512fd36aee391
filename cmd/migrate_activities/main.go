package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/config"
	"github.com/xelth-com/centerhub/internal/database"
	"github.com/xelth-com/centerhub/internal/logger"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

// migrate_activities imports an exported activity collection (a JSON array of
// documents) into the center and global activity logs. Running it twice over
// the same export is safe.
func main() {
	path := flag.String("file", "activities.json", "JSON export to import")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Log.Level, "console", "centerhub-migrate")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	raw, err := os.ReadFile(*path)
	if err != nil {
		zlog.Fatal("failed to read export", zap.String("file", *path), zap.Error(err))
	}
	var docs []activity.LegacyActivity
	if err := json.Unmarshal(raw, &docs); err != nil {
		zlog.Fatal("failed to parse export", zap.String("file", *path), zap.Error(err))
	}

	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(store.Models()...); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := store.NewGorm(db.DB)
	res, err := activity.MigrateLegacy(ctx, st.Activities, st.Centers, docs, zlog)
	if err != nil {
		zlog.Error("migration stopped", zap.Error(err))
	}
	zlog.Info("legacy activities imported",
		zap.Int("documents", len(docs)),
		zap.Int("migrated", res.Migrated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
}
