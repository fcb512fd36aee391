package main

import (
	"github.com/xelth-com/centerhub/internal/config"
	"github.com/xelth-com/centerhub/internal/database"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

// openStore returns the repositories and the func that releases them. With
// memory set nothing touches postgres and all data is lost on exit.
func openStore(memory bool, cfg config.DatabaseConfig, log *zap.Logger) (*store.Store, func() error, error) {
	if memory {
		log.Warn("running on the in-memory store, data is lost on exit")
		st, _ := store.NewMemory()
		return st, func() error { return nil }, nil
	}

	// embedded postgres when no password is set
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// schema plus the one-active-session index
	if err := db.Migrate(store.Models()...); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("schema synchronized")

	// also stops embedded postgres
	return store.NewGorm(db.DB), db.Close, nil
}
