package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/xelth-com/centerhub/internal/config"
	"github.com/xelth-com/centerhub/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *zap.Logger
}

// cleanupStaleEmbeddedPostgres stops a postgres left running by a previous crash
func cleanupStaleEmbeddedPostgres(log *zap.Logger) {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")

	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	// first line of postmaster.pid is the PID
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.Warn("could not parse postmaster.pid", zap.Error(err))
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		log.Info("removing stale postmaster.pid", zap.Int("pid", pid))
		os.Remove(pidFile)
		return
	}

	// On Unix FindProcess always succeeds; signal 0 checks liveness
	if err := process.Signal(syscall.Signal(0)); err != nil {
		log.Info("removing stale postmaster.pid", zap.Int("pid", pid))
		os.Remove(pidFile)
		return
	}

	log.Warn("stopping orphaned postgres", zap.Int("pid", pid))
	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.Warn("SIGTERM failed", zap.Int("pid", pid), zap.Error(err))
	}

	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if err := process.Signal(syscall.Signal(0)); err != nil {
			os.Remove(pidFile)
			return
		}
	}

	log.Warn("orphaned postgres ignored SIGTERM, killing", zap.Int("pid", pid))
	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Connect opens postgres. A localhost host with no password starts an embedded
// instance under ./db_data instead of dialing an external server.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	isEmbedded := cfg.Host == "localhost" && cfg.Password == ""

	password := cfg.Password
	if isEmbedded {
		log.Info("starting embedded postgres", zap.String("data_path", embeddedDataPath))
		cleanupStaleEmbeddedPostgres(log)

		if isPortInUse(embeddedPort) {
			log.Warn("embedded postgres port busy, waiting", zap.Int("port", embeddedPort))
			for i := 0; i < 6; i++ {
				time.Sleep(500 * time.Millisecond)
				if !isPortInUse(embeddedPort) {
					break
				}
			}
			if isPortInUse(embeddedPort) {
				return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
			}
		}

		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres"))

		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
		log.Info("embedded postgres started", zap.Int("port", embeddedPort))
	} else {
		log.Info("connecting to postgres", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Database,
	)

	logLevel := gormlogger.Warn
	if cfg.Silent {
		logLevel = gormlogger.Silent
	}

	db, err := Open(postgres.Open(dsn), logLevel)
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connection established")

	return &DB{DB: db, embedded: embedded, log: log}, nil
}

// Open configures gorm the way every store expects: UTC timestamps and
// driver errors translated to gorm sentinels (gorm.ErrDuplicatedKey).
func Open(dialector gorm.Dialector, level gormlogger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		TranslateError:         true,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	if db.embedded != nil {
		db.log.Info("stopping embedded postgres")
		_ = db.embedded.Stop()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate triggers GORM schema synchronization
func (db *DB) AutoMigrate(models ...interface{}) error {
	return db.DB.AutoMigrate(models...)
}

// Migrate syncs the given models and creates the partial index that allows a
// single active session per center.
func (db *DB) Migrate(all ...interface{}) error {
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureActiveSessionIndex(db.DB)
}

// EnsureActiveSessionIndex creates the unique index on open sessions
func EnsureActiveSessionIndex(db *gorm.DB) error {
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (center_id) WHERE is_active",
		models.ActiveSessionIndex, models.CenterSession{}.TableName(),
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", models.ActiveSessionIndex, err)
	}
	return nil
}
