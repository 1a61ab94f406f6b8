package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	dberrors "launchbox/internal/infrastructure/errors"
	"launchbox/internal/infrastructure/logging"
)

// SQLiteService owns the icon store connection.
//
// Lifecycle: NewSQLiteService, Connect, optionally Migrate, then Close.
type SQLiteService struct {
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

// NewSQLiteService creates an unconnected service.
func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{logger: logger}
}

// Connect validates config, creating the store directory if needed, and
// opens the database, replacing any previous connection.
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("Failed to close previous icon store connection", "error", err)
		}
		s.db = nil
		s.migrationRunner = nil
	}
	s.config = config

	if err := config.Validate(); err != nil {
		return dberrors.NewStoreErrorWithContext("Connect", err, dberrors.ErrCodeValidation, map[string]string{"phase": "validate"})
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return dberrors.WrapWithContext("Connect", err, map[string]string{"phase": "open"})
	}

	s.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberrors.WrapWithContext("Connect", err, map[string]string{"phase": "ping"})
	}

	s.db = db
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Info("Connected to icon store", "in_memory", config.IsInMemory(), "journal_mode", config.JournalMode)
	return nil
}

// Close releases the connection. Closing twice is a no-op.
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.migrationRunner = nil
	if err != nil {
		return dberrors.Wrap("Close", err)
	}
	s.logger.Info("Closed icon store")
	return nil
}

// Migrate validates and applies the embedded migrations.
func (s *SQLiteService) Migrate(ctx context.Context) error {
	if s.db == nil {
		return dberrors.NotConnected("Migrate")
	}

	if err := s.migrationRunner.ValidateMigrations(); err != nil {
		return dberrors.NewStoreErrorWithContext("Migrate", err, dberrors.ErrCodeSchema, map[string]string{
			"phase": "validation",
		})
	}
	if err := s.migrationRunner.RunMigrations(ctx); err != nil {
		return dberrors.WrapWithContext("Migrate", err, map[string]string{
			"phase": "execution",
		})
	}
	return nil
}

// Health pings the database and runs a trivial query.
func (s *SQLiteService) Health(ctx context.Context) error {
	if s.db == nil {
		return dberrors.NotConnected("Health")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return dberrors.WrapWithContext("Health", err, map[string]string{"phase": "ping"})
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return dberrors.WrapWithContext("Health", err, map[string]string{"phase": "query"})
	}
	if result != 1 {
		return dberrors.NewStoreError("Health", errors.New("unexpected health query result"), dberrors.ErrCodeInternal)
	}
	return nil
}

// DB returns the connection for repositories; nil when not connected.
func (s *SQLiteService) DB() *sql.DB {
	return s.db
}

// GetMigrationVersion returns the applied schema version.
func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, dberrors.NotConnected("GetMigrationVersion")
	}
	version, err := s.migrationRunner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, dberrors.Wrap("GetMigrationVersion", err)
	}
	return version, nil
}

// GetStats returns connection pool statistics.
func (s *SQLiteService) GetStats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// Optimize refreshes planner statistics and reclaims space freed by pruning.
func (s *SQLiteService) Optimize(ctx context.Context) error {
	if s.db == nil {
		return dberrors.NotConnected("Optimize")
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return dberrors.WrapWithContext("Optimize", err, map[string]string{"phase": "analyze"})
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("wal_checkpoint failed", "error", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return dberrors.WrapWithContext("Optimize", err, map[string]string{"phase": "vacuum"})
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		s.logger.Warn("PRAGMA optimize failed", "error", err)
	}

	s.logger.Info("Icon store optimization completed")
	return nil
}

// configureConnectionPool limits SQLite to one connection unless WAL lets
// readers run beside the writer. An in-memory database exists only on its
// connection, so that connection is never recycled.
func (s *SQLiteService) configureConnectionPool(db *sql.DB, config *Config) {
	if config.IsInMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}

	if config.ForceSingleConnection || !strings.EqualFold(config.JournalMode, "WAL") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		maxConns := min(max(config.MaxConnections, 1), 4)
		idleConns := max(min(config.MaxIdleConns, maxConns), 1)
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(idleConns)
	}

	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
}
