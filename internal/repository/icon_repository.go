package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"launchbox/internal/database"
	"launchbox/internal/iconcache"
	repoerrors "launchbox/internal/infrastructure/errors"
	"launchbox/internal/infrastructure/logging"
)

const (
	selectIconSQL = `SELECT shortcut_time, png_time, ico_time, has_icon, content
FROM icon_cache WHERE cache_key = ?`

	upsertIconSQL = `INSERT INTO icon_cache (cache_key, shortcut_time, png_time, ico_time, has_icon, content, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
	shortcut_time = excluded.shortcut_time,
	png_time = excluded.png_time,
	ico_time = excluded.ico_time,
	has_icon = excluded.has_icon,
	content = excluded.content,
	updated_at = excluded.updated_at`

	selectKeysSQL = `SELECT cache_key FROM icon_cache`
	deleteIconSQL = `DELETE FROM icon_cache WHERE cache_key = ?`
	countIconsSQL = `SELECT COUNT(*) FROM icon_cache`
)

// Timestamps are stored as text so that they round-trip with nanosecond
// precision regardless of driver time handling.
const timeLayout = time.RFC3339Nano

// SQLiteIconRepository implements IconRepository on the icon store.
type SQLiteIconRepository struct {
	db          *sql.DB
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger
	now         func() time.Time
}

var _ IconRepository = (*SQLiteIconRepository)(nil)

// NewSQLiteIconRepository creates a repository on a connected service.
func NewSQLiteIconRepository(dbService database.Service, logger logging.Logger) *SQLiteIconRepository {
	return NewSQLiteIconRepositoryWithConfig(dbService, nil, logger)
}

// NewSQLiteIconRepositoryWithConfig creates a repository with a custom retry
// policy.
func NewSQLiteIconRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, logger logging.Logger) *SQLiteIconRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if retryConfig.Logger == nil {
		retryConfig.Logger = logger
	}
	return &SQLiteIconRepository{
		db:          dbService.DB(),
		retryConfig: retryConfig,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *SQLiteIconRepository) LoadIcon(ctx context.Context, path string) (iconcache.Entry, bool, error) {
	if r.db == nil {
		return iconcache.Entry{}, false, repoerrors.NotConnected("LoadIcon")
	}

	var (
		shortcut, png, ico string
		hasIcon            bool
		content            []byte
	)
	err := repoerrors.WithRetry(ctx, r.retryConfig, "LoadIcon", func() error {
		err := r.db.QueryRowContext(ctx, selectIconSQL, storeKey(path)).
			Scan(&shortcut, &png, &ico, &hasIcon, &content)
		return repoerrors.Wrap("LoadIcon", err)
	})
	if repoerrors.IsNotFound(err) {
		return iconcache.Entry{}, false, nil
	}
	if err != nil {
		return iconcache.Entry{}, false, err
	}

	stamps, err := parseStamps(shortcut, png, ico)
	if err != nil {
		return iconcache.Entry{}, false, repoerrors.NewStoreError("LoadIcon", err, repoerrors.ErrCodeCorruption)
	}

	entry := iconcache.Entry{HasIcon: hasIcon, Stamps: stamps}
	if hasIcon {
		entry.Icon = content
	}
	return entry, true, nil
}

func (r *SQLiteIconRepository) SaveIcon(ctx context.Context, path string, entry iconcache.Entry) error {
	if r.db == nil {
		return repoerrors.NotConnected("SaveIcon")
	}

	var content []byte
	if entry.HasIcon {
		content = entry.Icon
	}
	key := storeKey(path)
	updated := r.now().UTC().Format(timeLayout)

	return repoerrors.WithRetry(ctx, r.retryConfig, "SaveIcon", func() error {
		_, err := r.db.ExecContext(ctx, upsertIconSQL,
			key,
			formatTime(entry.Stamps.Shortcut),
			formatTime(entry.Stamps.PNG),
			formatTime(entry.Stamps.ICO),
			entry.HasIcon,
			content,
			updated,
		)
		return repoerrors.Wrap("SaveIcon", err)
	})
}

func (r *SQLiteIconRepository) PruneIcons(ctx context.Context, active []string) (int, error) {
	if r.db == nil {
		return 0, repoerrors.NotConnected("PruneIcons")
	}
	start := time.Now()

	keep := make(map[string]struct{}, len(active))
	for _, p := range active {
		keep[storeKey(p)] = struct{}{}
	}

	var removed int
	err := repoerrors.WithRetry(ctx, r.retryConfig, "PruneIcons", func() error {
		n, err := r.pruneTx(ctx, keep)
		removed = n
		return err
	})
	if err != nil {
		logging.LogStoreError(r.logger, err, "PruneIcons", nil)
		return 0, err
	}

	logging.LogOperation(r.logger, "PruneIcons", time.Since(start), map[string]interface{}{
		"removed": removed,
	})
	return removed, nil
}

func (r *SQLiteIconRepository) pruneTx(ctx context.Context, keep map[string]struct{}) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, repoerrors.WrapWithContext("PruneIcons", err, map[string]string{"phase": "begin"})
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Debug("Failed to rollback prune transaction", "rollback_error", rbErr)
			}
		}
	}()

	rows, err := tx.QueryContext(ctx, selectKeysSQL)
	if err != nil {
		return 0, repoerrors.WrapWithContext("PruneIcons", err, map[string]string{"phase": "select"})
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, repoerrors.WrapWithContext("PruneIcons", err, map[string]string{"phase": "scan"})
		}
		if _, ok := keep[key]; !ok {
			stale = append(stale, key)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, repoerrors.Wrap("PruneIcons", err)
	}
	if err := rows.Err(); err != nil {
		return 0, repoerrors.Wrap("PruneIcons", err)
	}

	for _, key := range stale {
		if _, err := tx.ExecContext(ctx, deleteIconSQL, key); err != nil {
			return 0, repoerrors.WrapWithContext("PruneIcons", err, map[string]string{"phase": "delete"})
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, repoerrors.WrapWithContext("PruneIcons", err, map[string]string{"phase": "commit"})
	}
	committed = true
	return len(stale), nil
}

func (r *SQLiteIconRepository) CountIcons(ctx context.Context) (int, error) {
	if r.db == nil {
		return 0, repoerrors.NotConnected("CountIcons")
	}
	var n int
	if err := r.db.QueryRowContext(ctx, countIconsSQL).Scan(&n); err != nil {
		return 0, repoerrors.Wrap("CountIcons", err)
	}
	return n, nil
}

// storeKey is the hex SHA-256 of the folded path. The store file outlives
// the process, so shortcut paths are never written to it.
func storeKey(path string) string {
	sum := sha256.Sum256([]byte(iconcache.Key(path)))
	return hex.EncodeToString(sum[:])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseStamps(shortcut, png, ico string) (iconcache.Timestamps, error) {
	var stamps iconcache.Timestamps
	var err error
	if stamps.Shortcut, err = time.Parse(timeLayout, shortcut); err != nil {
		return stamps, err
	}
	if stamps.PNG, err = time.Parse(timeLayout, png); err != nil {
		return stamps, err
	}
	if stamps.ICO, err = time.Parse(timeLayout, ico); err != nil {
		return stamps, err
	}
	return stamps, nil
}
