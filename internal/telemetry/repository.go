package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// SQLiteStore keeps readings in the energy_data table.
type SQLiteStore struct {
	db     *sqlx.DB
	logger logger.Logger
	// mu serialises writers so concurrent producers cannot interleave an
	// insert with a prune.
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// NewRepository opens (and unless read-only, initialises) the store at
// cfg.DBPath.
func NewRepository(cfg Config, log logger.Logger) (*SQLiteStore, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if log == nil {
		log = logger.Nop()
	}

	log.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return nil, errFactory.Wrap(ErrStorageInit, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	db, err := sqlx.Open(driverName, dsn(cfg))
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// One connection keeps ids assigned in insertion order.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if cfg.ReadOnly {
		exists, err := tableExists(db, tableName)
		if err != nil {
			db.Close()
			return nil, errFactory.Wrap(ErrStorageInit, err)
		}
		if !exists {
			db.Close()
			return nil, errFactory.WithData(ErrSchemaMissing, cfg.DBPath)
		}
	} else if err := initSchema(db, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Bool("read_only", cfg.ReadOnly).
		Msg("Telemetry repository initialized")

	return &SQLiteStore{db: db, logger: log}, nil
}

// NewRepositoryFromDB wraps an already open connection. The schema is
// assumed to exist.
func NewRepositoryFromDB(db *sql.DB, log logger.Logger) *SQLiteStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SQLiteStore{db: sqlx.NewDb(db, driverName), logger: log}
}

func dsn(cfg Config) string {
	params := fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds())
	if cfg.ReadOnly {
		return fmt.Sprintf("file:%s?mode=ro&%s", cfg.DBPath, params)
	}
	return fmt.Sprintf("file:%s?%s&_journal_mode=WAL", cfg.DBPath, params)
}

func (s *SQLiteStore) Insert(ctx context.Context, r *Reading) (int64, error) {
	errFactory := errors.New()

	if r == nil {
		return 0, errFactory.WithData(ErrInvalidReading, "nil reading")
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, insertReadingSQL,
		r.Timestamp,
		r.DeviceID,
		r.Power,
		r.Energy,
		r.Status,
	)
	if err != nil {
		return 0, errFactory.Wrap(ErrWriteFailed, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errFactory.Wrap(ErrWriteFailed, err)
	}
	r.ID = id

	return id, nil
}

func (s *SQLiteStore) RecentBatch(ctx context.Context, n int) ([]Reading, error) {
	if n < 0 {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, "batch size must not be negative")
	}

	out := make([]Reading, 0, n)
	if n == 0 {
		return out, nil
	}

	if err := s.db.SelectContext(ctx, &out, selectRecentSQL, n); err != nil {
		return nil, errors.Wrap(ErrReadFailed, err)
	}

	return out, nil
}

func (s *SQLiteStore) LatestPerDevice(ctx context.Context) ([]Reading, error) {
	var out []Reading
	if err := s.db.SelectContext(ctx, &out, selectLatestPerDeviceSQL); err != nil {
		return nil, errors.Wrap(ErrReadFailed, err)
	}

	return out, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	errFactory := errors.New()

	if keep < 0 {
		return 0, errFactory.WithData(errors.ErrInvalidArgument, "retention window must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, pruneSQL, keep)
	if err != nil {
		return 0, errFactory.Wrap(ErrPruneFailed, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, errFactory.Wrap(ErrPruneFailed, err)
	}

	if deleted > 0 {
		s.logger.Debug().Int64("deleted", deleted).Int("keep", keep).Msg("Pruned old readings")
	}

	return deleted, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countSQL); err != nil {
		return 0, errors.Wrap(ErrReadFailed, err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}
	return nil
}
