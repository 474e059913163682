package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"badgehub/internal/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// pq error codes that matter to the engine.
const (
	pqUniqueViolation = "23505"
)

// BaseRepository provides the shared database plumbing for the concrete
// repositories: query execution through the manager, transaction helpers and
// error classification.
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// ExecContext executes a statement through the managed pool.
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns a single row.
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// WithTransaction executes fn inside a transaction, rolling back on error or
// panic.
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction",
				zap.NamedError("rollback_error", rbErr),
				zap.Error(err),
			)
		}
		return err
	}

	return tx.Commit()
}

// IsNotFound reports whether err is a no-rows result.
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique-constraint conflict,
// optionally restricted to one named constraint. Concurrent get-or-create
// races surface through here and are resolved by re-reading.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsTransient reports whether err looks like a transient store failure worth
// retrying: timeouts, broken connections, context deadlines from a slow
// store.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions, class 57: operator intervention
		// (shutdown, crash recovery).
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return errors.Is(err, sql.ErrConnDone)
}

// GetDB returns the underlying manager for health checks.
func (r *BaseRepository) GetDB() *database.Manager {
	return r.db
}

// GetLogger returns the repository logger.
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
