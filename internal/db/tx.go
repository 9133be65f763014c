package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is implemented by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxConfig tunes how TxRunner waits and retries.
type TxConfig struct {
	LockTimeout  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// TxRunner runs functions inside READ COMMITTED transactions with a bounded
// lock wait, retrying serialization failures, deadlocks and dropped connections.
type TxRunner struct {
	db     TxBeginner
	cfg    TxConfig
	logger *slog.Logger
}

func NewTxRunner(db TxBeginner, cfg TxConfig, logger *slog.Logger) *TxRunner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxRunner{db: db, cfg: cfg, logger: logger}
}

// Run executes fn in a transaction. fn may be called more than once, so it
// must not have side effects outside tx. Errors returned by fn itself are
// passed through Classify and never retried unless they are store errors.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !retryable(err) || attempt == r.cfg.MaxAttempts {
			break
		}

		wait := r.cfg.RetryBackoff * time.Duration(attempt)
		r.logger.WarnContext(ctx, "retrying transaction",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return Classify(err)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.WarnContext(ctx, "rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	if r.cfg.LockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.cfg.LockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout failed: %w", err)
		}
	}

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction failed: %w", err)
	}
	return nil
}
