package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ClaimSetting is the session setting row level security policies read the
// acting user from. It mirrors the claim PostgREST exposes.
const ClaimSetting = "request.jwt.claim.sub"

// TxManager manages database transactions using the context pattern.
// Nested RunInTx calls are NOT supported.
type TxManager struct {
	db DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx executes fn within a database transaction.
// On error from fn: rolls back and returns the error.
// On panic from fn: rolls back and re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunAsUser runs fn in a transaction whose row level security context is
// userID. The setting is transaction-local.
func (m *TxManager) RunAsUser(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	return m.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, m.db)
		if _, err := q.Exec(ctx, "SELECT set_config($1, $2, true)", ClaimSetting, userID.String()); err != nil {
			return fmt.Errorf("set user claim: %w", err)
		}
		return fn(ctx)
	})
}
