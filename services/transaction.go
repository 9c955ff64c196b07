package services

import (
	"context"

	"github.com/upb/license-inventory/repositories"
)

// WithTransaction executes fn within a database transaction.
// Commits on success and rolls back on error. The context passed to fn carries
// the transaction, so repository calls made with it join the same unit of work.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	return txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		return fn(ctx)
	})
}

// WithTransactionResult executes fn within a database transaction and returns its result.
// On error the zero value is returned.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
