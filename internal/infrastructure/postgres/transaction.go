package postgres

import (
	"context"

	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
)

// transactionManager implements tenancy.TransactionManager.
type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) tenancy.TransactionManager {
	return &transactionManager{db: db}
}

// WithTransaction runs fn inside a single relational transaction, handing it
// a RepositoryFactory scoped to that transaction. The original ctx is passed
// through so request-scoped values survive; only the db handle changes.
func (tm *transactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos tenancy.RepositoryFactory) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositoryFactory(tx))
	})
}
