package repository

import (
	"context"

	"gorm.io/gorm"
)

// txKey carries the open transaction through the context. Using a private
// struct type guarantees no other package can collide with or read it.
type txKey struct{}

// TransactionManager runs a function inside one database transaction. The
// transaction handle travels in the context, and every repository method
// resolves its *gorm.DB through GetDB, so a service can span several
// repositories with one all-or-nothing commit.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

type transactionManager struct {
	db *gorm.DB
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GetDB returns the transaction from ctx when one is open, and the root
// handle otherwise. Repositories never need to know which one they got.
func GetDB(ctx context.Context, root *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return root.WithContext(ctx)
}
