package repository

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// Transactor 在 ctx 中携带事务，仓储通过 getDB 自动加入
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithTransaction fn 返回错误或 panic 时回滚；已在事务中时直接复用外层事务
func (s *gormTransactor) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// getDB 优先返回 ctx 中的事务
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
