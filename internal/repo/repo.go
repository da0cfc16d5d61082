// Package repo 基于 gorm 的各服务存储实现。事务由 pkg/transaction 通过 ctx 传递。
package repo

import (
	"context"

	"github.com/iceymoss/go-agora/pkg/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type base struct {
	tm *transaction.Manager
}

// conn 返回 ctx 中的事务或默认连接
func (b base) conn(ctx context.Context) *gorm.DB {
	return b.tm.DB(ctx)
}

// forUpdate 在事务中锁定选中的行
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// findOne 查询单行，不存在时返回 false 而不是 ErrRecordNotFound
func findOne(db *gorm.DB, dest any) (bool, error) {
	res := db.Limit(1).Find(dest)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
