package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/crdb"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL 死锁与锁等待超时，整个事务需要重来
const (
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
)

// 带退避的策略会走 ROLLBACK / BEGIN 整体重启，MySQL 死锁后保存点已失效，不能只回滚到保存点
var retryPolicy = &crdb.ExpBackoffRetryPolicy{
	RetryLimit: 5,
	BaseDelay:  10 * time.Millisecond,
	MaxDelay:   200 * time.Millisecond,
}

// Manager 管理数据库事务生命周期和上下文传播
type Manager struct {
	db *gorm.DB
}

// NewManager 创建一个事务管理器实例，自动重试和自动提交或者回滚事务
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Execute 在事务中执行业务操作
// - ctx: 上下文，用于超时控制和取消操作
// - opts: 事务隔离级别选项
// - operation: 需要在事务中执行业务逻辑的函数，返回错误或 panic 时整体回滚
//
// 已经处于事务中的 ctx 会复用外层事务，不再嵌套开启
func (m *Manager) Execute(
	ctx context.Context,
	opts *sql.TxOptions,
	operation func(ctx context.Context) error,
) error {
	if InTransaction(ctx) {
		return operation(ctx)
	}
	tx := m.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return tx.Error
	}
	// 将事务实例注入上下文
	ctxWithTx := WithTransaction(ctx, tx)
	return runInTx(ctx, &gormTx{db: tx}, func() error {
		return operation(ctxWithTx)
	})
}

// DB 返回 ctx 中的事务或默认连接
func (m *Manager) DB(ctx context.Context) *gorm.DB {
	return GetTransactionOrDB(ctx, m.db)
}

// committer 在 crdb.Tx 之上记录 COMMIT 的结果
type committer interface {
	crdb.Tx
	CommitErr() error
}

// runInTx crdb.ExecuteInTx 会忽略 COMMIT 的错误（在 CockroachDB 上 RELEASE 已经提交），
// MySQL/Postgres 的 RELEASE SAVEPOINT 不提交事务，因此提交失败必须返回给调用方
func runInTx(ctx context.Context, tx committer, fn func() error) error {
	ctx = crdb.WithRetryPolicy(ctx, retryPolicy)
	if err := crdb.ExecuteInTx(ctx, tx, func() error {
		return markRetryable(fn())
	}); err != nil {
		return err
	}
	return tx.CommitErr()
}

// retryableError 以 SQLSTATE 40001 暴露给 crdb 的重试判断
type retryableError struct {
	err error
}

func (e *retryableError) Error() string    { return e.err.Error() }
func (e *retryableError) Unwrap() error    { return e.err }
func (e *retryableError) SQLState() string { return "40001" }

func markRetryable(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout) {
		return &retryableError{err: err}
	}
	return err
}

type gormTx struct {
	db        *gorm.DB
	commitErr error
}

func (t *gormTx) Exec(_ context.Context, q string, args ...interface{}) error {
	return t.db.Exec(q, args...).Error
}

func (t *gormTx) Commit(context.Context) error {
	t.commitErr = t.db.Commit().Error
	return t.commitErr
}

func (t *gormTx) Rollback(context.Context) error {
	return t.db.Rollback().Error
}

func (t *gormTx) CommitErr() error {
	return t.commitErr
}
