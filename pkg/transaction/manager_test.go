package transaction

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type txCounter struct {
	ID    uint `gorm:"primaryKey"`
	Name  string
	Value int
}

func (txCounter) TableName() string { return "tx_manager_test_counters" }

// 需要真实 MySQL：AGORA_TEST_MYSQL_DSN="user:pwd@tcp(127.0.0.1:3306)/agora_test?parseTime=True"
func openTestDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("AGORA_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("AGORA_TEST_MYSQL_DSN 未设置，跳过事务集成测试")
	}
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&txCounter{}))
	require.NoError(t, db.AutoMigrate(&txCounter{}))
	t.Cleanup(func() { _ = db.Migrator().DropTable(&txCounter{}) })
	return db
}

func incr(ctx context.Context, db *gorm.DB, name string) error {
	conn := GetTransactionOrDB(ctx, db)
	return conn.Model(&txCounter{}).Where("name = ?", name).
		Update("value", gorm.Expr("value + 1")).Error
}

func TestManagerCommit(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&txCounter{Name: "a"}).Error)
	m := NewManager(db)

	err := m.Execute(context.Background(), nil, func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx), "回调内应携带事务")
		if err := incr(ctx, db, "a"); err != nil {
			return err
		}
		return incr(ctx, db, "a")
	})
	require.NoError(t, err)

	var got txCounter
	require.NoError(t, db.Where("name = ?", "a").First(&got).Error)
	assert.Equal(t, 2, got.Value)
}

func TestManagerRollback(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&txCounter{Name: "b"}).Error)
	m := NewManager(db)

	boom := errors.New("boom")
	err := m.Execute(context.Background(), nil, func(ctx context.Context) error {
		if err := incr(ctx, db, "b"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var got txCounter
	require.NoError(t, db.Where("name = ?", "b").First(&got).Error)
	assert.Equal(t, 0, got.Value, "失败的事务不能留下部分更新")
}

func TestGetTransactionOrDBWithoutTx(t *testing.T) {
	assert.False(t, InTransaction(context.Background()))
}

type fakeTx struct {
	execs     []string
	commitErr error
	commits   int
	rollbacks int
}

func (f *fakeTx) Exec(_ context.Context, q string, _ ...interface{}) error {
	f.execs = append(f.execs, q)
	return nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

func (f *fakeTx) CommitErr() error {
	if f.commits == 0 {
		return nil
	}
	return f.commitErr
}

func TestRunInTxSurfacesCommitError(t *testing.T) {
	boom := errors.New("commit failed")
	tx := &fakeTx{commitErr: boom}

	err := runInTx(context.Background(), tx, func() error { return nil })
	assert.ErrorIs(t, err, boom, "提交失败不能被当作成功")
	assert.Equal(t, 1, tx.commits)
}

func TestRunInTxCommits(t *testing.T) {
	tx := &fakeTx{}
	require.NoError(t, runInTx(context.Background(), tx, func() error { return nil }))
	assert.Equal(t, 1, tx.commits)
	assert.Equal(t, 0, tx.rollbacks)
}

func TestRunInTxRetriesMySQLDeadlock(t *testing.T) {
	tx := &fakeTx{}
	calls := 0
	err := runInTx(context.Background(), tx, func() error {
		calls++
		if calls == 1 {
			return &mysql.MySQLError{Number: mysqlDeadlock, Message: "Deadlock found"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, tx.execs, "ROLLBACK", "死锁后应整体重启事务")
	assert.Contains(t, tx.execs, "BEGIN")
	assert.Equal(t, 1, tx.commits)
}

func TestRunInTxDoesNotRetryOtherErrors(t *testing.T) {
	tx := &fakeTx{}
	boom := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	calls := 0
	err := runInTx(context.Background(), tx, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}
