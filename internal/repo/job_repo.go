package repo

import (
	"context"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"
)

// JobRepo 定时任务执行日志
type JobRepo struct{ base }

func NewJobRepo(tm *transaction.Manager) *JobRepo {
	return &JobRepo{base{tm}}
}

// CreateLog 开始记录日志
func (r *JobRepo) CreateLog(ctx context.Context, log *objects.SysJobLog) error {
	return r.conn(ctx).Create(log).Error
}

// UpdateLog 任务结束更新日志
func (r *JobRepo) UpdateLog(ctx context.Context, log *objects.SysJobLog) error {
	return r.conn(ctx).Save(log).Error
}

// EnabledJobs 库中启用的任务定义
func (r *JobRepo) EnabledJobs(ctx context.Context) ([]objects.SysJob, error) {
	var jobs []objects.SysJob
	err := r.conn(ctx).
		Where("status = ?", objects.JobEnabled).
		Order("id ASC").
		Find(&jobs).Error
	return jobs, err
}
