// Package topic 议题相关的定时任务
package topic

import (
	"context"
	"errors"

	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/tasks"
	"github.com/iceymoss/go-agora/pkg/logger"

	"go.uber.org/zap"
)

const TaskAutoClose = "topic:auto_close"

// 每天零点关闭投票已截止的议题
func init() {
	tasks.RegisterAuto(TaskAutoClose, "0 0 0 * * *", NewAutoCloseTask, nil)
}

type AutoCloseTask struct {
	deps *core.Deps
}

func NewAutoCloseTask(deps *core.Deps) core.Task {
	return &AutoCloseTask{deps: deps}
}

func (t *AutoCloseTask) Identifier() string {
	return TaskAutoClose
}

func (t *AutoCloseTask) Run(ctx context.Context, _ map[string]any) error {
	if t.deps == nil || t.deps.Topics == nil {
		return errors.New("topic store not configured")
	}
	n, err := t.deps.Topics.CloseExpired(ctx, t.deps.Clock())
	if err != nil {
		return err
	}
	logger.Info("expired topics closed", zap.Int64("closed", n))
	return nil
}
