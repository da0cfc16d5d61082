package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/tasks"
	"github.com/iceymoss/go-agora/pkg/logger"

	"go.uber.org/zap"
)

const TaskStorePing = "sys:store_ping"

// PingTask 探测数据库和 redis 是否可达
type PingTask struct {
	deps *core.Deps
}

// init 只要这个包被 import，任务就会自动挂载
func init() {
	defaultParams := map[string]any{
		"timeout": 5,
	}
	tasks.RegisterAuto(TaskStorePing, "@every 1m", NewPingTask, defaultParams)
}

func NewPingTask(deps *core.Deps) core.Task {
	return &PingTask{deps: deps}
}

func (t *PingTask) Identifier() string {
	return TaskStorePing
}

// Run 依次探测所有依赖，全部失败信息合并返回
func (t *PingTask) Run(ctx context.Context, params map[string]any) error {
	if t.deps == nil || len(t.deps.Probes) == 0 {
		logger.Debug("no probes configured")
		return nil
	}
	timeout := timeoutParam(params, 5*time.Second)

	var errs []error
	for _, p := range t.deps.Probes {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			logger.Warn("probe failed", zap.String("probe", p.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		logger.Debug("probe ok", zap.String("probe", p.Name), zap.Duration("latency", time.Since(start)))
	}
	return errors.Join(errs...)
}

// timeoutParam 参数来自 yaml 或代码默认值，数字单位为秒
func timeoutParam(params map[string]any, def time.Duration) time.Duration {
	switch v := params["timeout"].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
