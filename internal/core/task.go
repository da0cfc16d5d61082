package core

import (
	"context"
	"time"
)

// TaskCreator 定义任务构造函数签名，deps 由进程启动时注入
type TaskCreator func(deps *Deps) Task

// Task 任务接口
type Task interface {
	// Run 执行任务逻辑
	// params 是从配置文件传入的动态参数
	Run(ctx context.Context, params map[string]any) error

	// Identifier 返回任务唯一标识 (用于日志)
	Identifier() string
}

// TopicCloser 关闭投票已截止的议题
type TopicCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// Probe 一个可探测的外部依赖
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps 任务可用的依赖，未配置的依赖为空
type Deps struct {
	Topics TopicCloser
	Probes []Probe
	Now    func() time.Time
}

// Clock 返回当前时间，未注入时使用 time.Now
func (d *Deps) Clock() time.Time {
	if d == nil || d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
