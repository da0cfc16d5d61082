package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/pkg/logger"

	"go.uber.org/zap"
)

// AutoJob 定义一个“自启动任务”的结构
type AutoJob struct {
	Name    string           // 任务唯一标识
	Cron    string           // Cron 表达式
	Creator core.TaskCreator // 构造函数
	Params  map[string]any   // 默认参数
}

var (
	registry = make(map[string]core.TaskCreator) // 普通任务注册（供 Config 调用）
	autoJobs = make([]*AutoJob, 0)               // 自动任务列表（供代码直接启动）
	mu       sync.RWMutex
)

// Register 注册任务实现，供配置文件按名称引用
func Register(name string, creator core.TaskCreator) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = creator
}

// RegisterAuto 注册并自动启动 开发者只需要在自己的 task 文件里调这个，就能把“逻辑+配置”一站式搞定
func RegisterAuto(name string, cron string, creator core.TaskCreator, defaultParams map[string]any) {
	mu.Lock()
	defer mu.Unlock()

	// 1. 先注册到普通池子（这样也能手动触发）
	registry[name] = creator

	// 2. 加入自动启动列表
	autoJobs = append(autoJobs, &AutoJob{
		Name:    name,
		Cron:    cron,
		Creator: creator,
		Params:  defaultParams,
	})
	logger.Debug("task registered", zap.String("task", name), zap.String("cron", cron))
}

// AutoJobs 返回自动任务的副本
func AutoJobs() []AutoJob {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]AutoJob, 0, len(autoJobs))
	for _, j := range autoJobs {
		out = append(out, *j)
	}
	return out
}

// Names 已注册的任务名，按字母序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetTask(name string, deps *core.Deps) (core.Task, error) {
	mu.RLock()
	defer mu.RUnlock()
	creator, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("task implementation '%s' not found", name)
	}
	return creator(deps), nil
}
