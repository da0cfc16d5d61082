package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iceymoss/go-agora/internal/conf"
	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/tasks"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 任务来源
const (
	SourceSystem = "SYSTEM"
	SourceYAML   = "YAML"
	SourceDB     = "DB"
	SourceCLI    = "CLI"
)

// DefaultJobTimeout 单次执行的超时
const DefaultJobTimeout = 5 * time.Minute

// JobLogStore sys_job_logs 表
type JobLogStore interface {
	CreateLog(ctx context.Context, log *objects.SysJobLog) error
	UpdateLog(ctx context.Context, log *objects.SysJobLog) error
}

// JobDefinitionStore sys_jobs 表
type JobDefinitionStore interface {
	EnabledJobs(ctx context.Context) ([]objects.SysJob, error)
}

type registeredJob struct {
	entry   cron.EntryID
	handler string
	task    core.Task
	params  map[string]any
}

type Scheduler struct {
	cron       *cron.Cron
	Stats      *StatManager
	logs       JobLogStore
	deps       *core.Deps
	timeout    time.Duration
	log        *zap.Logger
	now        func() time.Time
	mu         sync.RWMutex
	registered map[string]registeredJob
}

type Option func(*Scheduler)

// WithLocation cron 表达式按该时区解析
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(loc))
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler logs 可以为空，此时只保留内存状态
func NewScheduler(logs JobLogStore, deps *core.Deps, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		Stats:      NewStatManager(),
		logs:       logs,
		deps:       deps,
		timeout:    DefaultJobTimeout,
		log:        logger.Named("scheduler"),
		now:        time.Now,
		registered: make(map[string]registeredJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob 添加任务
func (s *Scheduler) AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source string) error {
	// 1. 获取任务实现
	taskInstance, err := tasks.GetTask(taskName, s.deps)
	if err != nil {
		return err
	}

	// 2. 先注册 Cron，表达式非法时不留下状态
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.runTaskWithStats(uniqueJobName, taskName, taskInstance, params)
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", uniqueJobName, err)
	}

	// 3. 初始化状态
	stat := &JobStats{
		Name:       uniqueJobName,
		Handler:    taskName,
		CronExpr:   cronExpr,
		Status:     StatusIdle,
		LastResult: "Pending",
		Source:     source,
	}
	if next := s.cron.Entry(entryID).Next; !next.IsZero() {
		stat.rawNext = next
		stat.NextRunTime = next.Format(timeLayout)
	}
	s.Stats.Set(uniqueJobName, stat)

	// 保存引用以便手动触发
	s.mu.Lock()
	s.registered[uniqueJobName] = registeredJob{entry: entryID, handler: taskName, task: taskInstance, params: params}
	s.mu.Unlock()

	s.log.Info("job added", zap.String("job", uniqueJobName), zap.String("cron", cronExpr), zap.String("source", source))
	return nil
}

// ApplyJobs 挂载代码中注册的自动任务，配置文件中的同名任务覆盖默认的 cron 和参数
func (s *Scheduler) ApplyJobs(cfgJobs []conf.JobConfig) error {
	overrides := make(map[string]conf.JobConfig, len(cfgJobs))
	for _, j := range cfgJobs {
		overrides[j.Name] = j
	}

	for _, job := range tasks.AutoJobs() {
		cronExpr, params, source := job.Cron, job.Params, SourceSystem
		if o, ok := overrides[job.Name]; ok {
			delete(overrides, job.Name)
			if !o.Enable {
				s.log.Info("job disabled by config", zap.String("job", job.Name))
				continue
			}
			if o.Cron != "" {
				cronExpr = o.Cron
			}
			if o.Params != nil {
				params = o.Params
			}
			source = SourceYAML
		}
		if err := s.AddJob(cronExpr, job.Name, job.Name, params, source); err != nil {
			return err
		}
	}

	// 剩下的是配置文件额外声明的任务，name 必须是已注册的任务实现
	for _, j := range cfgJobs {
		if _, ok := overrides[j.Name]; !ok || !j.Enable {
			continue
		}
		handler := j.Handler
		if handler == "" {
			handler = j.Name
		}
		if err := s.AddJob(j.Cron, handler, j.Name, j.Params, SourceYAML); err != nil {
			return err
		}
	}
	return nil
}

// LoadStoredJobs 挂载 sys_jobs 中启用的任务。单条定义有误只跳过该条，返回成功挂载的数量
func (s *Scheduler) LoadStoredJobs(ctx context.Context, store JobDefinitionStore) (int, error) {
	defs, err := store.EnabledJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sys_jobs: %w", err)
	}
	added := 0
	for _, def := range defs {
		if _, exists := s.lookup(def.Name); exists {
			s.log.Warn("stored job shadows an existing job, skipped", zap.String("job", def.Name))
			continue
		}
		var params map[string]any
		if def.Params != "" {
			if err := json.Unmarshal([]byte(def.Params), &params); err != nil {
				s.log.Warn("invalid stored job params", zap.String("job", def.Name), zap.Error(err))
				continue
			}
		}
		if err := s.AddJob(def.CronExpr, def.ServiceHandler, def.Name, params, SourceDB); err != nil {
			s.log.Warn("schedule stored job failed", zap.String("job", def.Name), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

// runTaskWithStats 执行并记录状态
func (s *Scheduler) runTaskWithStats(name, handler string, task core.Task, params map[string]any) error {
	start := s.now()

	// 更新开始状态
	s.Stats.Update(name, func(stat *JobStats) {
		stat.Status = StatusRunning
		stat.LastRunTime = start.Format(timeLayout)
		stat.RunCount++
	})

	entry := &objects.SysJobLog{
		JobName:     name,
		HandlerName: handler,
		Status:      objects.JobRunning,
		StartTime:   start,
	}
	s.writeLog(entry, true)

	s.log.Info("job started", zap.String("job", name))

	// 执行 (带超时控制)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.safeRun(ctx, task, params)

	end := s.now()
	entry.EndTime = &end
	entry.DurationMs = end.Sub(start).Milliseconds()

	// 更新结束状态
	if err != nil {
		entry.Status = objects.JobFailed
		entry.ErrorMsg = err.Error()
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
	} else {
		entry.Status = objects.JobSuccess
		s.log.Info("job finished", zap.String("job", name), zap.Int64("duration_ms", entry.DurationMs))
	}
	s.writeLog(entry, false)

	s.Stats.Update(name, func(stat *JobStats) {
		if err != nil {
			stat.LastResult = fmt.Sprintf("Error: %v", err)
			stat.Status = StatusError
		} else {
			stat.LastResult = "Success"
			stat.Status = StatusIdle
		}
		if reg, ok := s.lookup(name); ok && reg.entry != 0 {
			if next := s.cron.Entry(reg.entry).Next; !next.IsZero() {
				stat.rawNext = next
				stat.NextRunTime = next.Format(timeLayout)
			}
		}
	})
	return err
}

// safeRun 任务 panic 视为失败
func (s *Scheduler) safeRun(ctx context.Context, task core.Task, params map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task.Run(ctx, params)
}

// writeLog 日志写入失败不影响任务本身
func (s *Scheduler) writeLog(entry *objects.SysJobLog, create bool) {
	if s.logs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if create {
		err = s.logs.CreateLog(ctx, entry)
	} else if entry.ID != 0 {
		err = s.logs.UpdateLog(ctx, entry)
	}
	if err != nil {
		s.log.Warn("write job log failed", zap.String("job", entry.JobName), zap.Error(err))
	}
}

// ManualRun 手动触发，异步执行
func (s *Scheduler) ManualRun(uniqueJobName string) error {
	reg, ok := s.lookup(uniqueJobName)
	if !ok {
		return fmt.Errorf("job %s not found", uniqueJobName)
	}
	go func() {
		_ = s.runTaskWithStats(uniqueJobName, reg.handler, reg.task, reg.params)
	}()
	return nil
}

// RunNow 同步执行一次任务，不要求任务已挂载到 cron
func (s *Scheduler) RunNow(taskName string, params map[string]any) error {
	reg, ok := s.lookup(taskName)
	if !ok {
		t, err := tasks.GetTask(taskName, s.deps)
		if err != nil {
			return err
		}
		reg = registeredJob{handler: taskName, task: t, params: params}
		s.Stats.Set(taskName, &JobStats{Name: taskName, Handler: taskName, Status: StatusIdle, Source: SourceCLI})
	}
	if params != nil {
		reg.params = params
	}
	return s.runTaskWithStats(taskName, reg.handler, reg.task, reg.params)
}

func (s *Scheduler) lookup(name string) (registeredJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registered[name]
	return reg, ok
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}
