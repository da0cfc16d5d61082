package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/internal/conf"
	"github.com/iceymoss/go-agora/internal/core"
	"github.com/iceymoss/go-agora/internal/repo/memstore"
	"github.com/iceymoss/go-agora/internal/tasks"
	"github.com/iceymoss/go-agora/pkg/db/objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcTask struct {
	name string
	runs *atomic.Int64
	fn   func(ctx context.Context, params map[string]any) error
}

func (t *funcTask) Identifier() string { return t.name }

func (t *funcTask) Run(ctx context.Context, params map[string]any) error {
	t.runs.Add(1)
	return t.fn(ctx, params)
}

func register(name string, fn func(ctx context.Context, params map[string]any) error) *atomic.Int64 {
	runs := &atomic.Int64{}
	tasks.Register(name, func(*core.Deps) core.Task {
		return &funcTask{name: name, runs: runs, fn: fn}
	})
	return runs
}

func TestAddJobErrors(t *testing.T) {
	s := NewScheduler(nil, nil)
	assert.Error(t, s.AddJob("@every 1m", "test:missing", "x", nil, SourceSystem))

	register("test:noop", func(context.Context, map[string]any) error { return nil })
	err := s.AddJob("not a cron", "test:noop", "bad", nil, SourceSystem)
	assert.Error(t, err)
	assert.Nil(t, s.Stats.Get("bad"), "非法表达式不应留下状态")
}

func TestRunNowWritesJobLog(t *testing.T) {
	store := memstore.New()
	var got map[string]any
	runs := register("test:ok", func(_ context.Context, params map[string]any) error {
		got = params
		return nil
	})

	s := NewScheduler(store, nil)
	require.NoError(t, s.AddJob("@every 1h", "test:ok", "ok-job", map[string]any{"k": 1}, SourceSystem))
	require.NoError(t, s.RunNow("ok-job", nil))

	assert.EqualValues(t, 1, runs.Load())
	assert.Equal(t, map[string]any{"k": 1}, got)

	logs := store.JobLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "ok-job", logs[0].JobName)
	assert.Equal(t, "test:ok", logs[0].HandlerName)
	assert.Equal(t, objects.JobSuccess, logs[0].Status)
	require.NotNil(t, logs[0].EndTime)

	stat := s.Stats.Get("ok-job")
	require.NotNil(t, stat)
	assert.Equal(t, StatusIdle, stat.Status)
	assert.Equal(t, "Success", stat.LastResult)
	assert.EqualValues(t, 1, stat.RunCount)
}

func TestRunNowFailureAndPanic(t *testing.T) {
	store := memstore.New()
	register("test:fail", func(context.Context, map[string]any) error { return errors.New("boom") })
	register("test:panic", func(context.Context, map[string]any) error { panic("oops") })

	s := NewScheduler(store, nil)
	assert.EqualError(t, s.RunNow("test:fail", nil), "boom")
	err := s.RunNow("test:panic", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")

	logs := store.JobLogs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, objects.JobFailed, l.Status)
		assert.NotEmpty(t, l.ErrorMsg)
	}
	stat := s.Stats.Get("test:fail")
	require.NotNil(t, stat)
	assert.Equal(t, StatusError, stat.Status)
	assert.Equal(t, SourceCLI, stat.Source)
}

func TestJobLogFailureDoesNotFailTask(t *testing.T) {
	store := memstore.New()
	store.Fail("CreateLog", errors.New("db down"))
	register("test:logless", func(context.Context, map[string]any) error { return nil })

	s := NewScheduler(store, nil)
	assert.NoError(t, s.RunNow("test:logless", nil))
	assert.Empty(t, store.JobLogs())
}

func TestRunTimeout(t *testing.T) {
	register("test:slow", func(ctx context.Context, _ map[string]any) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s := NewScheduler(nil, nil, WithTimeout(20*time.Millisecond))
	assert.ErrorIs(t, s.RunNow("test:slow", nil), context.DeadlineExceeded)
}

func TestManualRun(t *testing.T) {
	done := make(chan struct{})
	register("test:manual", func(context.Context, map[string]any) error {
		close(done)
		return nil
	})
	s := NewScheduler(nil, nil)
	assert.Error(t, s.ManualRun("nope"))

	require.NoError(t, s.AddJob("@every 1h", "test:manual", "manual", nil, SourceSystem))
	require.NoError(t, s.ManualRun("manual"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("手动触发的任务没有执行")
	}
}

func TestApplyJobsOverrides(t *testing.T) {
	noop := func(*core.Deps) core.Task {
		return &funcTask{name: "noop", runs: &atomic.Int64{}, fn: func(context.Context, map[string]any) error { return nil }}
	}
	tasks.RegisterAuto("test:auto_a", "@every 1h", noop, nil)
	tasks.RegisterAuto("test:auto_b", "@every 1h", noop, nil)

	s := NewScheduler(nil, nil)
	err := s.ApplyJobs([]conf.JobConfig{
		{Name: "test:auto_a", Cron: "0 */5 * * * *", Enable: true, Params: map[string]any{"x": 1}},
		{Name: "test:auto_b", Enable: false},
		{Name: "extra", Handler: "test:auto_a", Cron: "@every 2h", Enable: true},
		{Name: "disabled-extra", Handler: "test:auto_a", Cron: "@every 2h", Enable: false},
	})
	require.NoError(t, err)

	a := s.Stats.Get("test:auto_a")
	require.NotNil(t, a)
	assert.Equal(t, "0 */5 * * * *", a.CronExpr)
	assert.Equal(t, SourceYAML, a.Source)
	assert.Nil(t, s.Stats.Get("test:auto_b"), "配置禁用的任务不应挂载")

	extra := s.Stats.Get("extra")
	require.NotNil(t, extra)
	assert.Equal(t, "test:auto_a", extra.Handler)
	assert.Nil(t, s.Stats.Get("disabled-extra"))
}

func TestStartStop(t *testing.T) {
	register("test:tick", func(context.Context, map[string]any) error { return nil })
	s := NewScheduler(nil, nil, WithLocation(time.UTC))
	require.NoError(t, s.AddJob("@every 1h", "test:tick", "tick", nil, SourceSystem))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Len(t, s.Stats.GetAll(), 1)
}

func TestLoadStoredJobs(t *testing.T) {
	store := memstore.New()
	register("test:stored", func(context.Context, map[string]any) error { return nil })
	store.SeedJob(objects.SysJob{Name: "nightly", CronExpr: "0 0 3 * * *", ServiceHandler: "test:stored", Params: `{"n": 2}`, Status: objects.JobEnabled})
	store.SeedJob(objects.SysJob{Name: "off", CronExpr: "0 0 3 * * *", ServiceHandler: "test:stored", Status: objects.JobDisabled})
	store.SeedJob(objects.SysJob{Name: "bad-params", CronExpr: "0 0 3 * * *", ServiceHandler: "test:stored", Params: "{", Status: objects.JobEnabled})
	store.SeedJob(objects.SysJob{Name: "bad-handler", CronExpr: "0 0 3 * * *", ServiceHandler: "test:none", Status: objects.JobEnabled})

	s := NewScheduler(store, nil)
	n, err := s.LoadStoredJobs(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stat := s.Stats.Get("nightly")
	require.NotNil(t, stat)
	assert.Equal(t, SourceDB, stat.Source)
	assert.Equal(t, "test:stored", stat.Handler)
	assert.Nil(t, s.Stats.Get("off"))
	assert.Nil(t, s.Stats.Get("bad-params"))

	n, err = s.LoadStoredJobs(context.Background(), store)
	require.NoError(t, err)
	assert.Zero(t, n, "同名任务不会重复挂载")

	store.Fail("EnabledJobs", errors.New("db down"))
	_, err = s.LoadStoredJobs(context.Background(), store)
	assert.Error(t, err)
}
