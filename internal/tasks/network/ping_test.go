package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestPingTask(t *testing.T) {
	ok := core.Probe{Name: "db", Ping: func(context.Context) error { return nil }}
	down := core.Probe{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("全部可达", func(t *testing.T) {
		task := NewPingTask(&core.Deps{Probes: []core.Probe{ok}})
		assert.NoError(t, task.Run(context.Background(), nil))
	})

	t.Run("部分失败", func(t *testing.T) {
		task := NewPingTask(&core.Deps{Probes: []core.Probe{ok, down}})
		err := task.Run(context.Background(), nil)
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "redis")
			assert.NotContains(t, err.Error(), "db:")
		}
	})

	t.Run("没有依赖", func(t *testing.T) {
		assert.NoError(t, NewPingTask(nil).Run(context.Background(), nil))
	})

	t.Run("超时", func(t *testing.T) {
		slow := core.Probe{Name: "slow", Ping: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		task := NewPingTask(&core.Deps{Probes: []core.Probe{slow}})
		err := task.Run(context.Background(), map[string]any{"timeout": "10ms"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestTimeoutParam(t *testing.T) {
	def := 5 * time.Second
	assert.Equal(t, 3*time.Second, timeoutParam(map[string]any{"timeout": 3}, def))
	assert.Equal(t, 1500*time.Millisecond, timeoutParam(map[string]any{"timeout": 1.5}, def))
	assert.Equal(t, 200*time.Millisecond, timeoutParam(map[string]any{"timeout": "200ms"}, def))
	assert.Equal(t, def, timeoutParam(map[string]any{"timeout": "bad"}, def))
	assert.Equal(t, def, timeoutParam(nil, def))
}
