package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatManager(t *testing.T) {
	m := NewStatManager()
	m.Set("b", &JobStats{Name: "b"})
	m.Set("a", &JobStats{Name: "a"})

	got := m.Get("a")
	got.Status = StatusRunning
	assert.Empty(t, m.Get("a").Status, "Get 返回副本")

	m.Update("a", func(s *JobStats) { s.RunCount++ })
	m.Update("missing", func(s *JobStats) { t.Fatal("不存在的任务不应回调") })
	assert.EqualValues(t, 1, m.Get("a").RunCount)

	all := m.GetAll()
	if assert.Len(t, all, 2) {
		assert.Equal(t, "a", all[0].Name)
		assert.Equal(t, "b", all[1].Name)
	}
	assert.Nil(t, m.Get("missing"))
}
