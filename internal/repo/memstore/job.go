package memstore

import (
	"context"
	"sort"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

func (s *Store) CreateLog(ctx context.Context, log *objects.SysJobLog) error {
	return s.write(ctx, "CreateLog", func(d *state) error {
		log.ID = uint(d.nextID())
		d.jobLogs[log.ID] = *log
		return nil
	})
}

func (s *Store) UpdateLog(ctx context.Context, log *objects.SysJobLog) error {
	return s.write(ctx, "UpdateLog", func(d *state) error {
		d.jobLogs[log.ID] = *log
		return nil
	})
}

// JobLogs 全部任务日志，按 id 升序
func (s *Store) JobLogs() []objects.SysJobLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]objects.SysJobLog, 0, len(s.data.jobLogs))
	for _, l := range s.data.jobLogs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeedJob 写入任务定义
func (s *Store) SeedJob(j objects.SysJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == 0 {
		j.ID = uint(s.data.nextID())
	}
	s.data.jobs = append(s.data.jobs, j)
}

func (s *Store) EnabledJobs(ctx context.Context) ([]objects.SysJob, error) {
	var out []objects.SysJob
	err := s.read(ctx, "EnabledJobs", func(d *state) error {
		for _, j := range d.jobs {
			if j.Status == objects.JobEnabled {
				out = append(out, j)
			}
		}
		return nil
	})
	return out, err
}
