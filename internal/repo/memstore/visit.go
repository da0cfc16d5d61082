package memstore

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

func (s *Store) HasVisitBetween(ctx context.Context, identifier string, from, to time.Time) (bool, error) {
	found := false
	err := s.read(ctx, "HasVisitBetween", func(d *state) error {
		for _, v := range d.visits {
			if v.UserIdentifier == identifier && !v.CreatedAt.Before(from) && v.CreatedAt.Before(to) {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) InsertVisit(ctx context.Context, log *objects.VisitorLog) error {
	return s.write(ctx, "InsertVisit", func(d *state) error {
		log.ID = d.nextID()
		d.visits = append(d.visits, *log)
		return nil
	})
}

// Visits 已记录的访客行
func (s *Store) Visits() []objects.VisitorLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]objects.VisitorLog(nil), s.data.visits...)
}
