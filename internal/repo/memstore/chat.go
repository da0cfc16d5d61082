package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

func (s *Store) InsertMessage(ctx context.Context, msg *objects.ChatMessage) error {
	return s.write(ctx, "InsertMessage", func(d *state) error {
		msg.ID = d.nextID()
		d.chats[msg.ID] = *msg
		return nil
	})
}

func (s *Store) GetMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error) {
	return s.getMessage(ctx, "GetMessage", messageID)
}

func (s *Store) LockMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error) {
	return s.getMessage(ctx, "LockMessage", messageID)
}

func (s *Store) getMessage(ctx context.Context, op string, messageID uint64) (*objects.ChatMessage, error) {
	var out *objects.ChatMessage
	err := s.read(ctx, op, func(d *state) error {
		if m, ok := d.chats[messageID]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (s *Store) ListMessages(ctx context.Context, topicID uint64, limit, offset int) ([]objects.ChatMessage, error) {
	var all []objects.ChatMessage
	err := s.read(ctx, "ListMessages", func(d *state) error {
		for _, m := range d.chats {
			if m.TopicID == topicID {
				all = append(all, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return []objects.ChatMessage{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, messageID uint64, status objects.ContentStatus, at time.Time) error {
	return s.write(ctx, "UpdateMessageStatus", func(d *state) error {
		m, ok := d.chats[messageID]
		if !ok {
			return nil
		}
		m.Status = status
		m.UpdatedAt = at
		d.chats[messageID] = m
		return nil
	})
}

func (s *Store) InsertChatReport(ctx context.Context, report *objects.ChatReport) (bool, error) {
	inserted := false
	err := s.write(ctx, "InsertChatReport", func(d *state) error {
		for _, r := range d.chatReports {
			if r.ChatID == report.ChatID && r.UserID == report.UserID {
				return nil
			}
		}
		report.ID = d.nextID()
		d.chatReports = append(d.chatReports, *report)
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) IncrementMessageReports(ctx context.Context, messageID uint64) error {
	return s.write(ctx, "IncrementMessageReports", func(d *state) error {
		m, ok := d.chats[messageID]
		if !ok {
			return nil
		}
		m.ReportCount++
		d.chats[messageID] = m
		return nil
	})
}

// ChatReports 某条消息的举报记录数
func (s *Store) ChatReports(messageID uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.data.chatReports {
		if r.ChatID == messageID {
			n++
		}
	}
	return n
}
