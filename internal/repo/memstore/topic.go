package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

// SeedTopic 写入议题，ID 为 0 时自动分配
func (s *Store) SeedTopic(t objects.Topic) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.data.nextID()
	}
	if t.TopicType == "" {
		t.TopicType = objects.TopicTypeVoting
	}
	s.data.topics[t.ID] = t
	return t.ID
}

func (s *Store) SeedTopicArticle(a objects.TopicArticle) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.data.nextID()
	}
	if a.Status == "" {
		a.Status = "published"
	}
	s.data.topicArticles = append(s.data.topicArticles, a)
	return a.ID
}

// Votes 某议题的全部投票行，按 id 升序
func (s *Store) Votes(topicID uint64) []objects.TopicVote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []objects.TopicVote
	for _, id := range sortedKeys(s.data.votes) {
		if v := s.data.votes[id]; v.TopicID == topicID {
			out = append(out, v)
		}
	}
	return out
}

// LockTopic 事务已串行执行，无需额外加锁
func (s *Store) LockTopic(ctx context.Context, topicID uint64) (*objects.Topic, error) {
	return s.getTopic(ctx, "LockTopic", topicID)
}

func (s *Store) GetTopic(ctx context.Context, topicID uint64) (*objects.Topic, error) {
	return s.getTopic(ctx, "GetTopic", topicID)
}

func (s *Store) getTopic(ctx context.Context, op string, topicID uint64) (*objects.Topic, error) {
	var out *objects.Topic
	err := s.read(ctx, op, func(d *state) error {
		if t, ok := d.topics[topicID]; ok {
			out = &t
		}
		return nil
	})
	return out, err
}

func (s *Store) TopicExists(ctx context.Context, topicID uint64) (bool, error) {
	t, err := s.GetTopic(ctx, topicID)
	return t != nil, err
}

func (s *Store) ListTopics(ctx context.Context, status objects.TopicStatus, topicType string) ([]objects.Topic, error) {
	var out []objects.Topic
	err := s.read(ctx, "ListTopics", func(d *state) error {
		for _, id := range sortedKeys(d.topics) {
			t := d.topics[id]
			if t.Status == status && t.TopicType == topicType {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return publishedAt(out[i]).After(publishedAt(out[j]))
	})
	return out, err
}

func publishedAt(t objects.Topic) time.Time {
	if t.PublishedAt == nil {
		return time.Time{}
	}
	return *t.PublishedAt
}

func (s *Store) TopicArticles(ctx context.Context, topicID uint64) ([]objects.TopicArticle, error) {
	var out []objects.TopicArticle
	err := s.read(ctx, "TopicArticles", func(d *state) error {
		for _, a := range d.topicArticles {
			if a.TopicID == topicID && a.Status == "published" {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, err
}

func (s *Store) FindVote(ctx context.Context, topicID, userID uint64) (*objects.TopicVote, error) {
	var out *objects.TopicVote
	err := s.read(ctx, "FindVote", func(d *state) error {
		for _, v := range d.votes {
			if v.TopicID == topicID && v.UserID == userID {
				v := v
				out = &v
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) InsertVote(ctx context.Context, vote *objects.TopicVote) error {
	return s.write(ctx, "InsertVote", func(d *state) error {
		for _, v := range d.votes {
			if v.TopicID == vote.TopicID && v.UserID == vote.UserID {
				return ErrDuplicateKey
			}
		}
		vote.ID = d.nextID()
		d.votes[vote.ID] = *vote
		return nil
	})
}

func (s *Store) UpdateVoteSide(ctx context.Context, voteID uint64, side objects.Side, at time.Time) error {
	return s.write(ctx, "UpdateVoteSide", func(d *state) error {
		v, ok := d.votes[voteID]
		if !ok {
			return nil
		}
		v.Side = side
		v.UpdatedAt = at
		d.votes[voteID] = v
		return nil
	})
}

func (s *Store) AdjustTally(ctx context.Context, topicID uint64, leftDelta, rightDelta int64) error {
	return s.write(ctx, "AdjustTally", func(d *state) error {
		t, ok := d.topics[topicID]
		if !ok {
			return nil
		}
		t.VoteCountLeft += leftDelta
		t.VoteCountRight += rightDelta
		d.topics[topicID] = t
		return nil
	})
}

func (s *Store) HasViewSince(ctx context.Context, topicID uint64, identifier string, since time.Time) (bool, error) {
	found := false
	err := s.read(ctx, "HasViewSince", func(d *state) error {
		for _, v := range d.views {
			if v.TopicID == topicID && v.UserIdentifier == identifier && !v.CreatedAt.Before(since) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) InsertView(ctx context.Context, view *objects.TopicViewLog) error {
	return s.write(ctx, "InsertView", func(d *state) error {
		view.ID = d.nextID()
		d.views = append(d.views, *view)
		return nil
	})
}

func (s *Store) IncrementViews(ctx context.Context, topicID uint64) (int64, error) {
	var n int64
	err := s.write(ctx, "IncrementViews", func(d *state) error {
		t, ok := d.topics[topicID]
		if !ok {
			return nil
		}
		t.ViewCount++
		d.topics[topicID] = t
		n = 1
		return nil
	})
	return n, err
}

func (s *Store) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.write(ctx, "CloseExpired", func(d *state) error {
		for id, t := range d.topics {
			if t.Status == objects.TopicOpen && t.VoteEndAt != nil && !t.VoteEndAt.After(now) {
				t.Status = objects.TopicClosed
				d.topics[id] = t
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) PopularTopics(ctx context.Context, limit int) ([]objects.TopicRanking, error) {
	var out []objects.TopicRanking
	err := s.read(ctx, "PopularTopics", func(d *state) error {
		comments := map[uint64]int64{}
		for _, c := range d.comments {
			if c.Status == objects.StatusActive {
				comments[c.TopicID]++
			}
		}
		for _, t := range d.topics {
			if t.Status != objects.TopicOpen || t.TopicType != objects.TopicTypeVoting {
				continue
			}
			votes := t.VoteCountLeft + t.VoteCountRight
			out = append(out, objects.TopicRanking{
				ID:              t.ID,
				DisplayName:     t.DisplayName,
				Summary:         t.Summary,
				PublishedAt:     t.PublishedAt,
				ViewCount:       t.ViewCount,
				TotalVotes:      votes,
				CommentCount:    comments[t.ID],
				PopularityScore: votes + comments[t.ID]*objects.RankingCommentWeight + t.ViewCount,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].PopularityScore != out[j].PopularityScore {
			return out[i].PopularityScore > out[j].PopularityScore
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
