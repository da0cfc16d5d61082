package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

func (s *Store) InsertComment(ctx context.Context, c *objects.TopicComment) error {
	return s.write(ctx, "InsertComment", func(d *state) error {
		c.ID = d.nextID()
		d.comments[c.ID] = *c
		return nil
	})
}

func (s *Store) GetComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error) {
	return s.getComment(ctx, "GetComment", commentID)
}

func (s *Store) LockComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error) {
	return s.getComment(ctx, "LockComment", commentID)
}

func (s *Store) getComment(ctx context.Context, op string, commentID uint64) (*objects.TopicComment, error) {
	var out *objects.TopicComment
	err := s.read(ctx, op, func(d *state) error {
		if c, ok := d.comments[commentID]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (s *Store) ListComments(ctx context.Context, topicID uint64) ([]objects.TopicComment, error) {
	var out []objects.TopicComment
	err := s.read(ctx, "ListComments", func(d *state) error {
		for _, c := range d.comments {
			if c.TopicID == topicID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) updateComment(ctx context.Context, op string, commentID uint64, fn func(c *objects.TopicComment)) error {
	return s.write(ctx, op, func(d *state) error {
		c, ok := d.comments[commentID]
		if !ok {
			return nil
		}
		fn(&c)
		d.comments[commentID] = c
		return nil
	})
}

func (s *Store) UpdateCommentContent(ctx context.Context, commentID uint64, content string, at time.Time) error {
	return s.updateComment(ctx, "UpdateCommentContent", commentID, func(c *objects.TopicComment) {
		c.Content = content
		c.UpdatedAt = at
	})
}

func (s *Store) UpdateCommentStatus(ctx context.Context, commentID uint64, status objects.ContentStatus, at time.Time) error {
	return s.updateComment(ctx, "UpdateCommentStatus", commentID, func(c *objects.TopicComment) {
		c.Status = status
		c.UpdatedAt = at
	})
}

func (s *Store) AdjustReactions(ctx context.Context, commentID uint64, likeDelta, dislikeDelta int64) error {
	return s.updateComment(ctx, "AdjustReactions", commentID, func(c *objects.TopicComment) {
		c.LikeCount += likeDelta
		c.DislikeCount += dislikeDelta
	})
}

func (s *Store) IncrementCommentReports(ctx context.Context, commentID uint64) error {
	return s.updateComment(ctx, "IncrementCommentReports", commentID, func(c *objects.TopicComment) {
		c.ReportCount++
	})
}

func (s *Store) FindReaction(ctx context.Context, commentID, userID uint64) (*objects.CommentReaction, error) {
	var out *objects.CommentReaction
	err := s.read(ctx, "FindReaction", func(d *state) error {
		for _, r := range d.reactions {
			if r.CommentID == commentID && r.UserID == userID {
				r := r
				out = &r
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) InsertReaction(ctx context.Context, r *objects.CommentReaction) error {
	return s.write(ctx, "InsertReaction", func(d *state) error {
		for _, existing := range d.reactions {
			if existing.CommentID == r.CommentID && existing.UserID == r.UserID {
				return ErrDuplicateKey
			}
		}
		r.ID = d.nextID()
		d.reactions[r.ID] = *r
		return nil
	})
}

func (s *Store) UpdateReaction(ctx context.Context, reactionID uint64, reaction objects.Reaction, at time.Time) error {
	return s.write(ctx, "UpdateReaction", func(d *state) error {
		r, ok := d.reactions[reactionID]
		if !ok {
			return nil
		}
		r.ReactionType = reaction
		r.UpdatedAt = at
		d.reactions[reactionID] = r
		return nil
	})
}

func (s *Store) UserReactions(ctx context.Context, topicID, userID uint64) (map[uint64]objects.Reaction, error) {
	out := map[uint64]objects.Reaction{}
	err := s.read(ctx, "UserReactions", func(d *state) error {
		for _, r := range d.reactions {
			if r.UserID != userID {
				continue
			}
			if c, ok := d.comments[r.CommentID]; ok && c.TopicID == topicID {
				out[r.CommentID] = r.ReactionType
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) InsertCommentReport(ctx context.Context, report *objects.CommentReport) (bool, error) {
	inserted := false
	err := s.write(ctx, "InsertCommentReport", func(d *state) error {
		for _, r := range d.commentReports {
			if r.CommentID == report.CommentID && r.UserID == report.UserID {
				return nil
			}
		}
		report.ID = d.nextID()
		d.commentReports = append(d.commentReports, *report)
		inserted = true
		return nil
	})
	return inserted, err
}
