// Package comment 议题下的楼中楼评论。
//
// 评论不做物理删除。被隐藏或删除的评论在树中保留占位，回复仍挂在原父评论下。
package comment

import (
	"context"
	"strings"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/moderation"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/logger"
	"github.com/iceymoss/go-agora/pkg/sensitive"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"go.uber.org/zap"
)

// Comment 评论视图
type Comment struct {
	ID              uint64                `json:"id"`
	TopicID         uint64                `json:"topic_id"`
	UserID          uint64                `json:"user_id,omitempty"`
	ParentCommentID *uint64               `json:"parent_comment_id"`
	Content         string                `json:"content"`
	Stance          objects.Stance        `json:"stance,omitempty"`
	Status          objects.ContentStatus `json:"status"`
	LikeCount       int64                 `json:"like_count"`
	DislikeCount    int64                 `json:"dislike_count"`
	MyReaction      *objects.Reaction     `json:"my_reaction"`
	IsMine          bool                  `json:"is_mine"`
	Redacted        bool                  `json:"redacted"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Replies         []*Comment            `json:"replies"`
}

// ReactionResult 反应后的计数
type ReactionResult struct {
	LikeCount    int64            `json:"like_count"`
	DislikeCount int64            `json:"dislike_count"`
	MyReaction   objects.Reaction `json:"my_reaction"`
	Changed      bool             `json:"changed"`
}

type Config struct {
	MaxContentLength int
	ReportThreshold  int
}

type Service struct {
	store Store
	tx    TxManager
	words *sensitive.Word
	cfg   Config
	now   func() time.Time
	log   *zap.Logger
}

func NewService(store Store, tx TxManager, words *sensitive.Word, cfg Config) *Service {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = moderation.DefaultMaxContentLength
	}
	if cfg.ReportThreshold <= 0 {
		cfg.ReportThreshold = moderation.DefaultReportThreshold
	}
	return &Service{
		store: store,
		tx:    tx,
		words: words,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.Named("comment"),
	}
}

func view(c objects.TopicComment, viewer auth.Principal) *Comment {
	out := &Comment{
		ID:              c.ID,
		TopicID:         c.TopicID,
		ParentCommentID: c.ParentCommentID,
		Status:          c.Status,
		LikeCount:       c.LikeCount,
		DislikeCount:    c.DislikeCount,
		IsMine:          viewer.Authenticated() && viewer.UserID == c.UserID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Replies:         []*Comment{},
	}
	if moderation.CanReadContent(c.Status, c.UserID, viewer) {
		out.UserID = c.UserID
		out.Content = c.Content
		out.Stance = c.Stance
		return out
	}
	out.Redacted = true
	return out
}

// List 以树形返回评论。父评论不在结果中的回复当作顶层评论。
func (s *Service) List(ctx context.Context, viewer auth.Principal, topicID uint64) ([]*Comment, error) {
	ok, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if !ok {
		return nil, errs.NotFound("topic not found")
	}
	rows, err := s.store.ListComments(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	var mine map[uint64]objects.Reaction
	if viewer.Authenticated() {
		if mine, err = s.store.UserReactions(ctx, topicID, viewer.UserID); err != nil {
			return nil, errs.Store(err)
		}
	}

	byID := make(map[uint64]*Comment, len(rows))
	roots := []*Comment{}
	for _, row := range rows {
		c := view(row, viewer)
		if r, ok := mine[row.ID]; ok {
			r := r
			c.MyReaction = &r
		}
		byID[c.ID] = c
		if row.ParentCommentID != nil {
			if parent, ok := byID[*row.ParentCommentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots, nil
}

func parseStance(raw string) (objects.Stance, error) {
	stance := objects.Stance(strings.ToUpper(strings.TrimSpace(raw)))
	switch stance {
	case "":
		return objects.StanceNeutral, nil
	case objects.StanceLeft, objects.StanceRight, objects.StanceNeutral:
		return stance, nil
	}
	return "", errs.Validation("stance", "stance must be one of LEFT, RIGHT, NEUTRAL")
}

// Create 发表评论或回复。回复的父评论必须属于同一议题。
func (s *Service) Create(ctx context.Context, author auth.Principal, topicID uint64, content string, parentID *uint64, rawStance string) (*Comment, error) {
	if !author.Authenticated() {
		return nil, errs.Unauthenticated("login required to comment")
	}
	stance, err := parseStance(rawStance)
	if err != nil {
		return nil, err
	}
	content, err = moderation.CleanContent(content, s.cfg.MaxContentLength, s.words)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if !ok {
		return nil, errs.NotFound("topic not found")
	}
	if parentID != nil {
		parent, err := s.store.GetComment(ctx, *parentID)
		if err != nil {
			return nil, errs.Store(err)
		}
		if parent == nil || parent.TopicID != topicID {
			return nil, errs.Validation("parent_comment_id", "parent comment does not belong to this topic")
		}
	}

	now := s.now()
	row := &objects.TopicComment{
		TopicID:         topicID,
		UserID:          author.UserID,
		ParentCommentID: parentID,
		Content:         content,
		Stance:          stance,
		Status:          objects.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertComment(ctx, row); err != nil {
		return nil, errs.Store(err)
	}
	return view(*row, author), nil
}

// owned 取出作者本人的评论，非作者返回 403
func (s *Service) owned(ctx context.Context, commentID uint64, user auth.Principal) (*objects.TopicComment, error) {
	if !user.Authenticated() {
		return nil, errs.Unauthenticated("login required")
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if c == nil {
		return nil, errs.NotFound("comment not found")
	}
	if c.UserID != user.UserID {
		return nil, errs.Forbidden("only the author can change this comment")
	}
	return c, nil
}

// Update 修改自己的评论，只有 ACTIVE 评论可以修改
func (s *Service) Update(ctx context.Context, user auth.Principal, commentID uint64, content string) (*Comment, error) {
	c, err := s.owned(ctx, commentID, user)
	if err != nil {
		return nil, err
	}
	if c.Status != objects.StatusActive {
		return nil, errs.NotFound("comment not found")
	}
	content, err = moderation.CleanContent(content, s.cfg.MaxContentLength, s.words)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.UpdateCommentContent(ctx, commentID, content, now); err != nil {
		return nil, errs.Store(err)
	}
	c.Content = content
	c.UpdatedAt = now
	return view(*c, user), nil
}

// Delete 删除自己的评论，重复删除是幂等的
func (s *Service) Delete(ctx context.Context, user auth.Principal, commentID uint64) error {
	c, err := s.owned(ctx, commentID, user)
	if err != nil {
		return err
	}
	switch c.Status {
	case objects.StatusDeletedByUser:
		return nil
	case objects.StatusDeletedByAdmin:
		return errs.NotFound("comment not found")
	}
	if err := s.store.UpdateCommentStatus(ctx, commentID, objects.StatusDeletedByUser, s.now()); err != nil {
		return errs.Store(err)
	}
	return nil
}

// React 点赞或点踩。重复同一反应不变，换边时原计数减一、新计数加一。
func (s *Service) React(ctx context.Context, user auth.Principal, commentID uint64, raw string) (ReactionResult, error) {
	if !user.Authenticated() {
		return ReactionResult{}, errs.Unauthenticated("login required")
	}
	reaction := objects.Reaction(strings.ToUpper(strings.TrimSpace(raw)))
	if reaction != objects.ReactionLike && reaction != objects.ReactionDislike {
		return ReactionResult{}, errs.Validation("reaction", "reaction must be LIKE or DISLIKE")
	}

	var result ReactionResult
	err := s.tx.Execute(ctx, nil, func(ctx context.Context) error {
		c, err := s.store.LockComment(ctx, commentID)
		if err != nil {
			return errs.Store(err)
		}
		if c == nil {
			return errs.NotFound("comment not found")
		}
		existing, err := s.store.FindReaction(ctx, commentID, user.UserID)
		if err != nil {
			return errs.Store(err)
		}

		now := s.now()
		var like, dislike int64
		switch {
		case existing == nil:
			err = s.store.InsertReaction(ctx, &objects.CommentReaction{
				CommentID:    commentID,
				UserID:       user.UserID,
				ReactionType: reaction,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			like, dislike = reactionDelta(reaction, 1)
		case existing.ReactionType == reaction:
			result = ReactionResult{LikeCount: c.LikeCount, DislikeCount: c.DislikeCount, MyReaction: reaction}
			return nil
		default:
			err = s.store.UpdateReaction(ctx, existing.ID, reaction, now)
			ol, od := reactionDelta(existing.ReactionType, -1)
			nl, nd := reactionDelta(reaction, 1)
			like, dislike = ol+nl, od+nd
		}
		if err != nil {
			return errs.Store(err)
		}
		if err := s.store.AdjustReactions(ctx, commentID, like, dislike); err != nil {
			return errs.Store(err)
		}
		result = ReactionResult{
			LikeCount:    c.LikeCount + like,
			DislikeCount: c.DislikeCount + dislike,
			MyReaction:   reaction,
			Changed:      true,
		}
		return nil
	})
	if err != nil {
		return ReactionResult{}, errs.Store(err)
	}
	return result, nil
}

func reactionDelta(r objects.Reaction, n int64) (like, dislike int64) {
	if r == objects.ReactionLike {
		return n, 0
	}
	return 0, n
}

// Report 举报评论。同一用户重复举报返回 409；累计达到阈值自动隐藏。
func (s *Service) Report(ctx context.Context, reporter auth.Principal, commentID uint64, rawReason string) (moderation.ReportOutcome, error) {
	if !reporter.Authenticated() {
		return moderation.ReportOutcome{}, errs.Unauthenticated("login required to report")
	}
	reason, err := moderation.ParseReason(rawReason)
	if err != nil {
		return moderation.ReportOutcome{}, err
	}

	var outcome moderation.ReportOutcome
	err = s.tx.Execute(ctx, nil, func(ctx context.Context) error {
		c, err := s.store.LockComment(ctx, commentID)
		if err != nil {
			return errs.Store(err)
		}
		if c == nil {
			return errs.NotFound("comment not found")
		}
		now := s.now()
		inserted, err := s.store.InsertCommentReport(ctx, &objects.CommentReport{
			CommentID: commentID,
			UserID:    reporter.UserID,
			Reason:    reason,
			CreatedAt: now,
		})
		if err != nil {
			return errs.Store(err)
		}
		if !inserted {
			return errs.Conflict(xerr.ErrAlreadyReported, "comment already reported")
		}
		if err := s.store.IncrementCommentReports(ctx, commentID); err != nil {
			return errs.Store(err)
		}
		c.ReportCount++
		if c.ReportCount >= s.cfg.ReportThreshold && c.Status == objects.StatusActive {
			if err := s.store.UpdateCommentStatus(ctx, commentID, objects.StatusHidden, now); err != nil {
				return errs.Store(err)
			}
			c.Status = objects.StatusHidden
			s.log.Info("comment hidden by reports", zap.Uint64("comment_id", commentID), zap.Int("report_count", c.ReportCount))
		}
		outcome = moderation.ReportOutcome{ReportCount: c.ReportCount, Hidden: moderation.Hidden(c.Status)}
		return nil
	})
	if err != nil {
		return moderation.ReportOutcome{}, errs.Store(err)
	}
	return outcome, nil
}

// Moderate 管理员设置评论状态
func (s *Service) Moderate(ctx context.Context, admin auth.Principal, commentID uint64, rawStatus string) (*Comment, error) {
	if !admin.Authenticated() {
		return nil, errs.Unauthenticated("login required")
	}
	if !admin.IsAdmin() {
		return nil, errs.Forbidden("admin only")
	}
	status, err := moderation.ParseAdminStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if c == nil {
		return nil, errs.NotFound("comment not found")
	}
	if c.Status != status {
		now := s.now()
		if err := s.store.UpdateCommentStatus(ctx, commentID, status, now); err != nil {
			return nil, errs.Store(err)
		}
		c.Status = status
		c.UpdatedAt = now
	}
	s.log.Info("comment moderated", zap.Uint64("comment_id", commentID), zap.Uint64("admin_id", admin.UserID), zap.String("status", string(status)))
	return view(*c, admin), nil
}
