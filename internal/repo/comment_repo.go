package repo

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepo struct{ base }

func NewCommentRepo(tm *transaction.Manager) *CommentRepo {
	return &CommentRepo{base{tm}}
}

func (r *CommentRepo) TopicExists(ctx context.Context, topicID uint64) (bool, error) {
	return topicExists(r.conn(ctx), topicID)
}

func (r *CommentRepo) InsertComment(ctx context.Context, c *objects.TopicComment) error {
	return r.conn(ctx).Create(c).Error
}

func (r *CommentRepo) GetComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error) {
	return r.get(r.conn(ctx), commentID)
}

func (r *CommentRepo) LockComment(ctx context.Context, commentID uint64) (*objects.TopicComment, error) {
	return r.get(forUpdate(r.conn(ctx)), commentID)
}

func (r *CommentRepo) get(db *gorm.DB, commentID uint64) (*objects.TopicComment, error) {
	var c objects.TopicComment
	ok, err := findOne(db.Where("id = ?", commentID), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) ListComments(ctx context.Context, topicID uint64) ([]objects.TopicComment, error) {
	var list []objects.TopicComment
	err := r.conn(ctx).Where("topic_id = ?", topicID).
		Order("created_at ASC").Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *CommentRepo) UpdateCommentContent(ctx context.Context, commentID uint64, content string, at time.Time) error {
	return r.conn(ctx).Model(&objects.TopicComment{}).Where("id = ?", commentID).
		Updates(map[string]any{"content": content, "updated_at": at}).Error
}

func (r *CommentRepo) UpdateCommentStatus(ctx context.Context, commentID uint64, status objects.ContentStatus, at time.Time) error {
	return r.conn(ctx).Model(&objects.TopicComment{}).Where("id = ?", commentID).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

func (r *CommentRepo) FindReaction(ctx context.Context, commentID, userID uint64) (*objects.CommentReaction, error) {
	var row objects.CommentReaction
	ok, err := findOne(r.conn(ctx).Where("comment_id = ? AND user_id = ?", commentID, userID), &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *CommentRepo) InsertReaction(ctx context.Context, row *objects.CommentReaction) error {
	return r.conn(ctx).Create(row).Error
}

func (r *CommentRepo) UpdateReaction(ctx context.Context, reactionID uint64, reaction objects.Reaction, at time.Time) error {
	return r.conn(ctx).Model(&objects.CommentReaction{}).Where("id = ?", reactionID).
		Updates(map[string]any{"reaction_type": reaction, "updated_at": at}).Error
}

func (r *CommentRepo) AdjustReactions(ctx context.Context, commentID uint64, likeDelta, dislikeDelta int64) error {
	return r.conn(ctx).Model(&objects.TopicComment{}).Where("id = ?", commentID).
		UpdateColumns(map[string]any{
			"like_count":    gorm.Expr("like_count + ?", likeDelta),
			"dislike_count": gorm.Expr("dislike_count + ?", dislikeDelta),
		}).Error
}

func (r *CommentRepo) UserReactions(ctx context.Context, topicID, userID uint64) (map[uint64]objects.Reaction, error) {
	var rows []struct {
		CommentID    uint64
		ReactionType objects.Reaction
	}
	err := r.conn(ctx).Table(objects.CommentReaction{}.TableName()+" AS r").
		Select("r.comment_id, r.reaction_type").
		Joins("JOIN "+objects.TopicComment{}.TableName()+" AS c ON c.id = r.comment_id").
		Where("c.topic_id = ? AND r.user_id = ?", topicID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]objects.Reaction, len(rows))
	for _, row := range rows {
		out[row.CommentID] = row.ReactionType
	}
	return out, nil
}

func (r *CommentRepo) InsertCommentReport(ctx context.Context, report *objects.CommentReport) (bool, error) {
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(report)
	return res.RowsAffected > 0, res.Error
}

func (r *CommentRepo) IncrementCommentReports(ctx context.Context, commentID uint64) error {
	return r.conn(ctx).Model(&objects.TopicComment{}).Where("id = ?", commentID).
		UpdateColumn("report_count", gorm.Expr("report_count + 1")).Error
}
