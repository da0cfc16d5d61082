package repo

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"

	"gorm.io/gorm"
)

type TopicRepo struct{ base }

func NewTopicRepo(tm *transaction.Manager) *TopicRepo {
	return &TopicRepo{base{tm}}
}

func (r *TopicRepo) LockTopic(ctx context.Context, topicID uint64) (*objects.Topic, error) {
	var t objects.Topic
	ok, err := findOne(forUpdate(r.conn(ctx)).Where("id = ?", topicID), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (r *TopicRepo) GetTopic(ctx context.Context, topicID uint64) (*objects.Topic, error) {
	var t objects.Topic
	ok, err := findOne(r.conn(ctx).Where("id = ?", topicID), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (r *TopicRepo) TopicExists(ctx context.Context, topicID uint64) (bool, error) {
	return topicExists(r.conn(ctx), topicID)
}

func topicExists(db *gorm.DB, topicID uint64) (bool, error) {
	var t objects.Topic
	return findOne(db.Select("id").Where("id = ?", topicID), &t)
}

func (r *TopicRepo) ListTopics(ctx context.Context, status objects.TopicStatus, topicType string) ([]objects.Topic, error) {
	var list []objects.Topic
	err := r.conn(ctx).
		Where("status = ? AND topic_type = ?", status, topicType).
		Order("published_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

func (r *TopicRepo) PopularTopics(ctx context.Context, limit int) ([]objects.TopicRanking, error) {
	comments := r.conn(ctx).Model(&objects.TopicComment{}).
		Select("topic_id, COUNT(*) AS comment_count").
		Where("status = ?", objects.StatusActive).
		Group("topic_id")

	q := r.conn(ctx).Table("tn_topic AS t").
		Select(`t.id, t.display_name, t.summary, t.published_at, t.view_count,
			(t.vote_count_left + t.vote_count_right) AS total_votes,
			COALESCE(c.comment_count, 0) AS comment_count,
			(t.vote_count_left + t.vote_count_right) + COALESCE(c.comment_count, 0) * ? + t.view_count AS popularity_score`,
			objects.RankingCommentWeight).
		Joins("LEFT JOIN (?) AS c ON c.topic_id = t.id", comments).
		Where("t.status = ? AND t.topic_type = ?", objects.TopicOpen, objects.TopicTypeVoting).
		Order("popularity_score DESC").Order("t.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []objects.TopicRanking
	err := q.Scan(&list).Error
	return list, err
}

func (r *TopicRepo) TopicArticles(ctx context.Context, topicID uint64) ([]objects.TopicArticle, error) {
	var list []objects.TopicArticle
	err := r.conn(ctx).
		Where("topic_id = ? AND status = ?", topicID, "published").
		Order("display_order ASC").Order("published_at DESC").
		Find(&list).Error
	return list, err
}

func (r *TopicRepo) FindVote(ctx context.Context, topicID, userID uint64) (*objects.TopicVote, error) {
	var v objects.TopicVote
	ok, err := findOne(r.conn(ctx).Where("topic_id = ? AND user_id = ?", topicID, userID), &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func (r *TopicRepo) InsertVote(ctx context.Context, vote *objects.TopicVote) error {
	return r.conn(ctx).Create(vote).Error
}

func (r *TopicRepo) UpdateVoteSide(ctx context.Context, voteID uint64, side objects.Side, at time.Time) error {
	return r.conn(ctx).Model(&objects.TopicVote{}).Where("id = ?", voteID).
		Updates(map[string]any{"side": side, "updated_at": at}).Error
}

func (r *TopicRepo) AdjustTally(ctx context.Context, topicID uint64, leftDelta, rightDelta int64) error {
	return r.conn(ctx).Model(&objects.Topic{}).Where("id = ?", topicID).
		UpdateColumns(map[string]any{
			"vote_count_left":  gorm.Expr("vote_count_left + ?", leftDelta),
			"vote_count_right": gorm.Expr("vote_count_right + ?", rightDelta),
		}).Error
}

func (r *TopicRepo) HasViewSince(ctx context.Context, topicID uint64, identifier string, since time.Time) (bool, error) {
	var v objects.TopicViewLog
	return findOne(r.conn(ctx).Select("id").
		Where("topic_id = ? AND user_identifier = ? AND created_at >= ?", topicID, identifier, since), &v)
}

func (r *TopicRepo) InsertView(ctx context.Context, view *objects.TopicViewLog) error {
	return r.conn(ctx).Create(view).Error
}

func (r *TopicRepo) IncrementViews(ctx context.Context, topicID uint64) (int64, error) {
	res := r.conn(ctx).Model(&objects.Topic{}).Where("id = ?", topicID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	return res.RowsAffected, res.Error
}

func (r *TopicRepo) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.conn(ctx).Model(&objects.Topic{}).
		Where("status = ? AND vote_end_at IS NOT NULL AND vote_end_at <= ?", objects.TopicOpen, now).
		Updates(map[string]any{"status": objects.TopicClosed, "updated_at": now})
	return res.RowsAffected, res.Error
}
