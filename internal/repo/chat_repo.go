package repo

import (
	"context"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepo struct{ base }

func NewChatRepo(tm *transaction.Manager) *ChatRepo {
	return &ChatRepo{base{tm}}
}

func (r *ChatRepo) TopicExists(ctx context.Context, topicID uint64) (bool, error) {
	return topicExists(r.conn(ctx), topicID)
}

func (r *ChatRepo) InsertMessage(ctx context.Context, msg *objects.ChatMessage) error {
	return r.conn(ctx).Create(msg).Error
}

func (r *ChatRepo) GetMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error) {
	return r.get(r.conn(ctx), messageID)
}

func (r *ChatRepo) LockMessage(ctx context.Context, messageID uint64) (*objects.ChatMessage, error) {
	return r.get(forUpdate(r.conn(ctx)), messageID)
}

func (r *ChatRepo) get(db *gorm.DB, messageID uint64) (*objects.ChatMessage, error) {
	var m objects.ChatMessage
	ok, err := findOne(db.Where("id = ?", messageID), &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, topicID uint64, limit, offset int) ([]objects.ChatMessage, error) {
	var list []objects.ChatMessage
	err := r.conn(ctx).Where("topic_id = ?", topicID).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *ChatRepo) UpdateMessageStatus(ctx context.Context, messageID uint64, status objects.ContentStatus, at time.Time) error {
	return r.conn(ctx).Model(&objects.ChatMessage{}).Where("id = ?", messageID).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

// InsertChatReport 依赖 uk_chat_reporter 唯一索引，冲突时不插入
func (r *ChatRepo) InsertChatReport(ctx context.Context, report *objects.ChatReport) (bool, error) {
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(report)
	return res.RowsAffected > 0, res.Error
}

func (r *ChatRepo) IncrementMessageReports(ctx context.Context, messageID uint64) error {
	return r.conn(ctx).Model(&objects.ChatMessage{}).Where("id = ?", messageID).
		UpdateColumn("report_count", gorm.Expr("report_count + 1")).Error
}
