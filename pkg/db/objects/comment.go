package objects

import "time"

// Stance 评论者声明的立场，可为空
type Stance string

const (
	StanceLeft    Stance = "LEFT"
	StanceRight   Stance = "RIGHT"
	StanceNeutral Stance = "NEUTRAL"
)

// Reaction 评论点赞 / 点踩
type Reaction string

const (
	ReactionLike    Reaction = "LIKE"
	ReactionDislike Reaction = "DISLIKE"
)

// TopicComment 对应 tn_topic_comment，软删除，父评论被删后回复仍保留 parent_comment_id
type TopicComment struct {
	ID              uint64        `gorm:"primaryKey;autoIncrement"`
	TopicID         uint64        `gorm:"not null;index"`
	UserID          uint64        `gorm:"not null;index"`
	ParentCommentID *uint64       `gorm:"index"`
	Content         string        `gorm:"type:text;not null"`
	Stance          Stance        `gorm:"column:user_vote_side;type:varchar(16)"`
	Status          ContentStatus `gorm:"type:varchar(32);not null;default:'ACTIVE'"`
	LikeCount       int64         `gorm:"not null;default:0"`
	DislikeCount    int64         `gorm:"not null;default:0"`
	ReportCount     int           `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (TopicComment) TableName() string {
	return "tn_topic_comment"
}

// CommentReport 对应 tn_topic_comment_report_log
type CommentReport struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"`
	CommentID uint64       `gorm:"not null;uniqueIndex:uk_comment_reporter,priority:1"`
	UserID    uint64       `gorm:"not null;uniqueIndex:uk_comment_reporter,priority:2"`
	Reason    ReportReason `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
}

func (CommentReport) TableName() string {
	return "tn_topic_comment_report_log"
}

// CommentReaction 对应 tn_topic_comment_reaction，每人每条评论一条
type CommentReaction struct {
	ID           uint64   `gorm:"primaryKey;autoIncrement"`
	CommentID    uint64   `gorm:"not null;uniqueIndex:uk_comment_reactor,priority:1"`
	UserID       uint64   `gorm:"not null;uniqueIndex:uk_comment_reactor,priority:2"`
	ReactionType Reaction `gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CommentReaction) TableName() string {
	return "tn_topic_comment_reaction"
}
