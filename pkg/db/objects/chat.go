package objects

import "time"

// ContentStatus 聊天消息 / 评论的审核状态
type ContentStatus string

const (
	StatusActive         ContentStatus = "ACTIVE"
	StatusHidden         ContentStatus = "HIDDEN"
	StatusDeletedByUser  ContentStatus = "DELETED_BY_USER"
	StatusDeletedByAdmin ContentStatus = "DELETED_BY_ADMIN"
)

// ReportReason 举报理由
type ReportReason string

const (
	ReasonSpam              ReportReason = "SPAM"
	ReasonFlooding          ReportReason = "FLOODING"
	ReasonPrivacyDefamation ReportReason = "PRIVACY_DEFAMATION"
	ReasonEtc               ReportReason = "ETC"
)

// ChatMessage 对应 tn_chat，只追加，状态由审核流转
type ChatMessage struct {
	ID          uint64        `gorm:"primaryKey;autoIncrement"`
	TopicID     uint64        `gorm:"not null;index:idx_chat_topic,priority:1"`
	UserID      uint64        `gorm:"not null;index"`
	Content     string        `gorm:"type:text;not null"`
	Status      ContentStatus `gorm:"type:varchar(32);not null;default:'ACTIVE'"`
	ReportCount int           `gorm:"not null;default:0"`
	CreatedAt   time.Time     `gorm:"index:idx_chat_topic,priority:2"`
	UpdatedAt   time.Time
}

func (ChatMessage) TableName() string {
	return "tn_chat"
}

// ChatReport 对应 tn_chat_report_log，(chat_id, user_id) 唯一
type ChatReport struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"`
	ChatID    uint64       `gorm:"not null;uniqueIndex:uk_chat_reporter,priority:1"`
	UserID    uint64       `gorm:"not null;uniqueIndex:uk_chat_reporter,priority:2"`
	Reason    ReportReason `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
}

func (ChatReport) TableName() string {
	return "tn_chat_report_log"
}
