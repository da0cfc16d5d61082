package objects

import "time"

// VisitorLog 对应 tn_visitor_log，每个访客标识每天最多一行（尽力而为）
type VisitorLog struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	UserIdentifier string    `gorm:"type:varchar(255);not null;index:idx_visitor_day,priority:1"`
	UserAgent      string    `gorm:"type:varchar(512);not null;default:''"`
	Path           string    `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time `gorm:"index:idx_visitor_day,priority:2"`
}

func (VisitorLog) TableName() string {
	return "tn_visitor_log"
}
