package objects

import (
	"time"
)

// HomeArticle 对应数据库表 tn_home_article，首页聚合的新闻文章
// 同时带 db 标签，供 sqlx 只读查询直接扫描
type HomeArticle struct {
	// ID 主键
	ID uint64 `gorm:"primaryKey;autoIncrement" db:"id" json:"id"`

	// 标题，关键词按子串匹配
	Title string `gorm:"type:varchar(512);not null" db:"title" json:"title"`

	// 来源媒体名称
	Source string `gorm:"type:varchar(128);not null;default:''" db:"source" json:"source"`

	// 来源域名 (例如: yna.co.kr)，用于推导 favicon
	SourceDomain string `gorm:"type:varchar(128);not null;default:''" db:"source_domain" json:"source_domain"`

	URL          string  `gorm:"column:url;type:varchar(1024);not null;default:''" db:"url" json:"url"`
	ThumbnailURL *string `gorm:"column:thumbnail_url;type:varchar(1024)" db:"thumbnail_url" json:"thumbnail_url"`

	PublishedAt time.Time `gorm:"index" db:"published_at" json:"published_at"`
	ViewCount   int64     `gorm:"not null;default:0" db:"view_count" json:"view_count"`
}

// TableName 指定表名
func (HomeArticle) TableName() string {
	return "tn_home_article"
}

// TopicArticle 对应 tn_article，挂在某个议题下的左右立场文章
type TopicArticle struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TopicID      uint64    `gorm:"index;not null" json:"topic_id"`
	Source       string    `gorm:"type:varchar(128);not null;default:''" json:"source"`
	SourceDomain string    `gorm:"type:varchar(128);not null;default:''" json:"source_domain"`
	Side         Side      `gorm:"type:varchar(16)" json:"side"`
	Title        string    `gorm:"type:varchar(512);not null" json:"title"`
	URL          string    `gorm:"column:url;type:varchar(1024);not null;default:''" json:"url"`
	ThumbnailURL *string   `gorm:"column:thumbnail_url;type:varchar(1024)" json:"thumbnail_url"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `gorm:"not null;default:0" json:"view_count"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	Status       string    `gorm:"type:varchar(16);not null;default:'published'" json:"-"`
}

func (TopicArticle) TableName() string {
	return "tn_article"
}

// TrendingKeyword 对应 tn_trending_keyword
type TrendingKeyword struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" db:"id" json:"id"`
	Keyword   string    `gorm:"type:varchar(100);not null" db:"keyword" json:"keyword"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" db:"created_at" json:"created_at"`
}

func (TrendingKeyword) TableName() string {
	return "tn_trending_keyword"
}
