package objects

import "time"

// Side 投票立场
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// Valid 只接受 LEFT / RIGHT
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// TopicStatus 议题状态
type TopicStatus string

const (
	TopicPreparing TopicStatus = "PREPARING"
	TopicOpen      TopicStatus = "OPEN"
	TopicClosed    TopicStatus = "CLOSED"
)

const TopicTypeVoting = "VOTING"

// Topic 对应 tn_topic，票数字段是与 tn_topic_vote 保持一致的冗余计数
type Topic struct {
	ID             uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DisplayName    string      `gorm:"type:varchar(255);not null" json:"display_name"`
	Summary        string      `gorm:"type:text" json:"summary"`
	TopicType      string      `gorm:"type:varchar(16);not null;default:'VOTING'" json:"topic_type"`
	Status         TopicStatus `gorm:"type:varchar(16);not null;default:'PREPARING';index" json:"status"`
	StanceLeft     string      `gorm:"type:varchar(255)" json:"stance_left"`
	StanceRight    string      `gorm:"type:varchar(255)" json:"stance_right"`
	VoteCountLeft  int64       `gorm:"not null;default:0" json:"vote_count_left"`
	VoteCountRight int64       `gorm:"not null;default:0" json:"vote_count_right"`
	VoteStartAt    *time.Time  `json:"vote_start_at"`
	VoteEndAt      *time.Time  `gorm:"index" json:"vote_end_at"`
	ViewCount      int64       `gorm:"not null;default:0" json:"view_count"`
	PublishedAt    *time.Time  `json:"published_at"`
	CreatedAt      time.Time   `json:"-"`
	UpdatedAt      time.Time   `json:"-"`
}

func (Topic) TableName() string {
	return "tn_topic"
}

// RankingCommentWeight 计算热度时一条有效评论折合的分数
const RankingCommentWeight = 10

// TopicRanking 议题热度排行的一行，不对应实体表
type TopicRanking struct {
	ID              uint64     `json:"id"`
	DisplayName     string     `json:"display_name"`
	Summary         string     `json:"summary"`
	PublishedAt     *time.Time `json:"published_at"`
	ViewCount       int64      `json:"view_count"`
	TotalVotes      int64      `json:"total_votes"`
	CommentCount    int64      `json:"comment_count"`
	PopularityScore int64      `json:"popularity_score"`
}

// TopicVote 对应 tn_topic_vote，(topic_id, user_id) 唯一
type TopicVote struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	TopicID   uint64 `gorm:"not null;uniqueIndex:uk_topic_user,priority:1"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_topic_user,priority:2"`
	Side      Side   `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TopicVote) TableName() string {
	return "tn_topic_vote"
}

// TopicViewLog 对应 tn_topic_view_log，用于冷却期内去重浏览数
type TopicViewLog struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	TopicID        uint64 `gorm:"not null;index:idx_topic_viewer,priority:1"`
	UserIdentifier string `gorm:"type:varchar(255);not null;index:idx_topic_viewer,priority:2"`
	CreatedAt      time.Time
}

func (TopicViewLog) TableName() string {
	return "tn_topic_view_log"
}
