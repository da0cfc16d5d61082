package repo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/chat"
	"github.com/iceymoss/go-agora/internal/comment"
	"github.com/iceymoss/go-agora/internal/engine"
	"github.com/iceymoss/go-agora/internal/topic"
	"github.com/iceymoss/go-agora/internal/visit"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/transaction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	_ visit.Store     = (*VisitRepo)(nil)
	_ topic.Store     = (*TopicRepo)(nil)
	_ topic.TxManager = (*transaction.Manager)(nil)
	_ chat.Store      = (*ChatRepo)(nil)
	_ comment.Store   = (*CommentRepo)(nil)

	_ engine.JobLogStore        = (*JobRepo)(nil)
	_ engine.JobDefinitionStore = (*JobRepo)(nil)
)

// 需要真实 MySQL：AGORA_TEST_MYSQL_DSN="user:pwd@tcp(127.0.0.1:3306)/agora_test?parseTime=True&loc=UTC"
func openMySQL(t *testing.T) (*gorm.DB, *transaction.Manager) {
	dsn := os.Getenv("AGORA_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("AGORA_TEST_MYSQL_DSN 未设置，跳过 MySQL 集成测试")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	models := objects.All()
	require.NoError(t, db.Migrator().DropTable(models...))
	require.NoError(t, db.AutoMigrate(models...))
	t.Cleanup(func() { _ = db.Migrator().DropTable(models...) })
	return db, transaction.NewManager(db)
}

func TestMySQLConcurrentVotes(t *testing.T) {
	db, tm := openMySQL(t)
	start, end := time.Now().Add(-time.Hour), time.Now().Add(time.Hour)
	tp := objects.Topic{DisplayName: "it", Status: objects.TopicOpen, VoteStartAt: &start, VoteEndAt: &end}
	require.NoError(t, db.Create(&tp).Error)

	ledger := topic.NewLedger(NewTopicRepo(tm), tm)
	var wg sync.WaitGroup
	for uid := uint64(1); uid <= 20; uid++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			side := objects.SideLeft
			if uid%2 == 0 {
				side = objects.SideRight
			}
			_, err := ledger.CastVote(context.Background(), tp.ID, uid, side)
			assert.NoError(t, err)
		}(uid)
	}
	wg.Wait()

	// 1 号用户改投
	got, err := ledger.CastVote(context.Background(), tp.ID, 1, objects.SideRight)
	require.NoError(t, err)
	assert.Equal(t, topic.Tally{VoteCountLeft: 9, VoteCountRight: 11}, got)

	var votes int64
	require.NoError(t, db.Model(&objects.TopicVote{}).Where("topic_id = ?", tp.ID).Count(&votes).Error)
	assert.Equal(t, int64(20), votes)
}

func TestMySQLChatReportOnConflict(t *testing.T) {
	db, tm := openMySQL(t)
	tp := objects.Topic{DisplayName: "chat", Status: objects.TopicOpen}
	require.NoError(t, db.Create(&tp).Error)

	stream := chat.NewStream(NewChatRepo(tm), tm, chat.NewLocalBroker(), nil, chat.Config{ReportThreshold: 2})
	ctx := context.Background()
	msg, err := stream.PostMessage(ctx, tp.ID, auth.Principal{UserID: 1}, "hello")
	require.NoError(t, err)

	out, err := stream.ReportMessage(ctx, msg.ID, auth.Principal{UserID: 2}, "SPAM")
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	out, err = stream.ReportMessage(ctx, msg.ID, auth.Principal{UserID: 2}, "SPAM")
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	out, err = stream.ReportMessage(ctx, msg.ID, auth.Principal{UserID: 3}, "ETC")
	require.NoError(t, err)
	assert.True(t, out.Hidden)

	var reports int64
	require.NoError(t, db.Model(&objects.ChatReport{}).Where("chat_id = ?", msg.ID).Count(&reports).Error)
	assert.Equal(t, int64(2), reports)
}

func TestMySQLVisitDedup(t *testing.T) {
	_, tm := openMySQL(t)
	d := visit.NewDeduplicator(NewVisitRepo(tm), visit.Config{Location: time.UTC})
	ctx := context.Background()

	assert.Equal(t, visit.OutcomeRecorded, d.RecordVisit(ctx, visit.Visit{Identifier: "9.9.9.9", Path: "/"}).Outcome)
	assert.Equal(t, visit.OutcomeDuplicate, d.RecordVisit(ctx, visit.Visit{Identifier: "9.9.9.9", Path: "/x"}).Outcome)
}

func TestMySQLCommentReactions(t *testing.T) {
	db, tm := openMySQL(t)
	tp := objects.Topic{DisplayName: "c", Status: objects.TopicOpen}
	require.NoError(t, db.Create(&tp).Error)

	svc := comment.NewService(NewCommentRepo(tm), tm, nil, comment.Config{})
	ctx := context.Background()
	c, err := svc.Create(ctx, auth.Principal{UserID: 1}, tp.ID, "first", nil, "LEFT")
	require.NoError(t, err)

	_, err = svc.React(ctx, auth.Principal{UserID: 2}, c.ID, "LIKE")
	require.NoError(t, err)
	r, err := svc.React(ctx, auth.Principal{UserID: 2}, c.ID, "DISLIKE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.LikeCount)
	assert.Equal(t, int64(1), r.DislikeCount)

	tree, err := svc.List(ctx, auth.Principal{UserID: 2}, tp.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.NotNil(t, tree[0].MyReaction)
	assert.Equal(t, objects.ReactionDislike, *tree[0].MyReaction)
}

func TestMySQLPopularTopics(t *testing.T) {
	db, tm := openMySQL(t)
	a := objects.Topic{DisplayName: "a", Status: objects.TopicOpen, TopicType: objects.TopicTypeVoting, VoteCountLeft: 3}
	b := objects.Topic{DisplayName: "b", Status: objects.TopicOpen, TopicType: objects.TopicTypeVoting, ViewCount: 1}
	closed := objects.Topic{DisplayName: "c", Status: objects.TopicClosed, TopicType: objects.TopicTypeVoting, ViewCount: 99}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Create(&closed).Error)
	require.NoError(t, db.Create(&objects.TopicComment{TopicID: b.ID, UserID: 1, Content: "x", Status: objects.StatusActive}).Error)
	require.NoError(t, db.Create(&objects.TopicComment{TopicID: b.ID, UserID: 2, Content: "y", Status: objects.StatusDeletedByUser}).Error)

	list, err := NewTopicRepo(tm).PopularTopics(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, int64(1), list[0].CommentCount)
	assert.Equal(t, int64(11), list[0].PopularityScore)
	assert.Equal(t, int64(3), list[1].PopularityScore)

	top, err := NewTopicRepo(tm).PopularTopics(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
