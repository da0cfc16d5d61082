package topic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/internal/auth"
	"github.com/iceymoss/go-agora/internal/repo/memstore"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/favicon"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store *memstore.Store, now time.Time) *Service {
	s := NewService(store, store, Config{Favicons: favicon.Default()})
	s.now = func() time.Time { return now }
	return s
}

func TestListOpenOrdersByPublishedAt(t *testing.T) {
	store := memstore.New()
	older, newer := fixedNow.Add(-48*time.Hour), fixedNow.Add(-time.Hour)
	a := store.SeedTopic(objects.Topic{DisplayName: "old", Status: objects.TopicOpen, PublishedAt: &older})
	b := store.SeedTopic(objects.Topic{DisplayName: "new", Status: objects.TopicOpen, PublishedAt: &newer})
	store.SeedTopic(objects.Topic{DisplayName: "closed", Status: objects.TopicClosed, PublishedAt: &newer})

	list, err := newService(store, fixedNow).ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []uint64{b, a}, []uint64{list[0].ID, list[1].ID})
}

func TestListOpenEmpty(t *testing.T) {
	list, err := newService(memstore.New(), fixedNow).ListOpen(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetDetail(t *testing.T) {
	store := memstore.New()
	id := store.SeedTopic(openTopic())
	store.SeedTopicArticle(objects.TopicArticle{TopicID: id, Title: "second", SourceDomain: "unknown.example", DisplayOrder: 2})
	store.SeedTopicArticle(objects.TopicArticle{TopicID: id, Title: "first", SourceDomain: "hani.co.kr", DisplayOrder: 1})
	store.SeedTopicArticle(objects.TopicArticle{TopicID: id, Title: "draft", DisplayOrder: 0, Status: "draft"})
	svc := newService(store, fixedNow)

	l := NewLedger(store, store)
	l.now = func() time.Time { return fixedNow }
	_, err := l.CastVote(context.Background(), id, 5, objects.SideRight)
	require.NoError(t, err)

	d, err := svc.Get(context.Background(), id, auth.Principal{UserID: 5})
	require.NoError(t, err)
	require.NotNil(t, d.MyVote)
	assert.Equal(t, objects.SideRight, *d.MyVote)
	assert.Equal(t, int64(1), d.Topic.VoteCountRight)

	require.Len(t, d.Articles, 2, "未发布的文章不返回")
	assert.Equal(t, "first", d.Articles[0].Title)
	require.NotNil(t, d.Articles[0].FaviconURL)
	assert.Nil(t, d.Articles[1].FaviconURL)

	anon, err := svc.Get(context.Background(), id, auth.Anonymous)
	require.NoError(t, err)
	assert.Nil(t, anon.MyVote)
}

func TestGetHidesNonOpenTopics(t *testing.T) {
	store := memstore.New()
	id := store.SeedTopic(objects.Topic{Status: objects.TopicPreparing})
	_, err := newService(store, fixedNow).Get(context.Background(), id, auth.Anonymous)
	assert.Equal(t, xerr.ErrResourceNotFound, errs.CodeOf(err))
}

func TestRecordViewCooldown(t *testing.T) {
	store := memstore.New()
	id := store.SeedTopic(openTopic())
	svc := newService(store, fixedNow)
	ctx := context.Background()

	counted, err := svc.RecordView(ctx, id, "ip_1.1.1.1")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = svc.RecordView(ctx, id, "ip_1.1.1.1")
	require.NoError(t, err)
	assert.False(t, counted, "冷却期内不重复计数")

	counted, err = svc.RecordView(ctx, id, "user_3")
	require.NoError(t, err)
	assert.True(t, counted)

	svc.now = func() time.Time { return fixedNow.Add(25 * time.Hour) }
	counted, err = svc.RecordView(ctx, id, "ip_1.1.1.1")
	require.NoError(t, err)
	assert.True(t, counted)

	topic, _ := store.GetTopic(ctx, id)
	assert.Equal(t, int64(3), topic.ViewCount)
}

func TestRecordViewMissingTopicRollsBack(t *testing.T) {
	store := memstore.New()
	svc := newService(store, fixedNow)

	_, err := svc.RecordView(context.Background(), 404, "ip_x")
	assert.Equal(t, xerr.ErrResourceNotFound, errs.CodeOf(err))

	seen, err := store.HasViewSince(context.Background(), 404, "ip_x", fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, seen, "议题不存在时浏览日志也要回滚")
}

func TestViewerIdentifier(t *testing.T) {
	assert.Equal(t, "user_12", ViewerIdentifier(auth.Principal{UserID: 12}, "1.2.3.4"))
	assert.Equal(t, "ip_1.2.3.4", ViewerIdentifier(auth.Anonymous, "1.2.3.4"))
}

func TestCloseExpiredService(t *testing.T) {
	store := memstore.New()
	end := fixedNow.Add(-time.Minute)
	id := store.SeedTopic(objects.Topic{Status: objects.TopicOpen, VoteEndAt: &end})
	svc := newService(store, fixedNow)

	n, err := svc.CloseExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	l := NewLedger(store, store)
	l.now = func() time.Time { return fixedNow }
	_, err = l.CastVote(context.Background(), id, 1, objects.SideLeft)
	assert.Equal(t, xerr.ErrVotingClosed, errs.CodeOf(err))
}

func TestPopularRanking(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	// 票数 3，浏览 1 -> 4
	votes := store.SeedTopic(objects.Topic{DisplayName: "votes", Status: objects.TopicOpen, VoteCountLeft: 2, VoteCountRight: 1, ViewCount: 1})
	// 1 条有效评论 -> 10，隐藏的评论不计
	talked := store.SeedTopic(objects.Topic{DisplayName: "talked", Status: objects.TopicOpen})
	// 浏览 10 -> 10，与 talked 同分时 id 大的在前
	viewed := store.SeedTopic(objects.Topic{DisplayName: "viewed", Status: objects.TopicOpen, ViewCount: 10})
	store.SeedTopic(objects.Topic{DisplayName: "closed", Status: objects.TopicClosed, ViewCount: 1000})

	require.NoError(t, store.InsertComment(ctx, &objects.TopicComment{TopicID: talked, UserID: 1, Content: "a", Status: objects.StatusActive}))
	require.NoError(t, store.InsertComment(ctx, &objects.TopicComment{TopicID: talked, UserID: 2, Content: "b", Status: objects.StatusHidden}))

	svc := newService(store, fixedNow)
	all, err := svc.Popular(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3, "只统计开放议题")
	assert.Equal(t, []uint64{viewed, talked, votes}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	assert.Equal(t, int64(1), all[1].CommentCount)
	assert.Equal(t, int64(10), all[1].PopularityScore)
	assert.Equal(t, int64(3), all[2].TotalVotes)
	assert.Equal(t, int64(4), all[2].PopularityScore)

	top, err := svc.Popular(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestPopularEmptyAndStoreFailure(t *testing.T) {
	store := memstore.New()
	svc := newService(store, fixedNow)

	list, err := svc.Popular(context.Background(), RankingLimit)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	store.Fail("PopularTopics", errors.New("db down"))
	_, err = svc.Popular(context.Background(), RankingLimit)
	assert.Equal(t, xerr.ErrStoreUnavailable, errs.CodeOf(err))
}

func TestLatestLimit(t *testing.T) {
	store := memstore.New()
	var newest uint64
	for i := 0; i < RankingLimit+3; i++ {
		at := fixedNow.Add(time.Duration(i) * time.Minute)
		newest = store.SeedTopic(objects.Topic{Status: objects.TopicOpen, PublishedAt: &at})
	}

	list, err := newService(store, fixedNow).Latest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, RankingLimit)
	assert.Equal(t, newest, list[0].ID)
}
