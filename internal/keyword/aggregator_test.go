package keyword

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/favicon"
	"github.com/iceymoss/go-agora/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore 按标题子串匹配，与 SQL 的 LIKE '%kw%' 语义一致（区分大小写）
type fakeStore struct {
	keywords []objects.TrendingKeyword
	articles []objects.HomeArticle

	calls    atomic.Int64
	failOn   string
	mu       sync.Mutex
	inflight int
	maxPar   int
}

func (f *fakeStore) LatestKeywords(ctx context.Context, limit int) ([]objects.TrendingKeyword, error) {
	f.calls.Add(1)
	if len(f.keywords) > limit {
		return f.keywords[:limit], nil
	}
	return f.keywords, nil
}

func (f *fakeStore) enter() func() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxPar {
		f.maxPar = f.inflight
	}
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}
}

func (f *fakeStore) match(kw string) []objects.HomeArticle {
	var out []objects.HomeArticle
	for _, a := range f.articles {
		if strings.Contains(a.Title, kw) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeStore) CountMatches(ctx context.Context, kw string) (int64, int64, error) {
	f.calls.Add(1)
	defer f.enter()()
	if kw == f.failOn {
		return 0, 0, errors.New("connection reset")
	}
	rows := f.match(kw)
	sources := map[string]bool{}
	for _, r := range rows {
		sources[r.Source] = true
	}
	return int64(len(rows)), int64(len(sources)), nil
}

func (f *fakeStore) LatestMatches(ctx context.Context, kw string, limit int) ([]objects.HomeArticle, error) {
	f.calls.Add(1)
	defer f.enter()()
	rows := f.match(kw)
	// 故意返回升序，验证聚合器保证倒序
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func at(day int) time.Time {
	return time.Date(2026, 4, day, 9, 0, 0, 0, time.UTC)
}

func TestNoKeywordsMakesSingleStoreCall(t *testing.T) {
	store := &fakeStore{}
	agg := NewAggregator(store, Config{Favicons: favicon.Default()})

	got, err := agg.TrendingKeywords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got, "空结果应返回空切片而非 nil")
	assert.Empty(t, got)
	assert.Equal(t, int64(1), store.calls.Load(), "除了关键词查询外不应有其他查询")
}

func TestAggregatesCountsAndSample(t *testing.T) {
	store := &fakeStore{
		keywords: []objects.TrendingKeyword{{Keyword: "선거"}, {Keyword: "US"}},
		articles: []objects.HomeArticle{
			{ID: 1, Title: "선거 결과 1", Source: "연합뉴스", SourceDomain: "yna.co.kr", PublishedAt: at(1)},
			{ID: 2, Title: "선거 결과 2", Source: "한겨레", SourceDomain: "hani.co.kr", PublishedAt: at(2)},
			{ID: 3, Title: "선거 결과 3", Source: "연합뉴스", SourceDomain: "yna.co.kr", PublishedAt: at(3)},
			{ID: 4, Title: "선거 결과 4", Source: "뉴시스", SourceDomain: "unknown.example", PublishedAt: at(4)},
			{ID: 5, Title: "BUSINESS daily", Source: "X", SourceDomain: "x.example", PublishedAt: at(5)},
		},
	}
	agg := NewAggregator(store, Config{Favicons: favicon.Default()})

	got, err := agg.TrendingKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// 关键词顺序保持不变
	assert.Equal(t, "선거", got[0].Keyword)
	assert.Equal(t, "US", got[1].Keyword)

	first := got[0]
	assert.Equal(t, int64(4), first.ArticleCount)
	assert.Equal(t, int64(3), first.SourceCount)
	require.Len(t, first.Articles, 3, "代表文章最多 3 篇")
	assert.Equal(t, []uint64{4, 3, 2}, []uint64{first.Articles[0].ID, first.Articles[1].ID, first.Articles[2].ID})
	assert.Nil(t, first.Articles[0].FaviconURL, "未收录域名 favicon 为 null")
	require.NotNil(t, first.Articles[1].FaviconURL)
	assert.Contains(t, *first.Articles[1].FaviconURL, "yna.co.kr")

	// 子串匹配是朴素的：US 命中 BUSINESS
	assert.Equal(t, int64(1), got[1].ArticleCount)
}

func TestUnmappedDomainYieldsNullFavicons(t *testing.T) {
	store := &fakeStore{
		keywords: []objects.TrendingKeyword{{Keyword: "rain"}},
		articles: []objects.HomeArticle{
			{ID: 1, Title: "rain a", Source: "S", SourceDomain: "weather.example", PublishedAt: at(1)},
			{ID: 2, Title: "rain b", Source: "S", SourceDomain: "weather.example", PublishedAt: at(2)},
		},
	}
	agg := NewAggregator(store, Config{Favicons: favicon.Default()})
	got, err := agg.TrendingKeywords(context.Background())
	require.NoError(t, err)
	for _, a := range got[0].Articles {
		assert.Nil(t, a.FaviconURL)
	}
	assert.Equal(t, int64(1), got[0].SourceCount)
}

func TestSubQueryFailureFailsWholeCall(t *testing.T) {
	store := &fakeStore{
		keywords: []objects.TrendingKeyword{{Keyword: "a"}, {Keyword: "b"}, {Keyword: "c"}},
		failOn:   "b",
	}
	agg := NewAggregator(store, Config{})
	got, err := agg.TrendingKeywords(context.Background())
	require.Error(t, err)
	assert.Nil(t, got, "不返回部分结果")
	assert.Equal(t, xerr.ErrStoreUnavailable, errs.CodeOf(err))
}

func TestKeywordQueriesRunConcurrently(t *testing.T) {
	store := &fakeStore{keywords: []objects.TrendingKeyword{
		{Keyword: "a"}, {Keyword: "b"}, {Keyword: "c"}, {Keyword: "d"}, {Keyword: "e"}, {Keyword: "f"},
	}}
	agg := NewAggregator(store, Config{})
	got, err := agg.TrendingKeywords(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, DefaultKeywordLimit, "最多返回 5 个关键词")
	assert.Greater(t, store.maxPar, 1, "子查询应并发执行")
}
