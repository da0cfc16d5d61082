// Package keyword 汇总热门关键词：每个关键词的文章数、来源数和最新几篇代表文章。
package keyword

import (
	"context"
	"sort"

	"github.com/iceymoss/go-agora/pkg/db/objects"
	errs "github.com/iceymoss/go-agora/pkg/errors"
	"github.com/iceymoss/go-agora/pkg/favicon"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultKeywordLimit = 5
	DefaultSampleSize   = 3
)

// Article 带派生 favicon_url 的文章摘要，favicon_url 不落库
type Article struct {
	objects.HomeArticle
	FaviconURL *string `json:"favicon_url"`
}

// Aggregate 单个关键词的计算结果
type Aggregate struct {
	Keyword      string    `json:"keyword"`
	ArticleCount int64     `json:"article_count"`
	SourceCount  int64     `json:"source_count"`
	Articles     []Article `json:"articles"`
}

// Store 关键词与文章的只读查询。标题按子串匹配，大小写规则取决于库的排序规则。
type Store interface {
	LatestKeywords(ctx context.Context, limit int) ([]objects.TrendingKeyword, error)
	// CountMatches 标题包含 keyword 的文章数以及不同来源数
	CountMatches(ctx context.Context, keyword string) (articles int64, sources int64, err error)
	// LatestMatches 标题包含 keyword 的最新 limit 篇，按发布时间倒序
	LatestMatches(ctx context.Context, keyword string, limit int) ([]objects.HomeArticle, error)
}

type Config struct {
	KeywordLimit int
	SampleSize   int
	Favicons     favicon.Map
}

type Aggregator struct {
	store Store
	cfg   Config
}

func NewAggregator(store Store, cfg Config) *Aggregator {
	if cfg.KeywordLimit <= 0 {
		cfg.KeywordLimit = DefaultKeywordLimit
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	return &Aggregator{store: store, cfg: cfg}
}

// TrendingKeywords 关键词顺序与查询顺序一致（最新在前）。
// 任一关键词的子查询失败则整个调用失败，其余子查询随之取消。
func (a *Aggregator) TrendingKeywords(ctx context.Context) ([]Aggregate, error) {
	keywords, err := a.store.LatestKeywords(ctx, a.cfg.KeywordLimit)
	if err != nil {
		return nil, errs.Store(err)
	}
	if len(keywords) == 0 {
		return []Aggregate{}, nil
	}

	results := make([]Aggregate, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		i, kw := i, kw.Keyword
		g.Go(func() error {
			agg, err := a.aggregate(gctx, kw)
			if err != nil {
				return err
			}
			results[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Store(err)
	}
	return results, nil
}

func (a *Aggregator) aggregate(ctx context.Context, keyword string) (Aggregate, error) {
	var (
		articleCount, sourceCount int64
		sample                    []objects.HomeArticle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articleCount, sourceCount, err = a.store.CountMatches(gctx, keyword)
		return err
	})
	g.Go(func() error {
		var err error
		sample, err = a.store.LatestMatches(gctx, keyword, a.cfg.SampleSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return Aggregate{}, err
	}

	return Aggregate{
		Keyword:      keyword,
		ArticleCount: articleCount,
		SourceCount:  sourceCount,
		Articles:     a.enrich(sample),
	}, nil
}

func (a *Aggregator) enrich(rows []objects.HomeArticle) []Article {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PublishedAt.After(rows[j].PublishedAt)
	})
	if len(rows) > a.cfg.SampleSize {
		rows = rows[:a.cfg.SampleSize]
	}
	out := make([]Article, 0, len(rows))
	for _, row := range rows {
		out = append(out, Article{
			HomeArticle: row,
			FaviconURL:  a.cfg.Favicons.Lookup(row.SourceDomain),
		})
	}
	return out
}
