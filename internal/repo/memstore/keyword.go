package memstore

import (
	"context"
	"strings"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

func (s *Store) SeedKeyword(k objects.TrendingKeyword) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == 0 {
		k.ID = s.data.nextID()
	}
	s.data.keywords = append(s.data.keywords, k)
}

func (s *Store) SeedArticle(a objects.HomeArticle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.data.nextID()
	}
	s.data.articles = append(s.data.articles, a)
}

func (s *Store) LatestKeywords(ctx context.Context, limit int) ([]objects.TrendingKeyword, error) {
	var out []objects.TrendingKeyword
	err := s.read(ctx, "LatestKeywords", func(d *state) error {
		out = append(out, d.keywords...)
		return nil
	})
	sortStable(out, func(a, b objects.TrendingKeyword) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// 与 MySQL 默认排序规则一致，按不区分大小写的子串匹配
func titleMatches(title, keyword string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(keyword))
}

func (s *Store) CountMatches(ctx context.Context, keyword string) (int64, int64, error) {
	var articles int64
	sources := map[string]struct{}{}
	err := s.read(ctx, "CountMatches", func(d *state) error {
		for _, a := range d.articles {
			if titleMatches(a.Title, keyword) {
				articles++
				sources[a.Source] = struct{}{}
			}
		}
		return nil
	})
	return articles, int64(len(sources)), err
}

func (s *Store) LatestMatches(ctx context.Context, keyword string, limit int) ([]objects.HomeArticle, error) {
	var out []objects.HomeArticle
	err := s.read(ctx, "LatestMatches", func(d *state) error {
		for _, a := range d.articles {
			if titleMatches(a.Title, keyword) {
				out = append(out, a)
			}
		}
		return nil
	})
	sortStable(out, func(a, b objects.HomeArticle) bool { return a.PublishedAt.After(b.PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
