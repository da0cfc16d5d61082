// Package favicon 维护来源域名到 favicon 地址的静态映射。
// 映射随代码版本发布（favicons.yaml），运行期不可修改。
package favicon

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed favicons.yaml
var defaultTable []byte

type table struct {
	Version int               `yaml:"version"`
	Domains map[string]string `yaml:"domains"`
}

// Map 不可变的 域名 -> favicon URL 映射，零值可用（全部未命中）
type Map struct {
	version int
	domains map[string]string
}

// New 复制传入的映射，之后对 src 的修改不会影响 Map
func New(src map[string]string) Map {
	m := Map{domains: make(map[string]string, len(src))}
	for domain, url := range src {
		m.domains[domain] = url
	}
	return m
}

// Parse 解析 yaml 格式的映射表
func Parse(raw []byte) (Map, error) {
	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Map{}, fmt.Errorf("parse favicon table: %w", err)
	}
	m := New(t.Domains)
	m.version = t.Version
	return m, nil
}

// Default 内置映射表
func Default() Map {
	m, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return m
}

// WithOverrides 在当前映射基础上叠加配置项，返回新的 Map
func (m Map) WithOverrides(overrides map[string]string) Map {
	merged := make(map[string]string, len(m.domains)+len(overrides))
	for k, v := range m.domains {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	out := New(merged)
	out.version = m.version
	return out
}

// Lookup 按 source_domain 原样精确匹配，未收录的域名返回 nil
func (m Map) Lookup(domain string) *string {
	url, ok := m.domains[domain]
	if !ok {
		return nil
	}
	return &url
}

// Len 收录的域名数
func (m Map) Len() int { return len(m.domains) }

func (m Map) Version() int { return m.version }
