package favicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	m := Default()
	assert.Equal(t, 8, m.Len(), "内置映射应包含 8 个域名")
	assert.Equal(t, 1, m.Version())

	url := m.Lookup("yna.co.kr")
	require.NotNil(t, url)
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=yna.co.kr&sz=32", *url)

	assert.NotNil(t, m.Lookup("chosun.com"))
	assert.Nil(t, m.Lookup("www.yna.co.kr"), "域名按原样精确匹配")
	assert.Nil(t, m.Lookup("Chosun.com"))
	assert.Nil(t, m.Lookup("example.com"))
	assert.Nil(t, m.Lookup(""))
}

func TestMapIsImmutable(t *testing.T) {
	src := map[string]string{"a.com": "https://icons/a"}
	m := New(src)
	src["a.com"] = "changed"
	src["b.com"] = "https://icons/b"

	assert.Equal(t, "https://icons/a", *m.Lookup("a.com"))
	assert.Nil(t, m.Lookup("b.com"))

	// 返回的指针是副本
	*m.Lookup("a.com") = "mutated"
	assert.Equal(t, "https://icons/a", *m.Lookup("a.com"))
}

func TestWithOverrides(t *testing.T) {
	base := Default()
	m := base.WithOverrides(map[string]string{"example.com": "https://icons/example"})
	assert.Equal(t, 9, m.Len())
	assert.Equal(t, 8, base.Len(), "原映射不受影响")
}

func TestZeroMap(t *testing.T) {
	var m Map
	assert.Nil(t, m.Lookup("yna.co.kr"))
}

func TestParseError(t *testing.T) {
	_, err := Parse([]byte("domains: [not a map"))
	assert.Error(t, err)
}
