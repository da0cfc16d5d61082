package sensitive

import (
	"regexp"

	"github.com/importcjj/sensitive"
)

// DefaultMask 默认替换字符
const DefaultMask = '*'

// noisePattern 与 Filter 去噪使用同一组字符：词中间夹杂这些字符时仍视为命中
const noisePattern = `[\|\s&%$@*]`

var noise = regexp.MustCompile(noisePattern)

// Word 敏感词过滤器，nil 值可安全使用（不做任何替换）
type Word struct {
	Filter *sensitive.Filter
	mask   rune
}

// NewWord 从词库文件加载，dictFile 为空时仅使用 extra 中的词
func NewWord(dictFile string, extra ...string) (*Word, error) {
	filter := sensitive.New()
	filter.UpdateNoisePattern(noisePattern + "+")
	if dictFile != "" {
		if err := filter.LoadWordDict(dictFile); err != nil {
			return nil, err
		}
	}
	if len(extra) > 0 {
		filter.AddWord(extra...)
	}
	return &Word{Filter: filter, mask: DefaultMask}, nil
}

// Validate 返回是否通过以及命中的第一个敏感词（忽略噪音字符）
func (w *Word) Validate(content string) (bool, string) {
	if w == nil || w.Filter == nil {
		return true, ""
	}
	return w.Filter.Validate(content)
}

// Replace 使用 replChar 替换命中的敏感词。
// 先在去掉噪音字符后的文本上查找命中词，再映射回原文位置，
// 从命中词首字符到末字符之间（包括夹杂的噪音字符）全部替换，其余部分保留原文格式。
func (w *Word) Replace(content string, replChar rune) string {
	if w == nil || w.Filter == nil {
		return content
	}
	runes := []rune(content)
	// clean 为去噪后的字符，pos[i] 是 clean[i] 在原文中的下标
	clean := make([]rune, 0, len(runes))
	pos := make([]int, 0, len(runes))
	for i, r := range runes {
		if noise.MatchString(string(r)) {
			continue
		}
		clean = append(clean, r)
		pos = append(pos, i)
	}

	masked := false
	for _, hit := range w.Filter.FindAll(string(clean)) {
		word := []rune(hit)
		if len(word) == 0 {
			continue
		}
		for start := indexRunes(clean, word, 0); start >= 0; start = indexRunes(clean, word, start+1) {
			from, to := pos[start], pos[start+len(word)-1]
			for i := from; i <= to; i++ {
				runes[i] = replChar
			}
			masked = true
		}
	}
	if !masked {
		return content
	}
	return string(runes)
}

// Mask 使用默认字符替换
func (w *Word) Mask(content string) string {
	if w == nil {
		return content
	}
	if ok, _ := w.Validate(content); ok {
		return content
	}
	return w.Replace(content, w.mask)
}

func indexRunes(s, sub []rune, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		if string(s[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}
