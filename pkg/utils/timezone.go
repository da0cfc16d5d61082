package utils

import (
	"time"
)

var (
	// ServerLocation 服务器业务时区，访客按此时区的自然日去重
	ServerLocation = time.Local
)

// LoadLocation 加载时区，失败时回落到固定偏移（例如 Asia/Seoul => UTC+9）
func LoadLocation(name string, fallbackOffsetHours int) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, fallbackOffsetHours*60*60)
	}
	return loc
}

// SetServerLocation 设置全局业务时区
func SetServerLocation(loc *time.Location) {
	if loc != nil {
		ServerLocation = loc
	}
}

// NowIn 获取指定时区的当前时间
func NowIn(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// DayBounds 返回 t 所在自然日的 [开始, 次日开始)
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
