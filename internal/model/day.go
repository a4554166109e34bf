package model

import "time"

// DateLayout catalog_entries.date 的格式
const DateLayout = "2006-01-02"

// DateKey 返回 t 在 loc 时区下的日期键
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// DayWindow 返回 t 所在自然日的 [本地零点, 次日零点)，结果为 UTC
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// ParseDateKey 解析日期键为 loc 时区下的零点
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, loc)
}
