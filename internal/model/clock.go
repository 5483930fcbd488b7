package model

import (
	"fmt"
	"strings"
	"time"
)

// 日期与时刻在库中统一以字符串存储：
//   - 日期 yyyy-MM-dd，年月 yyyy-MM
//   - 时刻 HH:MM:SS（当天内，不跨日）
const (
	DateLayout      = "2006-01-02"
	YearMonthLayout = "2006-01"
	ClockLayout     = "15:04:05"
)

// ParseClock 解析 HH:MM 或 HH:MM:SS，返回当天秒数
func ParseClock(s string) (int, error) {
	layout := ClockLayout
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("时刻格式无效 %q", s)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

// FormatClock 将当天秒数格式化为 HH:MM:SS
func FormatClock(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
}

// NormalizeClock 将 HH:MM / HH:MM:SS 统一为 HH:MM:SS
func NormalizeClock(s string) (string, error) {
	sec, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(sec), nil
}

// ParseDate 解析 yyyy-MM-dd
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 %q（应为 yyyy-MM-dd）", s)
	}
	return t, nil
}

// CompactDate yyyy-MM-dd → yyyyMMdd（门禁事件的日期格式）
func CompactDate(date string) string { return strings.ReplaceAll(date, "-", "") }

// ExpandDate yyyyMMdd → yyyy-MM-dd
func ExpandDate(compact string) string {
	if len(compact) != 8 {
		return compact
	}
	return compact[:4] + "-" + compact[4:6] + "-" + compact[6:]
}

// ExpandEventTime HHmmss → HH:MM:SS
func ExpandEventTime(compact string) string {
	if len(compact) != 6 {
		return compact
	}
	return compact[:2] + ":" + compact[2:4] + ":" + compact[4:]
}
