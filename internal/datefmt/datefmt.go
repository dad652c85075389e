package datefmt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalLayout 所有来源统一输出的时间格式：24 小时制、补零，字典序即时间序
const CanonicalLayout = "2006-01-02 15:04"

// MalformedDateError 日期片段与来源约定的格式不匹配
type MalformedDateError struct {
	Raw    string
	Layout string
	Err    error
}

func (e *MalformedDateError) Error() string {
	if e.Layout == "" {
		return fmt.Sprintf("malformed date %q", e.Raw)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed date %q (layout %q): %v", e.Raw, e.Layout, e.Err)
	}
	return fmt.Sprintf("malformed date %q (layout %q)", e.Raw, e.Layout)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }

// ParseAbsolute 按调用方给出的 layout 解析 raw，并输出规范格式
func ParseAbsolute(raw, layout string) (string, error) {
	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return "", &MalformedDateError{Raw: raw, Layout: layout, Err: err}
	}
	return t.Format(CanonicalLayout), nil
}

// ResolveMeridiem 对已规范化的时间补上页面单独展示的 AM/PM 后缀。
// 仅当 suffix 为 PM 且小时 < 12 时加 12 小时；12 AM 不做特殊处理（与论坛现有行为一致）。
func ResolveMeridiem(canonical, suffix string) (string, error) {
	t, err := time.Parse(CanonicalLayout, canonical)
	if err != nil {
		return "", &MalformedDateError{Raw: canonical, Layout: CanonicalLayout, Err: err}
	}
	if strings.TrimSpace(suffix) == "PM" && t.Hour() < 12 {
		t = t.Add(12 * time.Hour)
	}
	return t.Format(CanonicalLayout), nil
}

// 单位允许缩写加点，例如 "3 hr. ago"
var relativeRe = regexp.MustCompile(`^(\d+)\s+([A-Za-z]+)\.?\s+ago$`)

// ResolveRelative 解析 "N units ago"，相对 ref 回推并截断到分钟。
// 无法识别的单位视为“刚刚”，直接返回 ref。
func ResolveRelative(raw string, ref time.Time) (string, error) {
	m := relativeRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", &MalformedDateError{Raw: raw}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", &MalformedDateError{Raw: raw, Err: err}
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "minute", "minutes", "min", "mins":
		unit = time.Minute
	case "hour", "hours", "hr", "hrs":
		unit = time.Hour
	case "day", "days":
		unit = 24 * time.Hour
	}
	if unit != 0 && int64(n) > math.MaxInt64/int64(unit) {
		return "", &MalformedDateError{Raw: raw, Err: fmt.Errorf("offset of %d %s overflows", n, m[2])}
	}
	t := ref.Add(-time.Duration(n) * unit)
	return t.Truncate(time.Minute).Format(CanonicalLayout), nil
}

// ResolveDayAlias 将论坛本地化的 "Today" / "Yesterday" 替换为 ref 所在日期
func ResolveDayAlias(raw string, ref time.Time, dateLayout string) string {
	s := strings.TrimSpace(raw)
	for alias, days := range map[string]int{"Today": 0, "Yesterday": 1} {
		if strings.HasPrefix(s, alias) {
			return ref.AddDate(0, 0, -days).Format(dateLayout) + strings.TrimPrefix(s, alias)
		}
	}
	return s
}

// SplitSuffix 把 "DATE TIME SUFFIX" 拆成前两段与最后一段；不足三段时 suffix 为空
func SplitSuffix(raw string) (dateTime, suffix string) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return strings.Join(fields, " "), ""
	}
	dateTime = strings.Join(fields[:2], " ")
	if len(fields) > 2 {
		suffix = fields[len(fields)-1]
	}
	return dateTime, suffix
}
