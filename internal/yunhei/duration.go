package yunhei

import (
	"regexp"
	"strconv"
	"time"
)

var muteUnitPattern = regexp.MustCompile(`(\d+)\s*(天|小时|时|分钟|分)`)

// MaxMuteDuration is the longest mute OneBot implementations accept.
const MaxMuteDuration = 30 * 24 * time.Hour

// ParseMuteDuration sums every "<n><unit>" pair in s, where unit is 天, 小时
// (or 时) and 分钟 (or 分). Text between pairs is ignored; no pair gives 0.
// Totals above MaxMuteDuration also give 0.
func ParseMuteDuration(s string) time.Duration {
	var total time.Duration
	for _, m := range muteUnitPattern.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0
		}

		unit := time.Minute
		switch m[2] {
		case "天":
			unit = 24 * time.Hour
		case "小时", "时":
			unit = time.Hour
		}
		if n > int64((MaxMuteDuration-total)/unit) {
			return 0
		}
		total += time.Duration(n) * unit
	}
	return total
}

// dayRecord stamps desc with the date, e.g. "刷屏（2024-05-01）".
func dayRecord(desc string, now time.Time) string {
	return desc + "（" + now.Format(time.DateOnly) + "）"
}
