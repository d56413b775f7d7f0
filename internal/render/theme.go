package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Theme defaults.
const (
	DefaultThemeDate  = "8/20"
	DefaultThemeColor = "#e8edf2/#252525"
)

// Beijing is the fixed UTC+8 zone the bot reasons in.
//
//nolint:gochecknoglobals // Immutable zone.
var Beijing = time.FixedZone("CST", 8*60*60)

// Theme picks card colours by hour of day.
type Theme struct {
	DayStart int
	DayEnd   int
	Light    string
	Dark     string
}

// DefaultTheme is the 08:00-20:00 light theme.
func DefaultTheme() Theme {
	return Theme{DayStart: 8, DayEnd: 20, Light: "#e8edf2", Dark: "#252525"}
}

// ParseTheme reads "start/end" hours and "light/dark" colours. Empty values
// keep the defaults.
func ParseTheme(date, color string) (Theme, error) {
	t := DefaultTheme()

	if date != "" {
		start, end, ok := strings.Cut(date, "/")
		if !ok {
			return t, fmt.Errorf("theme_date %q: want start/end", date)
		}
		s, err := parseHour(start)
		if err != nil {
			return t, fmt.Errorf("theme_date %q: %w", date, err)
		}
		e, err := parseHour(end)
		if err != nil {
			return t, fmt.Errorf("theme_date %q: %w", date, err)
		}
		t.DayStart, t.DayEnd = s, e
	}

	if color != "" {
		light, dark, ok := strings.Cut(color, "/")
		if !ok || light == "" || dark == "" {
			return t, fmt.Errorf("theme_color %q: want light/dark", color)
		}
		t.Light, t.Dark = strings.TrimSpace(light), strings.TrimSpace(dark)
	}

	return t, nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 24 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	return h, nil
}

// IsDay reports whether hour falls in [DayStart, DayEnd).
func (t Theme) IsDay(hour int) bool {
	return hour >= t.DayStart && hour < t.DayEnd
}

// Colors returns background and foreground for the given time.
func (t Theme) Colors(now time.Time) (background, foreground string) {
	if t.IsDay(now.In(Beijing).Hour()) {
		return t.Light, t.Dark
	}
	return t.Dark, t.Light
}
