package extract

import (
	"strconv"
	"strings"
)

// ParseCount converts display counts like "1.2K", "3M", or "4,821" to an
// integer. Unparseable input counts as zero.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1_000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1_000_000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		mult = 1_000_000_000
		s = s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f * mult)
}
