package youtube

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseISODuration parses the ISO-8601 duration subset the official API emits
// for video lengths: "PT#H#M#S" with any component optional, e.g. "PT4M13S",
// "PT1H2M", "PT45S". Date components (years, days) never occur for videos and
// are rejected.
func ParseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	rest, ok := strings.CutPrefix(s, "PT")
	if !ok {
		return 0, fmt.Errorf("duration %q: missing PT prefix", s)
	}
	if rest == "" {
		return 0, fmt.Errorf("duration %q: no components", s)
	}

	var total time.Duration
	num := ""
	for _, r := range rest {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		if num == "" {
			return 0, fmt.Errorf("duration %q: designator %q without value", s, r)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		switch r {
		case 'H':
			total += time.Duration(n) * time.Hour
		case 'M':
			total += time.Duration(n) * time.Minute
		case 'S':
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("duration %q: unknown designator %q", s, r)
		}
		num = ""
	}
	if num != "" {
		return 0, fmt.Errorf("duration %q: trailing value without designator", s)
	}
	return total, nil
}
