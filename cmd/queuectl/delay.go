package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/queuectl"
)

var delayPattern = regexp.MustCompile(`(?i)^\s*(?:(\d+)\s*d)?\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*(?:(\d+)\s*s)?\s*$`)

var delayUnits = [...]time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}

// parseDelay parses delays such as "20s", "5m", "1h30m" or "2d3h".
// Units must appear in d, h, m, s order. A zero total is rejected.
func parseDelay(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("%w: delay is empty", queuectl.ErrValidation)
	}
	m := delayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: invalid delay format %q", queuectl.ErrValidation, s)
	}

	var total time.Duration
	for i, unit := range delayUnits {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil || n > int64(1<<60)/int64(unit) {
			return 0, fmt.Errorf("%w: delay %q is out of range", queuectl.ErrValidation, s)
		}
		total += time.Duration(n) * unit
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: delay must be > 0 seconds", queuectl.ErrValidation)
	}
	return total, nil
}
