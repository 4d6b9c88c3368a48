package job

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/queuectl"
)

// LocalOffset is the fixed zone applied to run-at timestamps that carry
// no explicit zone (UTC+05:30).
var LocalOffset = time.FixedZone("IST", 5*3600+30*60)

// localLayouts are accepted for timestamps without a zone designator.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseRunAt parses an explicit run-at timestamp and returns it in UTC.
//
// A value ending in "Z" is UTC already. A value with an explicit numeric
// offset is honoured as written. Anything else is read in LocalOffset.
func ParseRunAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: run-at is empty", queuectl.ErrValidation)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return time.Time{}, fmt.Errorf("%w: invalid run-at %q", queuectl.ErrValidation, s)
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, LocalOffset); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid run-at %q", queuectl.ErrValidation, s)
}

// ParseMaxRetries parses a textual retry override.
func ParseMaxRetries(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: max_retries must be an integer, got %q", queuectl.ErrValidation, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: max_retries must not be negative, got %d", queuectl.ErrValidation, n)
	}
	return n, nil
}

// ResolveNextRunAt picks the first eligibility time from at most one of a
// delay or an explicit timestamp. With neither, the job is eligible now.
func ResolveNextRunAt(now time.Time, o Options) (time.Time, error) {
	hasDelay := o.Delay != nil
	hasRunAt := o.RunAt != "" || o.RunAtTime != nil

	switch {
	case hasDelay && hasRunAt:
		return time.Time{}, fmt.Errorf("%w: use either a delay or a run-at time, not both", queuectl.ErrValidation)
	case hasDelay:
		if *o.Delay <= 0 {
			return time.Time{}, fmt.Errorf("%w: delay must be > 0, got %s", queuectl.ErrValidation, *o.Delay)
		}
		return now.Add(*o.Delay).UTC(), nil
	case o.RunAtTime != nil:
		return o.RunAtTime.UTC(), nil
	case o.RunAt != "":
		return ParseRunAt(o.RunAt)
	default:
		return now.UTC(), nil
	}
}
