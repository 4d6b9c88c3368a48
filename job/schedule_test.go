package job_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

func TestParseRunAt(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-11-09T10:30:00Z", time.Date(2025, 11, 9, 10, 30, 0, 0, time.UTC)},
		{"2025-11-09T10:30:00.250Z", time.Date(2025, 11, 9, 10, 30, 0, 250_000_000, time.UTC)},
		// No zone: read as UTC+05:30.
		{"2025-11-09T10:30:00", time.Date(2025, 11, 9, 5, 0, 0, 0, time.UTC)},
		{"2025-11-09 10:30", time.Date(2025, 11, 9, 5, 0, 0, 0, time.UTC)},
		{"2025-11-09", time.Date(2025, 11, 8, 18, 30, 0, 0, time.UTC)},
		// Explicit offsets are honoured.
		{"2025-11-09T10:30:00+01:00", time.Date(2025, 11, 9, 9, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := job.ParseRunAt(tt.input)
			if err != nil {
				t.Fatalf("ParseRunAt(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseRunAt(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseRunAt(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestParseRunAt_ExplicitOffsetIsNotLocal(t *testing.T) {
	tests := []struct {
		input     string
		want      time.Time
		readLocal time.Time
	}{
		{
			input:     "2025-11-09T10:00:00+02:00",
			want:      time.Date(2025, 11, 9, 8, 0, 0, 0, time.UTC),
			readLocal: time.Date(2025, 11, 9, 4, 30, 0, 0, time.UTC),
		},
		{
			input:     "2025-11-09T10:00:00+00:00",
			want:      time.Date(2025, 11, 9, 10, 0, 0, 0, time.UTC),
			readLocal: time.Date(2025, 11, 9, 4, 30, 0, 0, time.UTC),
		},
		{
			input:     "2025-11-09T10:00:00-05:00",
			want:      time.Date(2025, 11, 9, 15, 0, 0, 0, time.UTC),
			readLocal: time.Date(2025, 11, 9, 4, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := job.ParseRunAt(tt.input)
			if err != nil {
				t.Fatalf("ParseRunAt(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseRunAt(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Equal(tt.readLocal) {
				t.Errorf("ParseRunAt(%q) ignored the offset and read the wall clock as UTC+05:30", tt.input)
			}
		})
	}
}

func TestParseRunAt_Invalid(t *testing.T) {
	for _, s := range []string{"", "tomorrow", "2025-13-40T10:00:00", "10:30Z"} {
		if _, err := job.ParseRunAt(s); !errors.Is(err, queuectl.ErrValidation) {
			t.Errorf("ParseRunAt(%q) err = %v, want ErrValidation", s, err)
		}
	}
}

func TestParseMaxRetries(t *testing.T) {
	if n, err := job.ParseMaxRetries(" 4 "); err != nil || n != 4 {
		t.Errorf("ParseMaxRetries(\" 4 \") = %d, %v", n, err)
	}
	for _, s := range []string{"", "x", "1.5", "-2"} {
		if _, err := job.ParseMaxRetries(s); !errors.Is(err, queuectl.ErrValidation) {
			t.Errorf("ParseMaxRetries(%q) err = %v, want ErrValidation", s, err)
		}
	}
}

func TestResolveNextRunAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	delay := 20 * time.Second
	at := now.Add(time.Hour)

	tests := []struct {
		name string
		opts job.Options
		want time.Time
	}{
		{"neither", job.Options{}, now},
		{"delay", job.Options{Delay: &delay}, now.Add(delay)},
		{"run-at time", job.Options{RunAtTime: &at}, at},
		{"run-at string", job.Options{RunAt: "2025-01-01T05:30:00"}, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := job.ResolveNextRunAt(now, tt.opts)
			if err != nil {
				t.Fatalf("ResolveNextRunAt: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
