package backoff_test

import (
	"math"
	"testing"
	"time"

	"github.com/xraph/queuectl/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestPower_Base2(t *testing.T) {
	p := backoff.NewPower(2, 0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 1024 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPower_Base3(t *testing.T) {
	p := backoff.NewPower(3, 0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 3 * time.Second},
		{2, 9 * time.Second},
		{3, 27 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPower_BaseOneIsFlat(t *testing.T) {
	p := backoff.NewPower(1, 0)
	for attempt := 1; attempt <= 5; attempt++ {
		if got := p.Delay(attempt); got != time.Second {
			t.Errorf("Delay(%d) = %v, want 1s", attempt, got)
		}
	}
	if got := backoff.NewPower(0, 0).Delay(3); got != time.Second {
		t.Errorf("base 0 Delay(3) = %v, want 1s", got)
	}
}

func TestPower_CapsAtMax(t *testing.T) {
	p := backoff.NewPower(2, 10*time.Second)
	if got := p.Delay(3); got != 8*time.Second {
		t.Errorf("Delay(3) = %v, want 8s", got)
	}
	if got := p.Delay(4); got != 10*time.Second {
		t.Errorf("Delay(4) = %v, want 10s (capped)", got)
	}
}

func TestPower_Saturates(t *testing.T) {
	p := backoff.NewPower(10, 0)
	if got := p.Delay(100); got != time.Duration(math.MaxInt64) {
		t.Errorf("Delay(100) = %v, want saturation at MaxInt64", got)
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := backoff.DefaultStrategy()
	if got := s.Delay(1); got != 2*time.Second {
		t.Errorf("Delay(1) = %v, want 2s", got)
	}
}
