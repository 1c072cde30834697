package backoff

import (
	"testing"
	"time"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		cap     time.Duration
		attempt int
		want    time.Duration
	}{
		{"attempt zero", time.Second, 2 * time.Minute, 0, time.Second},
		{"attempt one", time.Second, 2 * time.Minute, 1, 2 * time.Second},
		{"attempt three", time.Second, 2 * time.Minute, 3, 8 * time.Second},
		{"clamped to cap", time.Second, 2 * time.Minute, 10, 2 * time.Minute},
		{"negative attempt", time.Second, 2 * time.Minute, -5, time.Second},
		{"zero base", 0, 2 * time.Minute, 3, 0},
		{"huge attempt does not overflow", time.Second, 2 * time.Minute, 100, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Exponential(tt.base, tt.cap, tt.attempt)
			if got != tt.want {
				t.Errorf("Exponential(%v, %v, %d) = %v, want %v", tt.base, tt.cap, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExponential_NoCap(t *testing.T) {
	got := Exponential(time.Second, 0, 4)
	if got != 16*time.Second {
		t.Errorf("Exponential with zero cap = %v, want 16s", got)
	}
}

func TestJittered_Range(t *testing.T) {
	delay := 10 * time.Second
	for i := 0; i < 100; i++ {
		got := Jittered(delay)
		if got < delay/2 || got >= delay {
			t.Fatalf("Jittered(%v) = %v, want in [%v, %v)", delay, got, delay/2, delay)
		}
	}
}

func TestJittered_Zero(t *testing.T) {
	if got := Jittered(0); got != 0 {
		t.Errorf("Jittered(0) = %v, want 0", got)
	}
	if got := Jittered(-time.Second); got != 0 {
		t.Errorf("Jittered(-1s) = %v, want 0", got)
	}
}

func TestNext_WithinCap(t *testing.T) {
	base := time.Second
	cap := 30 * time.Second
	for attempt := 0; attempt < 20; attempt++ {
		got := Next(base, cap, attempt)
		if got < 0 || got >= cap {
			t.Fatalf("Next(attempt=%d) = %v, want in [0, %v)", attempt, got, cap)
		}
	}
}
