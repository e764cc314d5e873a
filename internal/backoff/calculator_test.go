package backoff

import (
	"net/http"
	"testing"
	"time"
)

func TestDelayDoublesPerAttempt(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}

	for _, tc := range cases {
		got := Delay(tc.attempt, time.Second, 30*time.Second, 2.0)
		if got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelayCappedAtMax(t *testing.T) {
	got := Delay(10, time.Second, 30*time.Second, 2.0)
	if got != 30*time.Second {
		t.Errorf("Delay(10) = %v, want capped 30s", got)
	}
}

func TestDelayNegativeAttemptClamped(t *testing.T) {
	got := Delay(-1, time.Second, 30*time.Second, 2.0)
	if got != time.Second {
		t.Errorf("Delay(-1) = %v, want base delay", got)
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	if got := ParseRetryAfter("2"); got != 2*time.Second {
		t.Errorf("ParseRetryAfter(2) = %v", got)
	}
	if got := ParseRetryAfter(" 10 "); got != 10*time.Second {
		t.Errorf("ParseRetryAfter(10 with spaces) = %v", got)
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	got := ParseRetryAfter(future)
	if got <= 0 || got > 31*time.Second {
		t.Errorf("ParseRetryAfter(date) = %v, want about 30s", got)
	}
}

func TestParseRetryAfterUnusable(t *testing.T) {
	for _, value := range []string{"", "garbage", "-5", "0"} {
		if got := ParseRetryAfter(value); got != 0 {
			t.Errorf("ParseRetryAfter(%q) = %v, want 0", value, got)
		}
	}
}

func TestParseRetryAfterCappedAtOneHour(t *testing.T) {
	if got := ParseRetryAfter("7200"); got != time.Hour {
		t.Errorf("ParseRetryAfter(7200) = %v, want capped 1h", got)
	}
}
