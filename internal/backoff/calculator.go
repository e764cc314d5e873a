// Package backoff centralizes retry delay arithmetic shared by the transport.
package backoff

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Delay computes the exponential backoff delay for the given attempt:
// base * multiplier^attempt, capped at max. The result is deterministic so
// callers can reason about worst-case retry latency.
func Delay(attempt int, base, max time.Duration, multiplier float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// Prevent overflow by limiting attempt
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(base) * Pow(multiplier, attempt))
	if d < 0 || (max > 0 && d > max) {
		d = max
	}
	return d
}

// Pow is an integer-exponent power helper avoiding a math import on hot paths.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

// ParseRetryAfter parses a Retry-After header value. It supports both the
// delay-seconds format and the HTTP-date format. A zero duration means the
// header was absent or unusable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
