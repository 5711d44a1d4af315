package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "generic error",
			err:      errors.New("something broke"),
			expected: ExitCodeError,
		},
		{
			name:     "auth required",
			err:      errAuthRequired,
			expected: ExitCodeAuthRequired,
		},
		{
			name:     "wrapped auth required",
			err:      fmt.Errorf("status check: %w", errAuthRequired),
			expected: ExitCodeAuthRequired,
		},
		{
			name:     "auth failed",
			err:      &authFailedError{err: errors.New("provider said no")},
			expected: ExitCodeAuthFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := getExitCode(tc.err); got != tc.expected {
				t.Errorf("getExitCode() = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestAuthFailedError_Unwrap(t *testing.T) {
	inner := errors.New("callback timed out")
	err := &authFailedError{err: inner}

	if !errors.Is(err, inner) {
		t.Error("authFailedError should unwrap to the inner error")
	}
	if !strings.Contains(err.Error(), "callback timed out") {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3-test")

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.Run(cmd, nil)

	if !strings.Contains(out.String(), "1.2.3-test") {
		t.Errorf("expected version in output, got: %s", out.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{-time.Minute, "expired"},
		{30 * time.Second, "< 1 minute"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}

	for _, tc := range tests {
		if got := formatDuration(tc.d); got != tc.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.expected)
		}
	}
}
