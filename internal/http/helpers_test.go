package http

import (
	"math"
	"testing"
	"time"

	"gibrocash/internal/core"
)

func TestFormatKES(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "KES 0.00"},
		{50, "KES 0.50"},
		{123456, "KES 1,234.56"},
		{100000000, "KES 1,000,000.00"},
		{-15000, "-KES 150.00"},
	}
	for _, tc := range cases {
		if got := formatKES(tc.cents); got != tc.want {
			t.Fatalf("formatKES(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestFormatKESFloat(t *testing.T) {
	if got := formatKESFloat(400); got != "KES 400.00" {
		t.Fatalf("got %q", got)
	}
	if got := formatKESFloat(math.Inf(1)); got != "—" {
		t.Fatalf("non-finite should render as dash, got %q", got)
	}
	if got := formatKESFloat(math.NaN()); got != "—" {
		t.Fatalf("NaN should render as dash, got %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate(time.Time{}); got != "" {
		t.Fatalf("zero time should render empty, got %q", got)
	}
	ts := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if got := formatDate(ts); got != "05 Mar 2024" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  hello\x00world  "); got != "helloworld" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeInput("line1\nline2"); got != "line1\nline2" {
		t.Fatalf("newlines should survive, got %q", got)
	}
}

func TestParsePositiveInt(t *testing.T) {
	if got, err := parsePositiveInt("3"); err != nil || got != 3 {
		t.Fatalf("got (%d, %v)", got, err)
	}
	for _, bad := range []string{"", "0", "-1", "2.5", "abc"} {
		if _, err := parsePositiveInt(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestStatusBadgeClass(t *testing.T) {
	cases := map[core.AccountStatus]string{
		core.StatusActive:   "badge--active",
		core.StatusLow:      "badge--low",
		core.StatusDepleted: "badge--depleted",
		core.StatusClosed:   "badge--closed",
	}
	for st, want := range cases {
		if got := statusBadgeClass(st); got != want {
			t.Fatalf("%s: got %q", st, got)
		}
	}
}
