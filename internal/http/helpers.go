package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"gibrocash/internal/core"
)

// formatKES formats cents as a shilling currency string with thousands
// grouping (e.g., "KES 1,234.56").
func formatKES(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	rem := cents % 100
	s := groupThousands(strconv.FormatInt(whole, 10)) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-KES " + s
	}
	return "KES " + s
}

// formatKESFloat renders a derived float amount. Non-finite values,
// produced when a unit price is back-computed from a zero quantity,
// render as a dash.
func formatKESFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	return formatKES(int64(math.Round(v * 100)))
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// formatDate renders a timestamp for listings; zero times render empty.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}

// formatPercent renders an unclamped utilization label with one decimal.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"kes":      formatKES,
		"kesFloat": formatKESFloat,
		"date":     formatDate,
		"percent":  formatPercent,
	}
}

// statusBadgeClass maps an account status to its CSS class suffix.
func statusBadgeClass(st core.AccountStatus) string {
	switch st {
	case core.StatusClosed:
		return "badge--closed"
	case core.StatusDepleted:
		return "badge--depleted"
	case core.StatusLow:
		return "badge--low"
	}
	return "badge--active"
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
