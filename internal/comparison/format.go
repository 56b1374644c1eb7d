package comparison

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatUSD renders v as US dollars with thousands separators and two decimals,
// e.g. "$1,234.56" or "-$3.10".
func FormatUSD(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatDuration renders a non-negative number of seconds as "45s", "12m 5s" or "1h 2m".
// Negative input is rendered by its magnitude.
func FormatDuration(seconds float64) string {
	total := int64(math.Round(math.Abs(seconds)))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatDurationDiff renders a signed duration; negative values get a leading "-".
func FormatDurationDiff(seconds float64) string {
	if seconds < 0 && math.Round(-seconds) > 0 {
		return "-" + FormatDuration(seconds)
	}
	return FormatDuration(seconds)
}
