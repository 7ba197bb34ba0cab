package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered wherever a metric value is missing.
const Placeholder = "-"

// displayLocale is the grouping convention for every figure on the portal.
var displayLocale = language.MustParse("en-IN")

// IST is the zone report timestamps are displayed in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// FormatNumber renders v as an en-IN grouped numeral with up to three
// fraction digits. Missing, NaN, infinite and non-numeric input all
// render as Placeholder.
func FormatNumber(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return Placeholder
	}
	p := message.NewPrinter(displayLocale)
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// FormatRupees formats v with a rupee prefix, e.g. "₹210".
func FormatRupees(v any) string {
	s := FormatNumber(v)
	if s == Placeholder {
		return s
	}
	return "₹" + s
}

// FormatPercent formats v with a percent suffix, e.g. "12%".
func FormatPercent(v any) string {
	s := FormatNumber(v)
	if s == Placeholder {
		return s
	}
	return s + "%"
}

// FormatUpdated renders a last-updated timestamp in IST, e.g.
// "12 Oct 2025, 4:30 pm". A nil or zero time renders "N/A".
func FormatUpdated(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.In(IST).Format("2 Jan 2006, 3:04 pm")
}

// FormatUpdatedRelative returns a humanized age of t relative to now,
// e.g. "3 hours ago". Empty when t is unknown.
func FormatUpdatedRelative(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

// toFloat coerces the numeric shapes metrics arrive in.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case *float64:
		if n == nil {
			return 0, false
		}
		f = *n
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" || s == Placeholder {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
