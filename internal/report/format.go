package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// nbsp pads the bytes suffix so it lines up with the three-letter ones in
// a monospace column.
const nbsp = "\u00a0"

var suffixes = []string{nbsp + nbsp + "B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// SISuffix scales n bytes down by 1024 until the magnitude is at most 1000
// or the largest suffix is reached, and returns the scaled value and its
// suffix.
func SISuffix(n int64) (float64, string) {
	b := float64(n)
	i := 0
	for math.Abs(b) > 1000 && i < len(suffixes)-1 {
		b /= 1024
		i++
	}
	return b, suffixes[i]
}

// StripPadding removes the non-breaking spaces SISuffix uses for alignment.
func StripPadding(s string) string {
	return strings.ReplaceAll(s, nbsp, "")
}

// Count formats n with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// SignedCount is Count with an explicit sign, "+0" for zero.
func SignedCount(n int64) string {
	if n < 0 {
		return humanize.Comma(n)
	}
	return "+" + humanize.Comma(n)
}

// Size formats v with one decimal and thousands separators.
func Size(v float64) string {
	if math.Signbit(v) {
		return "-" + fixed1(math.Abs(v))
	}
	return fixed1(v)
}

// SignedSize is Size with an explicit sign.
func SignedSize(v float64) string {
	if math.Signbit(v) {
		return "-" + fixed1(math.Abs(v))
	}
	return "+" + fixed1(v)
}

// HumanSize formats n bytes as "1.2 KiB" with the padding intact.
func HumanSize(n int64) string {
	v, suffix := SISuffix(n)
	return Size(v) + " " + suffix
}

// SignedHumanSize formats n bytes as "+1.2 KiB" with the padding intact.
func SignedHumanSize(n int64) string {
	v, suffix := SISuffix(n)
	return SignedSize(v) + " " + suffix
}

// fixed1 formats a non-negative value with one decimal and grouped digits.
func fixed1(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return s
	}
	return humanize.Comma(n) + "." + frac
}
