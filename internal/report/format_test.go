package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSISuffix(t *testing.T) {
	tests := []struct {
		name   string
		in     int64
		want   float64
		suffix string
	}{
		{"zero", 0, 0, "\u00a0\u00a0B"},
		{"at threshold stays in bytes", 1000, 1000, "\u00a0\u00a0B"},
		{"just over threshold", 1001, 1001.0 / 1024, "KiB"},
		{"one and a half mebibytes", 1536 * 1024, 1.5, "MiB"},
		{"negative", -2048, -2, "KiB"},
		{"caps at PiB", 1 << 62, float64(int64(1)<<62) / (1 << 50), "PiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, suffix := SISuffix(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.suffix, suffix)
		})
	}
}

func TestCounts(t *testing.T) {
	assert.Equal(t, "1,234,567", Count(1234567))
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "+0", SignedCount(0))
	assert.Equal(t, "+12,345", SignedCount(12345))
	assert.Equal(t, "-1,234", SignedCount(-1234))
}

func TestSizes(t *testing.T) {
	assert.Equal(t, "1,234.6", Size(1234.56))
	assert.Equal(t, "0.0", Size(0))
	assert.Equal(t, "-3.5", Size(-3.5))
	assert.Equal(t, "+0.0", SignedSize(0))
	assert.Equal(t, "+0.0", SignedSize(0.04))
	assert.Equal(t, "-2.0", SignedSize(-2))
	assert.Equal(t, "+1,000.0", SignedSize(999.96))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "1.5 KiB", HumanSize(1536))
	assert.Equal(t, "512.0 \u00a0\u00a0B", HumanSize(512))
	assert.Equal(t, "-1.5 KiB", SignedHumanSize(-1536))
	assert.Equal(t, "+0.0 B", StripPadding(SignedHumanSize(0)))
}
