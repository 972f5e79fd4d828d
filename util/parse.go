package util

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize reads a size such as "100MB", "512 KiB" or "1.5GB". Units are
// powers of 1024 whether or not they carry the "i". A bare number is
// bytes. def is returned for anything unparseable or negative.
func ParseSize(s string, def int64) int64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if unit := strings.TrimLeft(s, "0123456789., "); len(unit) == 2 && unit[1] == 'b' {
		s = strings.TrimSuffix(s, unit) + unit[:1] + "ib"
	}
	n, err := humanize.ParseBytes(s)
	if s == "" || err != nil || n > math.MaxInt64 {
		return def
	}
	return int64(n)
}

// FormatSize renders n bytes with binary units ("100 MiB").
func FormatSize(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

// MaskSecret keeps the first visible characters of s and stars the rest.
// Secrets no longer than visible are hidden entirely.
func MaskSecret(s string, visible int) string {
	if len(s) <= visible {
		return "***"
	}
	return s[:visible] + "***"
}
