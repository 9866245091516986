package journal

import (
	"math"
	"strconv"
	"strings"
)

// ModseqField is the key Record uses for the stamped modseq
const ModseqField = "modseq"

// Entry is a caller supplied journal record. The journal only ever touches
// its modseq: SetModseq is called once, when the entry is appended.
type Entry interface {
	Modseq() uint64
	SetModseq(modseq uint64)
}

// Record is a free-form entry. Its modseq lives under ModseqField.
type Record map[string]any

// Modseq returns the stamped modseq, or 0 if the record was never appended
func (r Record) Modseq() uint64 {
	if v, ok := r[ModseqField].(uint64); ok {
		return v
	}
	return ParseModseq(r[ModseqField])
}

// SetModseq stamps the record
func (r Record) SetModseq(modseq uint64) {
	r[ModseqField] = modseq
}

// ParseModseq coerces loosely typed input into a modseq threshold.
// Negative, fractional-only, non-numeric and absent values all yield 0.
func ParseModseq(v any) uint64 {
	switch n := v.(type) {
	case nil:
		return 0
	case uint64:
		return n
	case uint:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint8:
		return uint64(n)
	case int:
		return clampInt(int64(n))
	case int64:
		return clampInt(n)
	case int32:
		return clampInt(int64(n))
	case int16:
		return clampInt(int64(n))
	case int8:
		return clampInt(int64(n))
	case float64:
		return clampFloat(n)
	case float32:
		return clampFloat(float64(n))
	case string:
		return parseModseqString(n)
	case []byte:
		return parseModseqString(string(n))
	default:
		return 0
	}
}

func clampInt(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func clampFloat(f float64) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

func parseModseqString(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return clampFloat(f)
	}
	return 0
}
