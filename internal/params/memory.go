package params

import (
	"fmt"
	"strconv"
	"strings"
)

// MemorySize is a memory amount in bytes.
type MemorySize int64

// Memory units, in bytes.
const (
	Kibibyte MemorySize = 1024
	Mebibyte            = 1024 * Kibibyte
	Gibibyte            = 1024 * Mebibyte
	Tebibyte            = 1024 * Gibibyte
)

// ParseMemory parses a cluster-style memory request such as "12G", "512M",
// "2T", or "4096K". A bare number is taken as mebibytes, matching scheduler
// convention. An optional trailing "B" is accepted ("12GB").
func ParseMemory(s string) (MemorySize, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty memory size")
	}

	upper := strings.TrimSuffix(strings.ToUpper(trimmed), "B")
	unit := Mebibyte
	switch {
	case strings.HasSuffix(upper, "K"):
		unit = Kibibyte
		upper = strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "M"):
		unit = Mebibyte
		upper = strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "G"):
		unit = Gibibyte
		upper = strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "T"):
		unit = Tebibyte
		upper = strings.TrimSuffix(upper, "T")
	}

	n, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory size %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative memory size %q", s)
	}
	return MemorySize(n * float64(unit)), nil
}

// Mebibytes returns the size rounded up to whole mebibytes, the unit
// cluster schedulers request memory in.
func (m MemorySize) Mebibytes() int64 {
	mib := int64(m) / int64(Mebibyte)
	if int64(m)%int64(Mebibyte) != 0 {
		mib++
	}
	return mib
}

// String renders the size with the largest unit that divides it evenly.
func (m MemorySize) String() string {
	switch {
	case m >= Tebibyte && m%Tebibyte == 0:
		return fmt.Sprintf("%dT", int64(m/Tebibyte))
	case m >= Gibibyte && m%Gibibyte == 0:
		return fmt.Sprintf("%dG", int64(m/Gibibyte))
	case m >= Mebibyte && m%Mebibyte == 0:
		return fmt.Sprintf("%dM", int64(m/Mebibyte))
	case m >= Kibibyte && m%Kibibyte == 0:
		return fmt.Sprintf("%dK", int64(m/Kibibyte))
	default:
		return fmt.Sprintf("%dB", int64(m))
	}
}
