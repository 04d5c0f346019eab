package types

import (
	"math"
	"strconv"
)

type SizeState int

const (
	SizeUnmeasured SizeState = iota
	SizeMeasured
	SizeError
)

// Size is one platform's measurement: failed, not measured, or a byte count.
// Zero bytes counts as not measured.
type Size struct {
	State SizeState
	Bytes int64
}

// ClassifySize derives the size state. A set error flag wins over any size.
func ClassifySize(bytes *int64, failed ErrorFlag) Size {
	switch {
	case bool(failed):
		return Size{State: SizeError}
	case bytes == nil || *bytes <= 0:
		return Size{State: SizeUnmeasured}
	default:
		return Size{State: SizeMeasured, Bytes: *bytes}
	}
}

func (s Size) String() string {
	switch s.State {
	case SizeError:
		return "Error"
	case SizeMeasured:
		return FormatBytes(s.Bytes)
	default:
		return "N/A"
	}
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n in the largest binary unit up to GB, rounded to two
// decimals with trailing zeros dropped: 1536 -> "1.5 KB".
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 B"
	}
	if n < 0 {
		return "N/A"
	}

	unit := 0
	scale := int64(1)
	for unit < len(byteUnits)-1 && n/scale >= 1024 {
		scale *= 1024
		unit++
	}

	value := float64(n) / float64(scale)
	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + byteUnits[unit]
}
