package tokenize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumericComparator encodes a number's neighborhood so that values
// within ThresholdDistance of each other share at least one token,
// following Vatsalan & Christen's privacy-preserving patient matching
// scheme. See spec.md §4.2 for the exact quantization rule.
type NumericComparator struct {
	thresholdDistance   float64
	resolution          int
	fractionalPrecision int
	distanceInterval    int64
}

// NewNumericComparator validates its parameters and precomputes the
// quantization interval.
func NewNumericComparator(thresholdDistance float64, resolution, fractionalPrecision int) (*NumericComparator, error) {
	if !(thresholdDistance > 0) {
		return nil, fmt.Errorf("tokenize: threshold_distance must be positive, got %v", thresholdDistance)
	}
	if resolution < 1 {
		return nil, fmt.Errorf("tokenize: resolution must be at least 1, got %d", resolution)
	}
	if fractionalPrecision < 0 {
		return nil, fmt.Errorf("tokenize: fractional_precision must not be negative, got %d", fractionalPrecision)
	}

	distanceInterval := int64(math.Round(thresholdDistance * math.Pow10(fractionalPrecision)))
	if distanceInterval == 0 {
		return nil, fmt.Errorf("tokenize: not enough fractional precision to encode threshold_distance %v", thresholdDistance)
	}

	return &NumericComparator{
		thresholdDistance:   thresholdDistance,
		resolution:          resolution,
		fractionalPrecision: fractionalPrecision,
		distanceInterval:    distanceInterval,
	}, nil
}

// Tokens implements Comparator. Values that cannot be parsed as an
// integer or a float (e.g. when the caller runs with validate=false and
// skipped field-format checking) produce no tokens rather than
// panicking.
func (c *NumericComparator) Tokens(value string) TokenSeq {
	if len(value) == 0 {
		return empty()
	}

	v, ok := c.quantize(value)
	if !ok {
		return empty()
	}

	resolution := c.resolution
	interval := c.distanceInterval

	return func(yield func(string) bool) {
		for i := -resolution; i <= resolution; i++ {
			tok := strconv.FormatInt(v+int64(i)*interval, 10)
			if !yield(tok) {
				return
			}
		}
	}
}

// quantize parses value, scales it onto the 2*resolution grid, and
// rounds it to the nearest multiple of the distance interval using the
// documented "residue < half rounds down, else up" midpoint rule.
func (c *NumericComparator) quantize(value string) (int64, bool) {
	trimmed := strings.TrimSpace(value)

	var v int64
	if iv, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		v = iv
		if c.fractionalPrecision > 0 {
			v *= int64(math.Pow10(c.fractionalPrecision))
		}
	} else {
		fv, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		if c.fractionalPrecision > 0 {
			v = int64(math.Round(fv * math.Pow10(c.fractionalPrecision)))
		} else {
			v = int64(fv)
		}
	}

	v = v * 2 * int64(c.resolution)

	residue := pyMod(v, c.distanceInterval)
	switch {
	case residue == 0:
		// already on the grid
	case residue*2 < c.distanceInterval:
		v -= residue
	default:
		v += c.distanceInterval - residue
	}
	return v, true
}

// pyMod returns a%b with Python's sign convention: the result always
// has the same sign as b (here, always non-negative since
// distanceInterval is always positive), unlike Go's %.
func pyMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
