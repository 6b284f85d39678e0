package validate

import (
	"strings"
	"time"
)

// strftimeToGoLayout translates the small subset of strftime directives
// schemas are expected to use for date fields into a Go reference-time
// layout string.
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
}

func strftimeToGoLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(pattern) {
			return "", errorf("strftime pattern %q ends with a dangling %%", pattern)
		}
		if pattern[i] == '%' {
			b.WriteByte('%')
			continue
		}
		layout, ok := strftimeDirectives[pattern[i]]
		if !ok {
			return "", errorf("unsupported strftime directive %%%c in pattern %q", pattern[i], pattern)
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

// DateValidator enforces that a value parses under a strftime pattern
// into a real calendar date: zero years, zero months/days, days past
// the end of the month, and non-leap Feb 29 are all rejected.
type DateValidator struct {
	Pattern string

	layout string // computed by NewDateValidator
}

// NewDateValidator validates the strftime pattern up front.
func NewDateValidator(pattern string) (*DateValidator, error) {
	layout, err := strftimeToGoLayout(pattern)
	if err != nil {
		return nil, err
	}
	return &DateValidator{Pattern: pattern, layout: layout}, nil
}

// Validate implements Validator.
func (v *DateValidator) Validate(raw string) error {
	_, err := v.parse(raw)
	return err
}

// Format implements Validator: canonical form is ISO YYYY-MM-DD.
func (v *DateValidator) Format(raw string) (string, error) {
	t, err := v.parse(raw)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

func (v *DateValidator) parse(raw string) (time.Time, error) {
	t, err := time.Parse(v.layout, raw)
	if err != nil {
		return time.Time{}, errorf("date %q does not match pattern %q: %v", raw, v.Pattern, err)
	}
	// time.Parse rejects most structurally invalid dates (month 13, day
	// 32, non-leap Feb 29) outright, but is happy to accept year 0; the
	// round-trip check below also catches any residual leniency.
	if t.Year() == 0 {
		return time.Time{}, errorf("date %q has a zero year", raw)
	}
	if t.Format(v.layout) != raw {
		return time.Time{}, errorf("date %q is not a valid calendar date under pattern %q", raw, v.Pattern)
	}
	return t, nil
}
