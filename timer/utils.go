package timer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTime renders d as [h:]mm:ss with the requested number of decimals.
// Leading hour and minute groups are dropped when they are zero, the way
// split timers usually show short segments.
func FormatTime(d time.Duration, decimals int) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 6 {
		decimals = 6
	}

	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60

	var out string
	switch {
	case h > 0:
		out = fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	case m > 0:
		out = fmt.Sprintf("%s%d:%02d", sign, m, s)
	default:
		out = fmt.Sprintf("%s%d", sign, s)
	}

	if decimals > 0 {
		frac := int64(d%time.Second) / int64(time.Microsecond)
		digits := fmt.Sprintf("%06d", frac)
		out += "." + digits[:decimals]
	}
	return out
}

// FormatDelta renders a signed comparison against a stored split.
func FormatDelta(d time.Duration, decimals int) string {
	if d >= 0 {
		return "+" + FormatTime(d, decimals)
	}
	return FormatTime(d, decimals)
}

// ParseTime accepts [[h:]m:]s[.fraction] and returns the duration.
func ParseTime(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format %q", input)
	}

	secPart := parts[len(parts)-1]
	var frac time.Duration
	if i := strings.IndexByte(secPart, '.'); i >= 0 {
		digits := secPart[i+1:]
		secPart = secPart[:i]
		if len(digits) == 0 || len(digits) > 9 {
			return 0, fmt.Errorf("invalid fraction in %q", input)
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid fraction in %q", input)
		}
		frac = time.Duration(n)
		for j := len(digits); j < 9; j++ {
			frac *= 10
		}
	}

	sec, err := strconv.Atoi(secPart)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("invalid seconds in %q", input)
	}
	if len(parts) > 1 && sec >= 60 {
		return 0, fmt.Errorf("invalid seconds (must be 0-59) in %q", input)
	}

	total := time.Duration(sec)*time.Second + frac
	units := []time.Duration{time.Minute, time.Hour}
	for i, p := range parts[:len(parts)-1] {
		unit := units[len(parts)-2-i]
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time format %q", input)
		}
		if unit == time.Minute && len(parts) == 3 && n >= 60 {
			return 0, fmt.Errorf("invalid minutes (must be 0-59) in %q", input)
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}
