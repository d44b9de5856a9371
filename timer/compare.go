package timer

import "time"

// IsBetter reports whether candidate should replace previous as the stored
// run. The comparison happens at the deepest split either run reached: a
// run that got further wins, and at equal depth the lower (or equal) time
// wins. Two empty runs compare as better so the first attempt is always
// kept. Slices of different lengths are compared over the longer one, with
// missing entries treated as unset.
func IsBetter(candidate, previous []time.Duration) bool {
	at := func(s []time.Duration, i int) time.Duration {
		if i < len(s) {
			return s[i]
		}
		return 0
	}

	n := max(len(candidate), len(previous))
	i := n - 1
	for ; i >= 0; i-- {
		if at(candidate, i) != 0 || at(previous, i) != 0 {
			break
		}
	}
	if i < 0 {
		return true
	}

	c, p := at(candidate, i), at(previous, i)
	if p == 0 {
		return true
	}
	if c == 0 {
		return false
	}
	return c <= p
}
