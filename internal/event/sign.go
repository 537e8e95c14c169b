package event

import "github.com/san-kum/fmisim/internal/fmi"

// Sign returns -1, 0 or +1.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Crossings reports every index whose sign differs between prev and cur.
// The comparison is strict against the previous sign: arriving at exactly
// zero is a crossing, remaining at zero is not. Both slices must have the
// same length.
func Crossings(prev, cur []float64) []fmi.Crossing {
	var out []fmi.Crossing
	for i := range cur {
		sp, sc := Sign(prev[i]), Sign(cur[i])
		if sp == sc {
			continue
		}
		dir := fmi.Falling
		if sc > sp {
			dir = fmi.Rising
		}
		out = append(out, fmi.Crossing{Index: i, Direction: dir})
	}
	return out
}

// SignsEqual reports whether a and b have no crossing between them.
func SignsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if Sign(a[i]) != Sign(b[i]) {
			return false
		}
	}
	return true
}
