package analysis

import "math"

// Pearson returns the correlation coefficient of x and y over the pairs
// where both values are finite. ok is false with fewer than two pairs or
// when either side has zero variance.
func Pearson(x, y []float64) (r float64, ok bool) {
	var sx, sy float64
	var xs, ys []float64
	for i := 0; i < len(x) && i < len(y); i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
		sx += x[i]
		sy += y[i]
	}
	n := float64(len(xs))
	if n < 2 {
		return 0, false
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}

// MinMax scales values into [0, 1]. A constant series scales to zeros.
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
