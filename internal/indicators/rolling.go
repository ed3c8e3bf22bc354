package indicators

import "math"

// Rolling window primitives. All functions are total: positions without
// enough history hold NaN, callers must treat NaN as "insufficient data".

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RollingMean is the simple moving average over window w.
func RollingMean(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	if w <= 0 {
		return out
	}
	var sum float64
	valid := 0
	for i, v := range xs {
		if math.IsNaN(v) {
			// restart the window after a NaN input
			sum, valid = 0, 0
			continue
		}
		sum += v
		valid++
		if valid > w {
			sum -= xs[i-w]
			valid = w
		}
		if valid == w {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// RollingStd is the sample standard deviation over window w.
func RollingStd(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	if w <= 1 {
		return out
	}
	for i := w - 1; i < len(xs); i++ {
		win := xs[i-w+1 : i+1]
		var sum float64
		ok := true
		for _, v := range win {
			if math.IsNaN(v) {
				ok = false
				break
			}
			sum += v
		}
		if !ok {
			continue
		}
		mean := sum / float64(w)
		var ss float64
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// RollingMax is the rolling maximum over window w, yielding values once
// minPeriods observations are available.
func RollingMax(xs []float64, w, minPeriods int) []float64 {
	out := nanSlice(len(xs))
	if w <= 0 {
		return out
	}
	if minPeriods <= 0 || minPeriods > w {
		minPeriods = w
	}
	for i := range xs {
		lo := i - w + 1
		if lo < 0 {
			lo = 0
		}
		if i-lo+1 < minPeriods {
			continue
		}
		m := math.Inf(-1)
		ok := false
		for _, v := range xs[lo : i+1] {
			if math.IsNaN(v) {
				continue
			}
			ok = true
			if v > m {
				m = v
			}
		}
		if ok {
			out[i] = m
		}
	}
	return out
}

// RollingMin mirrors RollingMax.
func RollingMin(xs []float64, w, minPeriods int) []float64 {
	neg := make([]float64, len(xs))
	for i, v := range xs {
		neg[i] = -v
	}
	m := RollingMax(neg, w, minPeriods)
	for i, v := range m {
		m[i] = -v
	}
	return m
}

// RollingRankPct is the percentile rank of the latest value within its own
// trailing window (pandas rolling(...).rank(pct=True) semantics: the rank
// of x[i] among the w values ending at i, divided by the window count).
func RollingRankPct(xs []float64, w int) []float64 {
	out := nanSlice(len(xs))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(xs); i++ {
		cur := xs[i]
		if math.IsNaN(cur) {
			continue
		}
		rank, count := 0, 0
		ok := true
		for _, v := range xs[i-w+1 : i+1] {
			if math.IsNaN(v) {
				ok = false
				break
			}
			count++
			if v <= cur {
				rank++
			}
		}
		if ok && count > 0 {
			out[i] = float64(rank) / float64(count)
		}
	}
	return out
}

// Diff returns x[i]-x[i-1] with NaN at index 0.
func Diff(xs []float64) []float64 {
	out := nanSlice(len(xs))
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i] - xs[i-1]
	}
	return out
}

// PctChange returns the fractional change over n periods.
func PctChange(xs []float64, n int) []float64 {
	out := nanSlice(len(xs))
	for i := n; i < len(xs); i++ {
		if xs[i-n] == 0 || math.IsNaN(xs[i-n]) || math.IsNaN(xs[i]) {
			continue
		}
		out[i] = xs[i]/xs[i-n] - 1
	}
	return out
}

// RSI is Wilder-free simple-mean RSI: gains and losses averaged over the
// period with plain rolling means.
func RSI(xs []float64, period int) []float64 {
	n := len(xs)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		d := xs[i] - xs[i-1]
		if d > 0 {
			gains[i], losses[i] = d, 0
		} else {
			gains[i], losses[i] = 0, -d
		}
	}
	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)
	out := nanSlice(n)
	for i := 0; i < n; i++ {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			out[i] = 100
			continue
		}
		rs := g / l
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
