package corr

import "math"

// Pearson computes the Pearson correlation coefficient between two
// equal-length series. It returns false in ok when either series has
// zero variance (the coefficient would be NaN); callers must drop the
// score rather than rank a NaN.
func Pearson(a, b []float64) (score float64, ok bool) {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0, false
	}

	meanA, meanB := mean(a), mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(varA*varB)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// AbsScore returns |Pearson(a, b)|, the value stored as a metric
// node's corr_score.
func AbsScore(a, b []float64) (score float64, ok bool) {
	r, ok := Pearson(a, b)
	if !ok {
		return 0, false
	}
	return math.Abs(r), true
}
