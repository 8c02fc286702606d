package corr

import "testing"

func TestPearsonPerfectCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	score, ok := AbsScore(a, b)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if score < 0.999 {
		t.Fatalf("expected near-perfect correlation, got %f", score)
	}
}

func TestPearsonZeroVarianceIsDropped(t *testing.T) {
	a := []float64{1, 1, 1, 1}
	b := []float64{2, 4, 6, 8}
	_, ok := AbsScore(a, b)
	if ok {
		t.Fatalf("expected zero-variance series to be dropped")
	}
}

func TestDeriveTrend(t *testing.T) {
	if got := DeriveTrend([]float64{1, 1, 5, 5}); got != "rise" {
		t.Fatalf("expected rise, got %s", got)
	}
	if got := DeriveTrend([]float64{5, 5, 1, 1}); got != "fall" {
		t.Fatalf("expected fall, got %s", got)
	}
	if got := DeriveTrend([]float64{3, 3, 3, 3}); got != "default" {
		t.Fatalf("expected default, got %s", got)
	}
}
