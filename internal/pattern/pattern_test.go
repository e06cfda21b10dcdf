package pattern

import (
	"math"
	"math/rand"
	"testing"
)

func TestTimeMultiplier_KnownHours(t *testing.T) {
	cases := map[int]float64{
		7:  1.5,
		10: 0.6,
		13: 1.2,
		16: 0.8,
		19: 1.4,
		23: 0.2,
		2:  0.2,
	}
	for hour, want := range cases {
		got, err := TimeMultiplier(hour)
		if err != nil {
			t.Fatalf("hour %d: unexpected error %v", hour, err)
		}
		if got != want {
			t.Fatalf("hour %d: expected %v, got %v", hour, want, got)
		}
	}
}

func TestTimeMultiplier_RejectsOutOfRange(t *testing.T) {
	if _, err := TimeMultiplier(24); err == nil {
		t.Fatal("expected error for hour 24")
	}
	if _, err := TimeMultiplier(-1); err == nil {
		t.Fatal("expected error for negative hour")
	}
}

func TestPoisson_ZeroMeanIsAlwaysZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		if got := Poisson(rng, 0); got != 0 {
			t.Fatalf("expected 0, got %d", got)
		}
	}
}

func TestPoisson_MeanAndVarianceConverge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const mu = 5.0
	const n = 20000

	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := float64(Poisson(rng, mu))
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean-mu) > 0.2 {
		t.Fatalf("sample mean %v too far from mu=%v", mean, mu)
	}
	if math.Abs(variance-mu) > 0.5 {
		t.Fatalf("sample variance %v too far from mu=%v", variance, mu)
	}
}

func TestPoisson_NormalApproxForLargeMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const mu = 100.0
	const n = 5000

	sum := 0.0
	for i := 0; i < n; i++ {
		v := Poisson(rng, mu)
		if v < 0 {
			t.Fatalf("poisson sample must be non-negative, got %d", v)
		}
		sum += float64(v)
	}
	mean := sum / n
	if math.Abs(mean-mu) > 5 {
		t.Fatalf("sample mean %v too far from mu=%v", mean, mu)
	}
}
