package backoff

import (
	"testing"
	"time"
)

func TestCalculatorDelaySequence(t *testing.T) {
	calc := NewCalculator(nil, time.Second, time.Minute)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := calc.Delay(i + 1); got != expected {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestCalculatorDefaultsToExponential(t *testing.T) {
	calc := NewCalculator(nil, time.Second, 0)
	if _, ok := calc.Strategy().(ExponentialStrategy); !ok {
		t.Errorf("Strategy() returned wrong type: %T", calc.Strategy())
	}
}

func BenchmarkCalculatorExponential(b *testing.B) {
	calc := NewCalculator(ExponentialStrategy{}, 100*time.Millisecond, 5*time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.Delay(i%10 + 1)
	}
}
