package domain

import "testing"

func TestSensitivityScale(t *testing.T) {
	cases := map[int]float64{1: 1.0, 2: 1.0, 3: 0.7, 4: 0.7, 5: 0.5}
	for level, want := range cases {
		if got := SensitivityScale(level); got != want {
			t.Errorf("SensitivityScale(%d) = %v, want %v", level, got, want)
		}
	}
}

func TestSensitivityLabel(t *testing.T) {
	cases := map[int]string{1: "Normal", 2: "Normal", 3: "Sensitive", 4: "Sensitive", 5: "Asthmatic"}
	for level, want := range cases {
		if got := SensitivityLabel(level); got != want {
			t.Errorf("SensitivityLabel(%d) = %q, want %q", level, got, want)
		}
	}
}

func TestUPESDefaultWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range UPESDefaultWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("UPESDefaultWeights sums to %v, want ~1.0", sum)
	}
}
