package domain

import "testing"

func TestClassifyPollutionLevel(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		gas   GasType
		want  int
	}{
		{"below moderate is good", 1e14, GasNO2, 0},
		{"exactly moderate is band 1", 5e15, GasNO2, 1},
		{"exactly unhealthy is band 2", 1e16, GasNO2, 2},
		{"exactly very_unhealthy is band 3", 2e16, GasNO2, 3},
		{"exactly hazardous is band 4", 3e16, GasNO2, 4},
		{"above hazardous stays band 4", 9e16, GasNO2, 4},
		{"O3 uses Dobson units", 250, GasO3, 1},
		{"PM dimensionless moderate", 0.2, GasPM, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyPollutionLevel(tc.value, tc.gas)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ClassifyPollutionLevel(%v, %s) = %d, want %d", tc.value, tc.gas, got, tc.want)
			}
		})
	}
}

func TestClassifyPollutionLevelUnknownGas(t *testing.T) {
	if _, err := ClassifyPollutionLevel(1.0, GasType("XENON")); err == nil {
		t.Fatal("expected error for unknown gas")
	}
}

func TestAllGasesCoversThresholdTable(t *testing.T) {
	if len(AllGases) != len(PollutionThresholds) {
		t.Fatalf("AllGases has %d entries, PollutionThresholds has %d", len(AllGases), len(PollutionThresholds))
	}
	for _, g := range AllGases {
		if _, ok := PollutionThresholds[g]; !ok {
			t.Errorf("gas %s missing from PollutionThresholds", g)
		}
	}
}
