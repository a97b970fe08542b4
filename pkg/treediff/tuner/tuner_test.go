package tuner

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	resources := Detect()

	if resources.CPUCores <= 0 {
		t.Errorf("CPUCores = %d, want > 0", resources.CPUCores)
	}
	if resources.CPUCores != runtime.GOMAXPROCS(0) {
		t.Errorf("CPUCores = %d, want %d (GOMAXPROCS)", resources.CPUCores, runtime.GOMAXPROCS(0))
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		cores    int
		wantWalk int
		wantDiff int
	}{
		{name: "single core", cores: 1, wantWalk: 4, wantDiff: 1},
		{name: "zero cores reported", cores: 0, wantWalk: 4, wantDiff: 1},
		{name: "8 cores", cores: 8, wantWalk: 8, wantDiff: 8},
		{name: "huge machine capped", cores: 256, wantWalk: 64, wantDiff: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(SystemResources{CPUCores: tt.cores})
			if got.WalkWorkers != tt.wantWalk {
				t.Errorf("WalkWorkers = %d, want %d", got.WalkWorkers, tt.wantWalk)
			}
			if got.DiffWorkers != tt.wantDiff {
				t.Errorf("DiffWorkers = %d, want %d", got.DiffWorkers, tt.wantDiff)
			}
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	resources := SystemResources{CPUCores: 8}

	tests := []struct {
		name     string
		walk     int
		diff     int
		wantWalk int
		wantDiff int
	}{
		{name: "no overrides", walk: 0, diff: 0, wantWalk: 8, wantDiff: 8},
		{name: "negative ignored", walk: -3, diff: -1, wantWalk: 8, wantDiff: 8},
		{name: "diff override only", walk: 0, diff: 2, wantWalk: 8, wantDiff: 2},
		{name: "walk override only", walk: 16, diff: 0, wantWalk: 16, wantDiff: 8},
		{name: "overrides capped", walk: 1000, diff: 1000, wantWalk: 64, wantDiff: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateWithOverrides(resources, tt.walk, tt.diff)
			if got.WalkWorkers != tt.wantWalk {
				t.Errorf("WalkWorkers = %d, want %d", got.WalkWorkers, tt.wantWalk)
			}
			if got.DiffWorkers != tt.wantDiff {
				t.Errorf("DiffWorkers = %d, want %d", got.DiffWorkers, tt.wantDiff)
			}
		})
	}
}
