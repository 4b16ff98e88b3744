//
// Copyright 2023 The Diffstat Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package checks

import (
	"math"
	"testing"
)

func TestCheckEpsilonStrict(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		epsilon float64
		wantErr bool
	}{
		{"negative epsilon", -2, true},
		{"zero epsilon", 0, true},
		{"epsilon is NaN", math.NaN(), true},
		{"epsilon is negative infinity", math.Inf(-1), true},
		{"epsilon is positive infinity", math.Inf(1), true},
		{"tiny positive epsilon", 1e-5, false},
		{"positive epsilon", 50, false},
	} {
		if err := CheckEpsilonStrict(tc.epsilon); (err != nil) != tc.wantErr {
			t.Errorf("CheckEpsilonStrict: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckEpsilon(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		epsilon float64
		wantErr bool
	}{
		{"negative epsilon", -2, true},
		{"zero epsilon", 0, false},
		{"epsilon is NaN", math.NaN(), true},
		{"epsilon is infinity", math.Inf(1), true},
		{"positive epsilon", 1, false},
	} {
		if err := CheckEpsilon(tc.epsilon); (err != nil) != tc.wantErr {
			t.Errorf("CheckEpsilon: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckDelta(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		delta   float64
		wantErr bool
	}{
		{"negative delta", -1e-10, true},
		{"zero delta", 0, false},
		{"delta between 0 and 1", 0.5, false},
		{"delta of 1", 1, true},
		{"delta greater than 1", 2, true},
		{"delta is NaN", math.NaN(), true},
	} {
		if err := CheckDelta(tc.delta); (err != nil) != tc.wantErr {
			t.Errorf("CheckDelta: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckNoDelta(t *testing.T) {
	if err := CheckNoDelta(0); err != nil {
		t.Errorf("CheckNoDelta: for zero delta got %v, want nil", err)
	}
	if err := CheckNoDelta(1e-10); err == nil {
		t.Errorf("CheckNoDelta: for non-zero delta got nil, want error")
	}
}

func TestCheckSensitivity(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		sensitivity float64
		wantErr     bool
	}{
		{"negative sensitivity", -1, true},
		{"zero sensitivity", 0, false},
		{"positive sensitivity", 3, false},
		{"sensitivity is infinity", math.Inf(1), true},
		{"sensitivity is NaN", math.NaN(), true},
	} {
		if err := CheckSensitivity(tc.sensitivity); (err != nil) != tc.wantErr {
			t.Errorf("CheckSensitivity: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckSensitivityStrict(t *testing.T) {
	if err := CheckSensitivityStrict(0); err == nil {
		t.Errorf("CheckSensitivityStrict: for zero sensitivity got nil, want error")
	}
	if err := CheckSensitivityStrict(1); err != nil {
		t.Errorf("CheckSensitivityStrict: for positive sensitivity got %v, want nil", err)
	}
}

func TestCheckBoundsFloat64(t *testing.T) {
	for _, tc := range []struct {
		desc         string
		lower, upper float64
		wantErr      bool
	}{
		{"lower is smaller than upper", 0, 1, false},
		{"lower is equal to upper", 1, 1, false},
		{"lower is larger than upper", 1, 0, true},
		{"lower is NaN", math.NaN(), 1, true},
		{"upper is NaN", 0, math.NaN(), true},
		{"lower is negative infinity", math.Inf(-1), 1, true},
		{"upper is infinity", 0, math.Inf(1), true},
	} {
		if err := CheckBoundsFloat64(tc.lower, tc.upper); (err != nil) != tc.wantErr {
			t.Errorf("CheckBoundsFloat64: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckBoundsHalfOpen(t *testing.T) {
	for _, tc := range []struct {
		desc         string
		lower, upper float64
		wantErr      bool
	}{
		{"finite bounds", 0, 1, false},
		{"upper is infinity", 0, math.Inf(1), false},
		{"equal bounds", 1, 1, true},
		{"lower is larger than upper", 1, 0, true},
		{"lower is infinity", math.Inf(-1), 0, true},
		{"upper is negative infinity", 0, math.Inf(-1), true},
		{"lower is NaN", math.NaN(), 1, true},
	} {
		if err := CheckBoundsHalfOpen(tc.lower, tc.upper); (err != nil) != tc.wantErr {
			t.Errorf("CheckBoundsHalfOpen: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckRank(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		q       float64
		wantErr bool
	}{
		{"rank of 0", 0, false},
		{"rank of 1", 1, false},
		{"median rank", 0.5, false},
		{"negative rank", -0.5, true},
		{"rank above 1", 1.5, true},
		{"rank is NaN", math.NaN(), true},
	} {
		if err := CheckRank(tc.q); (err != nil) != tc.wantErr {
			t.Errorf("CheckRank: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckRanges(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		ranges  []float64
		cells   int
		wantErr bool
	}{
		{"single range broadcast over several cells", []float64{1}, 3, false},
		{"one range per cell", []float64{1, 2, 3}, 3, false},
		{"length mismatch", []float64{1, 2}, 3, true},
		{"zero range", []float64{0}, 1, true},
		{"negative range", []float64{-1}, 1, true},
		{"infinite range", []float64{math.Inf(1)}, 1, true},
	} {
		if err := CheckRanges(tc.ranges, tc.cells); (err != nil) != tc.wantErr {
			t.Errorf("CheckRanges: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckMeasure(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		measure    []float64
		candidates int
		wantErr    bool
	}{
		{"matching measure", []float64{1, 0.5, 0}, 3, false},
		{"length mismatch", []float64{1, 2}, 3, true},
		{"negative weight", []float64{1, -0.5, 0}, 3, true},
		{"NaN weight", []float64{1, math.NaN(), 0}, 3, true},
	} {
		if err := CheckMeasure(tc.measure, tc.candidates); (err != nil) != tc.wantErr {
			t.Errorf("CheckMeasure: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}
