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

package mechanisms

import (
	"math"
	"testing"

	"github.com/diffstat/diffstat/rand"
	"github.com/grd/stat"
)

func TestNewBoundedLaplaceArgumentChecking(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		opt     *BoundedLaplaceOptions
		wantErr bool
	}{
		{"valid finite domain",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: 0, Upper: 1},
			false},
		{"valid half-open domain",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: 0, Upper: math.Inf(1)},
			false},
		{"valid with delta",
			&BoundedLaplaceOptions{Epsilon: 1, Delta: 0.1, Sensitivity: 1, Lower: 0, Upper: 1},
			false},
		{"nil options",
			nil,
			true},
		{"zero epsilon",
			&BoundedLaplaceOptions{Epsilon: 0, Sensitivity: 1, Lower: 0, Upper: 1},
			true},
		{"delta of 1",
			&BoundedLaplaceOptions{Epsilon: 1, Delta: 1, Sensitivity: 1, Lower: 0, Upper: 1},
			true},
		{"lower bound above upper bound",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: 1, Upper: 0},
			true},
		{"equal bounds",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: 1, Upper: 1},
			true},
		{"infinite lower bound",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: math.Inf(-1), Upper: 0},
			true},
		{"NaN lower bound",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: 1, Lower: math.NaN(), Upper: 1},
			true},
		{"negative sensitivity",
			&BoundedLaplaceOptions{Epsilon: 1, Sensitivity: -1, Lower: 0, Upper: 1},
			true},
	} {
		if _, err := NewBoundedLaplace(tc.opt); (err != nil) != tc.wantErr {
			t.Errorf("NewBoundedLaplace: when %s for err got %v, want %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestBoundedLaplaceStaysInDomain(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon:     1,
		Sensitivity: 1,
		Lower:       0,
		Upper:       1,
		Source:      rand.NewSource(1),
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	// Values in the interior, on both boundaries and outside the domain must
	// all produce outputs inside the domain for every draw.
	for _, value := range []float64{0.5, 0, 1, -3, 7} {
		for i := 0; i < 1000; i++ {
			got, err := m.Randomise(value)
			if err != nil {
				t.Fatalf("Randomise(%f): got err %v", value, err)
			}
			if got < 0 || got > 1 {
				t.Fatalf("Randomise(%f): got %f, want a value in [0, 1]", value, got)
			}
		}
	}
}

func TestBoundedLaplaceHalfOpenDomain(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon:     1,
		Sensitivity: 1,
		Lower:       0,
		Upper:       math.Inf(1),
		Source:      rand.NewSource(2),
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	sawNoise := false
	for i := 0; i < 1000; i++ {
		got, err := m.Randomise(1)
		if err != nil {
			t.Fatalf("Randomise: got err %v", err)
		}
		if got < 0 {
			t.Fatalf("Randomise: got %f, want a nonnegative value", got)
		}
		if got != 1 {
			sawNoise = true
		}
	}
	if !sawNoise {
		t.Errorf("Randomise: all 1000 draws returned the input unchanged, want added noise")
	}
}

func TestBoundedLaplaceScaleIsInflated(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon:     1,
		Sensitivity: 1,
		Lower:       0,
		Upper:       2,
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	// Truncation to the domain inflates the likelihood ratio, so the solved
	// scale must exceed the unbounded sensitivity/ε scale.
	if got, unbounded := m.Scale(), 1.0; got <= unbounded {
		t.Errorf("Scale: got %f, want strictly greater than the unbounded scale %f", got, unbounded)
	}
	if math.IsInf(m.Scale(), 0) || math.IsNaN(m.Scale()) {
		t.Errorf("Scale: got %f, want finite", m.Scale())
	}
}

func TestBoundedLaplaceDeltaReducesScale(t *testing.T) {
	pure, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon: 1, Sensitivity: 1, Lower: 0, Upper: 2,
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	relaxed, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon: 1, Delta: 0.2, Sensitivity: 1, Lower: 0, Upper: 2,
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	if relaxed.Scale() >= pure.Scale() {
		t.Errorf("Scale: got %f with delta, want smaller than the pure-epsilon scale %f", relaxed.Scale(), pure.Scale())
	}
}

func TestBoundedLaplaceConvergesForLargeEpsilon(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon:     1e6,
		Sensitivity: 1,
		Lower:       0,
		Upper:       1,
		Source:      rand.NewSource(3),
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	samples := make(stat.Float64Slice, 1000)
	for i := range samples {
		samples[i], _ = m.Randomise(0.5)
	}
	if sampleMean := stat.Mean(samples); math.Abs(sampleMean-0.5) > 0.01 {
		t.Errorf("Randomise: got sample mean %f for huge epsilon, want approximately 0.5", sampleMean)
	}
}

func TestBoundedLaplaceZeroSensitivityReturnsClampedValue(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon:     1,
		Sensitivity: 0,
		Lower:       0,
		Upper:       1,
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	for _, tc := range []struct {
		value, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{2, 1},
	} {
		got, err := m.Randomise(tc.value)
		if err != nil {
			t.Fatalf("Randomise(%f): got err %v", tc.value, err)
		}
		if got != tc.want {
			t.Errorf("Randomise(%f): got %f, want %f", tc.value, got, tc.want)
		}
	}
}

func TestBoundedLaplaceNaNPropagates(t *testing.T) {
	m, err := NewBoundedLaplace(&BoundedLaplaceOptions{
		Epsilon: 1, Sensitivity: 1, Lower: 0, Upper: 1,
	})
	if err != nil {
		t.Fatalf("NewBoundedLaplace: got err %v", err)
	}
	got, err := m.Randomise(math.NaN())
	if err != nil {
		t.Fatalf("Randomise: got err %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("Randomise: for NaN input got %f, want NaN", got)
	}
}
