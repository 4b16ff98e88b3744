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
	"fmt"
	"math"

	"github.com/diffstat/diffstat/checks"
	"github.com/diffstat/diffstat/rand"
	"gonum.org/v1/gonum/floats"
)

// Exponential is the selection mechanism of McSherry and Talwar: it picks one
// index i out of a finite candidate set with probability proportional to
//
//	measure[i] · exp(ε · utility[i] / (2·Δu))
//
// where the factor of 2 is dropped for monotonic utility functions. The
// optional measure weights support candidates that stand for intervals of
// different widths, e.g. the gaps of a sorted array.
type Exponential struct {
	cumulative []float64
	monotonic  bool
	src        *rand.Source
}

// ExponentialOptions contains the options necessary to initialize an
// Exponential mechanism.
type ExponentialOptions struct {
	Epsilon     float64   // Privacy parameter ε. Required, must be strictly positive.
	Sensitivity float64   // Sensitivity Δu of the utility function. Must be strictly positive.
	Utility     []float64 // Per-candidate utility scores. Required, entries may be very negative.
	// Per-candidate nonnegative weights. Optional; nil means a weight of 1 for
	// every candidate. Must have the same length as Utility otherwise.
	Measure []float64
	// Monotonic declares the utility function monotonic in the dataset, which
	// halves the added noise by dropping the factor of 2 from the scaling.
	Monotonic bool
	Source    *rand.Source
}

// NewExponential returns an Exponential mechanism with the given options. The
// candidate distribution is computed once at construction time, in log space:
// the maximum scaled utility is subtracted before exponentiating so that very
// negative utilities do not underflow to a zero weight across the board.
func NewExponential(opt *ExponentialOptions) (*Exponential, error) {
	if opt == nil {
		opt = &ExponentialOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, fmt.Errorf("NewExponential: %w", err)
	}
	if err := checks.CheckSensitivityStrict(opt.Sensitivity); err != nil {
		return nil, fmt.Errorf("NewExponential: %w", err)
	}
	if len(opt.Utility) == 0 {
		return nil, fmt.Errorf("NewExponential: Utility must contain at least one candidate")
	}
	for i, u := range opt.Utility {
		if math.IsNaN(u) || math.IsInf(u, 1) {
			return nil, fmt.Errorf("NewExponential: Utility entry %d is %f, must not be NaN or +infinity", i, u)
		}
	}
	measure := opt.Measure
	if measure != nil {
		if err := checks.CheckMeasure(measure, len(opt.Utility)); err != nil {
			return nil, fmt.Errorf("NewExponential: %w", err)
		}
	}

	scale := opt.Epsilon / opt.Sensitivity
	if !opt.Monotonic {
		scale /= 2
	}

	scaled := make([]float64, len(opt.Utility))
	for i, u := range opt.Utility {
		scaled[i] = u * scale
	}
	max := floats.Max(scaled)

	weights := make([]float64, len(scaled))
	for i, s := range scaled {
		weights[i] = math.Exp(s - max)
		if measure != nil {
			weights[i] *= measure[i]
		}
	}
	total := floats.Sum(weights)
	if total <= 0 {
		return nil, fmt.Errorf("NewExponential: all candidate weights are zero")
	}
	floats.Scale(1/total, weights)

	cumulative := make([]float64, len(weights))
	floats.CumSum(cumulative, weights)

	return &Exponential{
		cumulative: cumulative,
		monotonic:  opt.Monotonic,
		src:        opt.Source,
	}, nil
}

// Kind returns ExponentialKind.
func (m *Exponential) Kind() Kind {
	return ExponentialKind
}

// Monotonic reports whether the mechanism was configured for a monotonic
// utility function.
func (m *Exponential) Monotonic() bool {
	return m.monotonic
}

// Randomise selects a candidate index by drawing a uniform variate and walking
// the cumulative weighted sum.
func (m *Exponential) Randomise() (int, error) {
	r := m.src.Uniform()
	for i, c := range m.cumulative {
		if r <= c {
			return i, nil
		}
	}
	// The cumulative sum may fall a few ulps short of 1.
	return len(m.cumulative) - 1, nil
}
