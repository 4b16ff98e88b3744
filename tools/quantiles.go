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

package tools

import (
	"fmt"
	"math"
	"sort"

	"github.com/diffstat/diffstat/accountant"
	"github.com/diffstat/diffstat/checks"
	"github.com/diffstat/diffstat/mechanisms"
	"github.com/diffstat/diffstat/rand"
	"gonum.org/v1/gonum/floats"
)

// Bounds declares the value domain of the data.
type Bounds struct {
	Lower, Upper float64
}

// QuantileOptions contains the options shared by Quantile and Quantiles.
type QuantileOptions struct {
	// Epsilon is the total privacy parameter ε of the call. Zero defaults
	// to 1. Quantiles splits it evenly across the requested ranks.
	Epsilon float64
	// Bounds of the data values. Nil derives them from the data itself, which
	// leaks privacy; a privacy-leak advisory is logged.
	Bounds *Bounds
	// Accountant to charge. Nil resolves the scoped default.
	Accountant *accountant.BudgetAccountant
	// Axis-specific reduction is not supported for quantiles: a non-nil Axis
	// logs a compatibility advisory and the input is treated as flattened.
	Axis *int
	// Source of randomness for the selection and refinement draws. Nil uses
	// the secure default.
	Source *rand.Source
}

// Quantile returns a differentially private estimate of the q-th quantile of
// a, computed over the flattened input with the exponential mechanism using
// the method of Smith (2011).
//
// The sorted, bounds-clipped data augmented with the two bounds partitions
// [lower, upper] into gaps; gap i is selected with utility -|i - q·k| and the
// gap's width as its measure, and the released value is a uniform draw within
// the selected gap. The result therefore always lies within the bounds. An
// input containing NaN yields NaN.
func Quantile(a []float64, q float64, opt *QuantileOptions) (float64, error) {
	out, err := Quantiles(a, []float64{q}, opt)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Quantiles returns differentially private estimates of several quantiles of
// a, splitting the call's ε budget evenly across the ranks: requesting k
// quantiles with total budget ε charges the accountant k spends of ε/k.
func Quantiles(a []float64, qs []float64, opt *QuantileOptions) ([]float64, error) {
	if opt == nil {
		opt = &QuantileOptions{}
	}
	if opt.Axis != nil {
		warnUnsupportedAxis("Quantiles")
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("Quantiles: at least one rank is required")
	}
	for _, q := range qs {
		if err := checks.CheckRank(q); err != nil {
			return nil, fmt.Errorf("Quantiles: %w", err)
		}
	}
	epsilon := opt.Epsilon
	if epsilon == 0 {
		epsilon = defaultEpsilon
	}
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return nil, fmt.Errorf("Quantiles: %w", err)
	}

	bounds := opt.Bounds
	if bounds == nil {
		warnPrivacyLeak("Bounds")
		if len(a) == 0 {
			return nil, fmt.Errorf("Quantiles: input must not be empty when Bounds are not specified")
		}
		bounds = &Bounds{Lower: floats.Min(a), Upper: floats.Max(a)}
	}
	if err := checks.CheckBoundsFloat64(bounds.Lower, bounds.Upper); err != nil {
		return nil, fmt.Errorf("Quantiles: %w", err)
	}

	acc := accountant.LoadDefault(opt.Accountant)
	perRank := epsilon / float64(len(qs))

	out := make([]float64, len(qs))
	for i, q := range qs {
		v, err := singleQuantile(a, q, perRank, bounds, acc, opt.Source)
		if err != nil {
			return nil, fmt.Errorf("Quantiles: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func singleQuantile(a []float64, q, epsilon float64, bounds *Bounds, acc *accountant.BudgetAccountant, src *rand.Source) (float64, error) {
	if err := acc.Check(epsilon, 0); err != nil {
		return 0, err
	}

	k := len(a)
	arr := make([]float64, 0, k+2)
	arr = append(arr, clip(a, bounds.Lower, bounds.Upper)...)
	arr = append(arr, bounds.Lower, bounds.Upper)
	// NaN propagates instead of being silently dropped; the budget stays
	// unspent since no mechanism ran.
	if hasNaN(arr) {
		return math.NaN(), nil
	}
	sort.Float64s(arr)

	// Degenerate domain: every gap has zero width and the result is fully
	// determined by the public bounds, so there is nothing to randomise.
	if bounds.Lower == bounds.Upper {
		return bounds.Lower, nil
	}

	// Gap i runs from arr[i] to arr[i+1]; its utility is the distance of its
	// rank from the target rank and its measure the gap width.
	utility := make([]float64, k+1)
	measure := make([]float64, k+1)
	for i := 0; i <= k; i++ {
		utility[i] = -math.Abs(float64(i) - q*float64(k))
		measure[i] = arr[i+1] - arr[i]
	}

	mech, err := mechanisms.NewExponential(&mechanisms.ExponentialOptions{
		Epsilon:     epsilon,
		Sensitivity: 1,
		Utility:     utility,
		Measure:     measure,
		Source:      src,
	})
	if err != nil {
		return 0, err
	}
	idx, err := mech.Randomise()
	if err != nil {
		return 0, err
	}

	if err := acc.Spend(epsilon, 0); err != nil {
		return 0, err
	}

	// The data are continuous-valued, so the discrete selection is refined to
	// a uniform draw within the chosen gap. Uniform post-processing of the
	// private index costs no budget.
	return arr[idx] + src.Uniform()*(arr[idx+1]-arr[idx]), nil
}
