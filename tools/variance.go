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

	"github.com/diffstat/diffstat/accountant"
	"github.com/diffstat/diffstat/checks"
	"github.com/diffstat/diffstat/mechanisms"
	"github.com/diffstat/diffstat/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// VarOptions contains the options shared by Var, VarMatrix, Std and
// StdMatrix.
type VarOptions struct {
	// Epsilon is the privacy parameter ε of the call. Zero defaults to 1.
	Epsilon float64
	// Range declares the spread (max - min) of the data per output cell; see
	// MeanOptions.Range for the broadcast and derivation rules.
	Range []float64
	// DDof is the delta degrees of freedom: the divisor of the variance is
	// n - DDof. Zero yields the population variance.
	DDof int
	// Accountant to charge. Nil resolves the scoped default.
	Accountant *accountant.BudgetAccountant
	// Source of randomness for the noise draws. Nil uses the secure default.
	Source *rand.Source
}

// Var returns the differentially private variance of a. A variance is bounded
// below at zero, so the noise comes from the bounded-domain Laplace mechanism
// over [0, +∞) with sensitivity (range/n)²·(n-1), which keeps the released
// value nonnegative without clipping away probability mass.
func Var(a []float64, opt *VarOptions) (float64, error) {
	out, err := varCells([][]float64{a}, opt, "Var")
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// VarMatrix returns the differentially private variance of each row or column
// of a; see MeanMatrix for the axis convention.
func VarMatrix(a mat.Matrix, axis int, opt *VarOptions) ([]float64, error) {
	cells, err := matrixCells(a, axis, "VarMatrix")
	if err != nil {
		return nil, err
	}
	return varCells(cells, opt, "VarMatrix")
}

// Std returns the differentially private standard deviation of a: the square
// root of Var. The square root is deterministic post-processing of a private
// output, so no additional budget is spent.
func Std(a []float64, opt *VarOptions) (float64, error) {
	v, err := Var(a, opt)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// StdMatrix returns the differentially private standard deviation of each row
// or column of a; see MeanMatrix for the axis convention.
func StdMatrix(a mat.Matrix, axis int, opt *VarOptions) ([]float64, error) {
	out, err := VarMatrix(a, axis, opt)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = math.Sqrt(v)
	}
	return out, nil
}

func varCells(cells [][]float64, opt *VarOptions, operation string) ([]float64, error) {
	if opt == nil {
		opt = &VarOptions{}
	}
	epsilon := opt.Epsilon
	if epsilon == 0 {
		epsilon = defaultEpsilon
	}
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if opt.DDof < 0 {
		return nil, fmt.Errorf("%s: DDof is %d, must be nonnegative", operation, opt.DDof)
	}
	for _, cell := range cells {
		if len(cell) <= opt.DDof {
			return nil, fmt.Errorf("%s: need more than %d data points for DDof %d", operation, opt.DDof, opt.DDof)
		}
	}

	ranges := opt.Range
	if ranges == nil {
		warnPrivacyLeak("Range")
		ranges = make([]float64, len(cells))
		for i, cell := range cells {
			ranges[i] = dataRange(cell)
		}
	}
	if err := checks.CheckRanges(ranges, len(cells)); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	acc := accountant.LoadDefault(opt.Accountant)
	if err := acc.Check(epsilon, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	out := make([]float64, len(cells))
	for i, cell := range cells {
		n := float64(len(cell))
		r := cellRange(ranges, i)
		mech, err := mechanisms.NewBoundedLaplace(&mechanisms.BoundedLaplaceOptions{
			Epsilon:     epsilon,
			Sensitivity: (r / n) * (r / n) * (n - 1),
			Lower:       0,
			Upper:       math.Inf(1),
			Source:      opt.Source,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		out[i], err = mech.Randomise(variance(cell, opt.DDof))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
	}

	if err := acc.Spend(epsilon, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return out, nil
}

// variance computes the raw variance of a with the given delta degrees of
// freedom.
func variance(a []float64, ddof int) float64 {
	mean := stat.Mean(a, nil)
	var sumOfSquares float64
	for _, e := range a {
		sumOfSquares += (e - mean) * (e - mean)
	}
	return sumOfSquares / float64(len(a)-ddof)
}
