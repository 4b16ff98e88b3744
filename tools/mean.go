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

	"github.com/diffstat/diffstat/accountant"
	"github.com/diffstat/diffstat/checks"
	"github.com/diffstat/diffstat/mechanisms"
	"github.com/diffstat/diffstat/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MeanOptions contains the options shared by Mean and MeanMatrix.
type MeanOptions struct {
	// Epsilon is the privacy parameter ε of the call. Zero defaults to 1.
	Epsilon float64
	// Range declares the spread (max - min) of the data per output cell: a
	// single entry broadcasts over all cells, otherwise one entry per cell is
	// required. A nil Range is derived from the data itself, which leaks
	// privacy; a privacy-leak advisory is logged.
	Range []float64
	// Accountant to charge. Nil resolves the scoped default.
	Accountant *accountant.BudgetAccountant
	// Source of randomness for the noise draws. Nil uses the secure default.
	Source *rand.Source
}

// Mean returns the differentially private mean of a, perturbed with the
// Laplace mechanism calibrated to sensitivity range/n.
func Mean(a []float64, opt *MeanOptions) (float64, error) {
	out, err := meanCells([][]float64{a}, opt, "Mean")
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// MeanMatrix returns the differentially private mean of each row or column of
// a. Axis 0 reduces over rows, yielding one value per column; axis 1 reduces
// over columns, yielding one value per row. Each cell draws its own noise,
// and the call charges ε once: cells cover disjoint entries of the matrix.
func MeanMatrix(a mat.Matrix, axis int, opt *MeanOptions) ([]float64, error) {
	cells, err := matrixCells(a, axis, "MeanMatrix")
	if err != nil {
		return nil, err
	}
	return meanCells(cells, opt, "MeanMatrix")
}

// meanCells runs the mean estimator over one slice of data per output cell.
func meanCells(cells [][]float64, opt *MeanOptions, operation string) ([]float64, error) {
	if opt == nil {
		opt = &MeanOptions{}
	}
	epsilon := opt.Epsilon
	if epsilon == 0 {
		epsilon = defaultEpsilon
	}
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	for _, cell := range cells {
		if len(cell) == 0 {
			return nil, fmt.Errorf("%s: input must not be empty", operation)
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
		mech, err := mechanisms.NewLaplace(&mechanisms.LaplaceOptions{
			Epsilon:     epsilon,
			Sensitivity: cellRange(ranges, i) / n,
			Source:      opt.Source,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		out[i], err = mech.Randomise(stat.Mean(cell, nil))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
	}

	if err := acc.Spend(epsilon, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return out, nil
}

// matrixCells slices a matrix into per-cell data along the reduction axis.
func matrixCells(a mat.Matrix, axis int, operation string) ([][]float64, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("%s: input must not be empty", operation)
	}
	switch axis {
	case 0:
		cells := make([][]float64, c)
		for j := 0; j < c; j++ {
			cells[j] = mat.Col(nil, j, a)
		}
		return cells, nil
	case 1:
		cells := make([][]float64, r)
		for i := 0; i < r; i++ {
			cells[i] = mat.Row(nil, i, a)
		}
		return cells, nil
	}
	return nil, fmt.Errorf("%s: axis is %d, must be 0 or 1", operation, axis)
}
