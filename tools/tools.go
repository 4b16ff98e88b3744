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

// Package tools provides differentially private statistical estimators over
// numeric slices and matrices: mean, variance, standard deviation and
// quantiles.
//
// Every estimator follows the same protocol: validate all inputs, resolve the
// budget accountant, Check the prospective spend, run the noise mechanisms,
// and Spend only after they succeeded. A call that errors never records a
// spend. NaN inputs propagate to NaN outputs, consistent with ordinary array
// reduction semantics.
//
// When a Range or Bounds parameter is omitted it is derived from the data
// itself. The derivation is not private: a privacy-leak advisory is logged
// and execution continues. This is an intentional, documented leak point for
// exploratory use, not a bug.
package tools

import (
	"math"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

// minDerivedRange keeps a derived range strictly positive even for constant
// data, so mechanism sensitivities stay valid.
const minDerivedRange = 1e-5

const defaultEpsilon = 1.0

func warnPrivacyLeak(param string) {
	log.Warningf("%s has not been specified and will be derived from the data. "+
		"This results in additional privacy leakage. To ensure differential privacy "+
		"with no additional leakage, specify %s explicitly.", param, param)
}

func warnUnsupportedAxis(estimator string) {
	log.Warningf("%s does not support reduction along a specific axis; the axis "+
		"parameter is ignored and the input is treated as flattened.", estimator)
}

// clip returns a copy of a with every element clamped into [lower, upper].
// NaN elements pass through unchanged.
func clip(a []float64, lower, upper float64) []float64 {
	out := make([]float64, len(a))
	for i, e := range a {
		out[i] = math.Max(math.Min(e, upper), lower)
	}
	return out
}

// dataRange returns max(a)-min(a) floored at minDerivedRange. Used when the
// caller did not declare a range.
func dataRange(a []float64) float64 {
	if len(a) == 0 {
		return minDerivedRange
	}
	return math.Max(floats.Max(a)-floats.Min(a), minDerivedRange)
}

// cellRange resolves the declared or derived range of output cell i. ranges
// has already been validated to hold either one broadcast entry or one entry
// per cell.
func cellRange(ranges []float64, i int) float64 {
	if len(ranges) == 1 {
		return ranges[0]
	}
	return ranges[i]
}

func hasNaN(a []float64) bool {
	for _, e := range a {
		if math.IsNaN(e) {
			return true
		}
	}
	return false
}
