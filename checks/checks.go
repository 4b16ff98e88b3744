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

// Package checks contains validation for the parameters of differentially
// private mechanisms and estimators. All checks are pure and fail fast: they
// run before any entropy is consumed or budget is spent.
package checks

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// CheckEpsilonStrict returns an error if ε is nonpositive, NaN or +∞.
func CheckEpsilonStrict(epsilon float64) error {
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("Epsilon is %f, must be strictly positive and finite", epsilon)
	}
	return nil
}

// CheckEpsilon returns an error if ε is strictly negative, NaN or +∞.
// Accountants accept zero-cost spends, mechanisms do not.
func CheckEpsilon(epsilon float64) error {
	if epsilon < 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("Epsilon is %f, must be nonnegative and finite", epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is NaN, negative, or greater than or equal to 1.
func CheckDelta(delta float64) error {
	if math.IsNaN(delta) {
		return fmt.Errorf("Delta is %e, cannot be NaN", delta)
	}
	if delta < 0 {
		return fmt.Errorf("Delta is %e, cannot be negative", delta)
	}
	if delta >= 1 {
		return fmt.Errorf("Delta is %e, must be strictly less than 1", delta)
	}
	return nil
}

// CheckNoDelta returns an error if δ is non-zero. Pure-ε mechanisms reject any
// approximate-DP relaxation.
func CheckNoDelta(delta float64) error {
	if delta != 0 {
		return fmt.Errorf("Delta is %e, must be 0", delta)
	}
	return nil
}

// CheckSensitivity returns an error if the sensitivity is negative, NaN or +∞.
func CheckSensitivity(sensitivity float64) error {
	if sensitivity < 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("Sensitivity is %f, must be nonnegative and finite", sensitivity)
	}
	return nil
}

// CheckSensitivityStrict returns an error if the sensitivity is nonpositive,
// NaN or +∞. Selection mechanisms divide by the sensitivity and therefore
// require it to be strictly positive.
func CheckSensitivityStrict(sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("Sensitivity is %f, must be strictly positive and finite", sensitivity)
	}
	return nil
}

// CheckBoundsFloat64 returns an error if lower is NaN, larger than upper, or
// if either bound is infinite.
func CheckBoundsFloat64(lower, upper float64) error {
	if math.IsNaN(lower) {
		return fmt.Errorf("Lower bound cannot be NaN")
	}
	if math.IsNaN(upper) {
		return fmt.Errorf("Upper bound cannot be NaN")
	}
	if math.IsInf(lower, 0) {
		return fmt.Errorf("Lower bound cannot be infinity")
	}
	if math.IsInf(upper, 0) {
		return fmt.Errorf("Upper bound cannot be infinity")
	}
	if lower > upper {
		return fmt.Errorf("Upper bound (%f) must be larger than lower bound (%f)", upper, lower)
	}
	if lower == upper {
		log.Warningf("Lower bound is equal to upper bound: all elements will be clamped to %f", upper)
	}
	return nil
}

// CheckBoundsHalfOpen returns an error if the domain [lower, upper] is not
// usable by the bounded Laplace mechanism: lower must be finite, upper may be
// +∞ (the half-bounded domain used by the variance estimator), and
// lower < upper must hold.
func CheckBoundsHalfOpen(lower, upper float64) error {
	if math.IsNaN(lower) || math.IsInf(lower, 0) {
		return fmt.Errorf("Lower bound is %f, must be finite", lower)
	}
	if math.IsNaN(upper) || math.IsInf(upper, -1) {
		return fmt.Errorf("Upper bound is %f, must be finite or +infinity", upper)
	}
	if lower >= upper {
		return fmt.Errorf("Upper bound (%f) must be strictly larger than lower bound (%f)", upper, lower)
	}
	return nil
}

// CheckRank returns an error if the quantile rank q lies outside [0, 1].
func CheckRank(q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("Quantile rank is %f, must be in [0, 1]", q)
	}
	return nil
}

// CheckRanges returns an error unless every range entry is strictly positive
// and finite, and the number of entries is 1 (broadcast) or matches the number
// of cells of the reduction's output.
func CheckRanges(ranges []float64, cells int) error {
	if len(ranges) != 1 && len(ranges) != cells {
		return fmt.Errorf("Got %d range entries for %d output cells, want 1 or %d", len(ranges), cells, cells)
	}
	for i, r := range ranges {
		if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
			return fmt.Errorf("Range entry %d is %f, must be strictly positive and finite", i, r)
		}
	}
	return nil
}

// CheckMeasure returns an error if the candidate measure has the wrong length
// or contains a negative, NaN or infinite weight.
func CheckMeasure(measure []float64, candidates int) error {
	if len(measure) != candidates {
		return fmt.Errorf("Got %d measure entries for %d candidates, they must be equal", len(measure), candidates)
	}
	for i, m := range measure {
		if m < 0 || math.IsInf(m, 0) || math.IsNaN(m) {
			return fmt.Errorf("Measure entry %d is %f, must be nonnegative and finite", i, m)
		}
	}
	return nil
}
