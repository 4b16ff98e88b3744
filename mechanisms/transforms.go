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
)

// PostTransformer is the capability interface of budget-free output
// transforms. A PostTransform must be a pure function of the mechanism's
// output: by the post-processing closure of differential privacy it keeps the
// privacy guarantee of the mechanism it is applied to, at no extra budget.
type PostTransformer interface {
	PostTransform(value float64) float64
}

// RoundedInteger wraps a numeric mechanism and rounds its output to the
// nearest integer.
type RoundedInteger struct {
	Mechanism Randomiser
}

// PostTransform rounds value to the nearest integer, rounding half away from
// zero.
func (RoundedInteger) PostTransform(value float64) float64 {
	return math.Round(value)
}

// Randomise invokes the wrapped mechanism and rounds its output.
func (t RoundedInteger) Randomise(value float64) (float64, error) {
	if t.Mechanism == nil {
		return 0, fmt.Errorf("RoundedInteger: no mechanism to transform")
	}
	out, err := t.Mechanism.Randomise(value)
	if err != nil {
		return 0, err
	}
	return t.PostTransform(out), nil
}
