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
)

// Laplace is the classic pure-ε mechanism: it releases value + Y where Y is
// drawn from a zero-mean Laplace distribution with scale sensitivity/ε.
type Laplace struct {
	epsilon     float64
	sensitivity float64
	src         *rand.Source
}

// LaplaceOptions contains the options necessary to initialize a Laplace
// mechanism.
type LaplaceOptions struct {
	Epsilon     float64 // Privacy parameter ε. Required, must be strictly positive.
	Delta       float64 // Must be 0: the Laplace mechanism is pure-ε.
	Sensitivity float64 // L1 sensitivity of the query. Must be nonnegative and finite.
	Source      *rand.Source
}

// NewLaplace returns a Laplace mechanism with the given options.
func NewLaplace(opt *LaplaceOptions) (*Laplace, error) {
	if opt == nil {
		opt = &LaplaceOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, fmt.Errorf("NewLaplace: %w", err)
	}
	if err := checks.CheckNoDelta(opt.Delta); err != nil {
		return nil, fmt.Errorf("NewLaplace: %w", err)
	}
	if err := checks.CheckSensitivity(opt.Sensitivity); err != nil {
		return nil, fmt.Errorf("NewLaplace: %w", err)
	}
	return &Laplace{
		epsilon:     opt.Epsilon,
		sensitivity: opt.Sensitivity,
		src:         opt.Source,
	}, nil
}

// Kind returns LaplaceKind.
func (m *Laplace) Kind() Kind {
	return LaplaceKind
}

// Scale returns the noise scale b = sensitivity/ε of the mechanism.
func (m *Laplace) Scale() float64 {
	return m.sensitivity / m.epsilon
}

// Randomise adds calibrated Laplace noise to value. A NaN input propagates to
// a NaN output without consuming entropy.
func (m *Laplace) Randomise(value float64) (float64, error) {
	if math.IsNaN(value) {
		return math.NaN(), nil
	}
	b := m.Scale()
	if b == 0 {
		return value, nil
	}
	return value + laplaceNoise(b, m.src), nil
}

// laplaceNoise draws a zero-mean Laplace sample of the given scale by inverse
// CDF sampling: u is uniform on (-0.5, 0.5] and the sample is
// -b·sign(u)·ln(1-2|u|).
func laplaceNoise(b float64, src *rand.Source) float64 {
	u := src.Uniform() - 0.5
	// Keep u away from the right endpoint where ln(1-2u) diverges.
	u = math.Min(u, 0.5-1e-10)
	return -b * math.Copysign(math.Log1p(-2*math.Abs(u)), u)
}
