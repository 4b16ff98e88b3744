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

// Package mechanisms contains the noise-adding primitives used to achieve
// differential privacy: the Laplace mechanism, its bounded-domain variant and
// the exponential (selection) mechanism, plus budget-free post-processing
// transforms.
//
// A mechanism is an immutable configuration built once by its New* constructor
// from an Options struct. Constructors validate every parameter and fail
// before any entropy is consumed; a successfully constructed mechanism is
// always usable.
//
// Mechanisms are not safe for concurrent use when sharing a seeded Source.
package mechanisms

// Kind tags the supported mechanism variants.
type Kind int

const (
	LaplaceKind Kind = iota
	BoundedLaplaceKind
	ExponentialKind
)

// String returns a human readable name of the mechanism kind.
func (k Kind) String() string {
	switch k {
	case LaplaceKind:
		return "Laplace"
	case BoundedLaplaceKind:
		return "BoundedLaplace"
	case ExponentialKind:
		return "Exponential"
	}
	return "Unknown"
}

// Randomiser is the contract of numeric mechanisms: it perturbs a single real
// value such that the output satisfies the mechanism's privacy guarantee.
type Randomiser interface {
	Randomise(value float64) (float64, error)
}
