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

// Package accountant tracks and enforces cumulative privacy expenditure
// across composed queries.
//
// A BudgetAccountant is a ledger of (ε, δ) spend events with optional caps.
// Estimators validate a prospective spend with Check before running any
// mechanism and record it with Spend only after the mechanism succeeded, so a
// failed query never consumes budget and a rejected query never leaks
// information.
//
// A single accountant must not be used from multiple goroutines concurrently;
// callers requiring concurrency should use one accountant per logical unit of
// work or serialize access externally. Only the process-wide default stack is
// internally synchronized.
package accountant

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/diffstat/diffstat/checks"
)

// ErrBudget is wrapped by every error returned for a spend that would exceed
// the accountant's cap. Match with errors.Is.
var ErrBudget = errors.New("privacy budget exceeded")

// Budget is a privacy cost or cap expressed as an (ε, δ) pair.
type Budget struct {
	Epsilon float64
	Delta   float64
}

// BudgetAccountant is a mutable ledger of privacy spends.
type BudgetAccountant struct {
	epsilon float64 // cap on the composed ε
	delta   float64 // cap on the composed δ
	slack   float64
	spent   []Budget
	parent  *BudgetAccountant
}

// BudgetAccountantOptions contains the options necessary to initialize a
// BudgetAccountant.
type BudgetAccountantOptions struct {
	// Epsilon caps the composed ε of all spends. Zero means unlimited.
	Epsilon float64
	// Delta caps the composed δ of all spends. Zero means unlimited (a cap
	// of 1, which no composed δ can exceed).
	Delta float64
	// Slack is the δ-slack available to advanced composition. Zero selects
	// basic additive composition. Must not exceed the Delta cap.
	Slack float64
	// Parent optionally names an enclosing accountant: every spend recorded
	// here is also charged to the parent and its ancestors.
	Parent *BudgetAccountant
}

// NewBudgetAccountant returns a BudgetAccountant with the given options.
func NewBudgetAccountant(opt *BudgetAccountantOptions) (*BudgetAccountant, error) {
	if opt == nil {
		opt = &BudgetAccountantOptions{}
	}
	epsilon := opt.Epsilon
	if epsilon == 0 {
		epsilon = math.Inf(1)
	}
	if epsilon < 0 || math.IsNaN(epsilon) {
		return nil, fmt.Errorf("NewBudgetAccountant: Epsilon cap is %f, must be nonnegative", opt.Epsilon)
	}
	delta := opt.Delta
	if delta == 0 {
		delta = 1
	}
	if delta < 0 || delta > 1 || math.IsNaN(delta) {
		return nil, fmt.Errorf("NewBudgetAccountant: Delta cap is %e, must be in [0, 1]", opt.Delta)
	}
	if opt.Slack < 0 || opt.Slack > delta || math.IsNaN(opt.Slack) {
		return nil, fmt.Errorf("NewBudgetAccountant: Slack is %e, must be in [0, %e]", opt.Slack, delta)
	}
	return &BudgetAccountant{
		epsilon: epsilon,
		delta:   delta,
		slack:   opt.Slack,
		parent:  opt.Parent,
	}, nil
}

// Cap returns the accountant's budget cap.
func (b *BudgetAccountant) Cap() Budget {
	return Budget{Epsilon: b.epsilon, Delta: b.delta}
}

// Slack returns the δ-slack available to advanced composition.
func (b *BudgetAccountant) Slack() float64 {
	return b.slack
}

// Spends returns a copy of the recorded spend events, in order. Partial spends
// of a scope that later exceeded its budget remain visible for auditing.
func (b *BudgetAccountant) Spends() []Budget {
	out := make([]Budget, len(b.spent))
	copy(out, b.spent)
	return out
}

// Total returns the composed cumulative spend. With zero slack this is the
// basic additive composition; with slack it is the minimum of the naive sum
// and the two advanced composition bounds (Dwork/Rothblum/Vadhan and
// Kairouz/Oh/Viswanath), with δ composed multiplicatively against the slack.
func (b *BudgetAccountant) Total() Budget {
	return compose(b.spent, b.slack)
}

// Check returns an error wrapping ErrBudget if recording a spend of
// (epsilon, delta) would exceed the cap of this accountant or any of its
// ancestors. It never mutates state: Check is pure validation, run before the
// mechanism executes so that a rejected query leaks nothing.
func (b *BudgetAccountant) Check(epsilon, delta float64) error {
	if err := checks.CheckEpsilon(epsilon); err != nil {
		return fmt.Errorf("BudgetAccountant.Check: %w", err)
	}
	if err := checks.CheckDelta(delta); err != nil {
		return fmt.Errorf("BudgetAccountant.Check: %w", err)
	}
	candidate := make([]Budget, len(b.spent), len(b.spent)+1)
	copy(candidate, b.spent)
	candidate = append(candidate, Budget{epsilon, delta})
	composed := compose(candidate, b.slack)
	if composed.Epsilon > b.epsilon || composed.Delta > b.delta {
		return fmt.Errorf("spending (ε=%f, δ=%e) would bring the total to (ε=%f, δ=%e), exceeding the cap (ε=%f, δ=%e): %w",
			epsilon, delta, composed.Epsilon, composed.Delta, b.epsilon, b.delta, ErrBudget)
	}
	if b.parent != nil {
		return b.parent.Check(epsilon, delta)
	}
	return nil
}

// Spend validates and records a spend of (epsilon, delta), charging it to this
// accountant and all of its ancestors. Callers are expected to invoke Spend
// only after the corresponding mechanism produced output.
func (b *BudgetAccountant) Spend(epsilon, delta float64) error {
	if err := b.Check(epsilon, delta); err != nil {
		return err
	}
	b.spent = append(b.spent, Budget{epsilon, delta})
	if b.parent != nil {
		// Check already vetted the whole ancestor chain.
		b.parent.spent = append(b.parent.spent, Budget{epsilon, delta})
		for p := b.parent.parent; p != nil; p = p.parent {
			p.spent = append(p.spent, Budget{epsilon, delta})
		}
	}
	return nil
}

// Remaining returns the budget available to each of k further queries of
// equal cost. Under slack composition the per-query ε is found by bisection,
// since advanced composition is not additive.
func (b *BudgetAccountant) Remaining(k int) (Budget, error) {
	if k < 1 {
		return Budget{}, fmt.Errorf("BudgetAccountant.Remaining: k is %d, must be at least 1", k)
	}
	epsilon := math.Inf(1)
	if !math.IsInf(b.epsilon, 1) {
		lower, upper := 0.0, b.epsilon
		oldIntervalSize := (upper - lower) * 2
		for oldIntervalSize > upper-lower {
			oldIntervalSize = upper - lower
			mid := (upper + lower) / 2

			candidate := make([]Budget, len(b.spent), len(b.spent)+k)
			copy(candidate, b.spent)
			for i := 0; i < k; i++ {
				candidate = append(candidate, Budget{mid, 0})
			}
			if compose(candidate, b.slack).Epsilon >= b.epsilon {
				upper = mid
			} else {
				lower = mid
			}
		}
		epsilon = (upper + lower) / 2
	}

	delta := 1.0
	if b.delta < 1 {
		spentDelta := composeDelta(b.spent, b.slack)
		if spentDelta >= 1 {
			delta = 0
		} else {
			delta = 1 - math.Pow((1-b.delta)/(1-spentDelta), 1/float64(k))
			delta = math.Max(delta, 0)
		}
	}
	return Budget{Epsilon: epsilon, Delta: delta}, nil
}

func compose(spent []Budget, slack float64) Budget {
	var epsSum, epsExpSum, epsSqSum float64
	for _, s := range spent {
		epsSum += s.Epsilon
		epsExpSum += (math.Exp(s.Epsilon) - 1) * s.Epsilon / (math.Exp(s.Epsilon) + 1)
		epsSqSum += s.Epsilon * s.Epsilon
	}
	delta := composeDelta(spent, slack)
	if slack == 0 {
		return Budget{Epsilon: epsSum, Delta: delta}
	}
	epsDRV := epsExpSum + math.Sqrt(2*epsSqSum*math.Log(1/slack))
	epsKOV := epsExpSum + math.Sqrt(2*epsSqSum*math.Log(math.E+math.Sqrt(epsSqSum)/slack))
	return Budget{Epsilon: math.Min(epsSum, math.Min(epsDRV, epsKOV)), Delta: delta}
}

func composeDelta(spent []Budget, slack float64) float64 {
	prod := 1 - slack
	for _, s := range spent {
		prod *= 1 - s.Delta
	}
	return 1 - prod
}

var (
	defaultLock  sync.Mutex
	defaultStack []*BudgetAccountant
)

// Acquire installs b as the process-wide default accountant and returns a
// release function restoring the previous default. Callers should defer the
// release immediately so the previous default is restored on every exit path,
// including errors:
//
//	release := acc.Acquire()
//	defer release()
//
// The release function is idempotent.
func (b *BudgetAccountant) Acquire() (release func()) {
	defaultLock.Lock()
	depth := len(defaultStack)
	defaultStack = append(defaultStack, b)
	defaultLock.Unlock()

	released := false
	return func() {
		defaultLock.Lock()
		defer defaultLock.Unlock()
		if released {
			return
		}
		released = true
		if len(defaultStack) > depth {
			defaultStack = defaultStack[:depth]
		}
	}
}

// LoadDefault resolves the accountant an estimator should charge: the
// explicitly passed one if non-nil, else the innermost acquired default, else
// a lazily created unlimited accountant that is installed as the process
// default for subsequent calls.
func LoadDefault(explicit *BudgetAccountant) *BudgetAccountant {
	if explicit != nil {
		return explicit
	}
	defaultLock.Lock()
	defer defaultLock.Unlock()
	if len(defaultStack) > 0 {
		return defaultStack[len(defaultStack)-1]
	}
	fresh := &BudgetAccountant{epsilon: math.Inf(1), delta: 1}
	defaultStack = append(defaultStack, fresh)
	return fresh
}
