package solver

import (
	"fmt"
	"math"
)

const (
	defaultMaxAdditional = 50
	defaultSearchMargin  = 5
	defaultNodeBudget    = 2_000_000

	// epsilon absorbs float summation noise in every residual comparison.
	epsilon = 1e-9

	unbounded = math.MaxInt
)

type engine struct {
	floorAtCurrent bool
	maxAdditional  int
	searchMargin   int
	nodeBudget     int
	tiePolicy      TiePolicy
}

// Option configures the solver returned by New.
type Option func(*engine)

// WithFloorAtCurrent treats each item's bound as a minimum quantity in allocate mode.
func WithFloorAtCurrent(enabled bool) Option {
	return func(e *engine) {
		e.floorAtCurrent = enabled
	}
}

// WithMaxAdditional caps how many units above its floor the exact search explores per item.
func WithMaxAdditional(n int) Option {
	return func(e *engine) {
		if n >= 0 {
			e.maxAdditional = n
		}
	}
}

// WithSearchMargin sets the slack added to target/min(price) when deriving the exact search range.
func WithSearchMargin(n int) Option {
	return func(e *engine) {
		if n >= 0 {
			e.searchMargin = n
		}
	}
}

// WithNodeBudget caps how many search nodes the exact strategy may visit
// before the solve is handed to greedy refine. Zero or less keeps the default.
func WithNodeBudget(n int) Option {
	return func(e *engine) {
		if n > 0 {
			e.nodeBudget = n
		}
	}
}

// WithTiePolicy selects how refinement candidates with equal residuals are resolved.
func WithTiePolicy(p TiePolicy) Option {
	return func(e *engine) {
		e.tiePolicy = p
	}
}

// New creates a Solver. It holds no state between calls and is safe for concurrent use.
func New(opts ...Option) Solver {
	e := &engine{
		maxAdditional: defaultMaxAdditional,
		searchMargin:  defaultSearchMargin,
		nodeBudget:    defaultNodeBudget,
		tiePolicy:     PreferUndershoot,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) Solve(req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	lanes := e.lanes(req.Items, req.Mode)

	strategy := req.Strategy
	var units []int
	if strategy == StrategyExact {
		var complete bool
		units, complete = e.exact(lanes, req.Target)
		if !complete {
			strategy = StrategyGreedyRefine
		}
	}
	if strategy == StrategyGreedyRefine {
		units = e.greedyRefine(lanes, req.Target)
	}

	res := assemble(req, lanes, units)
	res.Strategy = strategy
	return res, nil
}

// Eligible reports how many items would take part in a solve for the given mode.
func Eligible(items []Item, mode Mode, floorAtCurrent bool) int {
	e := engine{floorAtCurrent: floorAtCurrent}
	return len(e.lanes(items, mode))
}

// lane is an eligible item with its admissible unit range. Units are
// quantities in allocate mode and reductions in reduce mode.
type lane struct {
	index int
	price float64
	low   int
	high  int
}

func (e *engine) lanes(items []Item, mode Mode) []lane {
	out := make([]lane, 0, len(items))
	for i, item := range items {
		if item.Price <= 0 {
			continue
		}
		switch mode {
		case ModeAllocate:
			if e.floorAtCurrent {
				out = append(out, lane{index: i, price: item.Price, low: item.Bound, high: unbounded})
				continue
			}
			if item.Bound > 0 {
				out = append(out, lane{index: i, price: item.Price, low: 0, high: item.Bound})
			}
		case ModeReduce:
			// at least one unit must remain
			if item.Bound >= 2 {
				out = append(out, lane{index: i, price: item.Price, low: 0, high: item.Bound - 1})
			}
		}
	}
	return out
}

func validate(req Request) error {
	if req.Mode != ModeAllocate && req.Mode != ModeReduce {
		return fmt.Errorf("%w: %s", ErrUnknownMode, req.Mode)
	}
	if req.Strategy != StrategyExact && req.Strategy != StrategyGreedyRefine {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, req.Strategy)
	}
	if math.IsNaN(req.Target) || math.IsInf(req.Target, 0) || req.Target <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTarget, req.Target)
	}
	for i, item := range req.Items {
		if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0 {
			return fmt.Errorf("%w: item %d (%s) has price %v", ErrInvalidPrice, i, item.Name, item.Price)
		}
		if item.Bound < 0 {
			return fmt.Errorf("%w: item %d (%s) has bound %d", ErrInvalidBound, i, item.Name, item.Bound)
		}
	}
	return nil
}

// assemble clips every lane to its range and derives totals from the final vector.
func assemble(req Request, lanes []lane, units []int) Result {
	n := len(req.Items)
	res := Result{
		Quantities: make([]int, n),
		Reductions: make([]int, n),
	}
	if req.Mode == ModeReduce {
		for i, item := range req.Items {
			res.Quantities[i] = item.Bound
		}
	}

	for k, l := range lanes {
		u := 0
		if k < len(units) {
			u = units[k]
		}
		u = clamp(u, l.low, l.high)
		switch req.Mode {
		case ModeAllocate:
			res.Quantities[l.index] = u
		case ModeReduce:
			res.Reductions[l.index] = u
			res.Quantities[l.index] = req.Items[l.index].Bound - u
		}
	}

	for i, item := range req.Items {
		if req.Mode == ModeReduce {
			res.Achieved += item.Price * float64(res.Reductions[i])
			continue
		}
		res.Achieved += item.Price * float64(res.Quantities[i])
	}
	res.Residual = math.Abs(res.Achieved - req.Target)

	return res
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
