package solver

import (
	"fmt"
	"strings"
)

// Mode selects how bounds and the target are interpreted.
type Mode int

const (
	// ModeAllocate assigns quantities upward toward a target total.
	ModeAllocate Mode = iota
	// ModeReduce removes quantity from current holdings to shrink the total by the target.
	ModeReduce
)

func (m Mode) String() string {
	switch m {
	case ModeAllocate:
		return "allocate"
	case ModeReduce:
		return "reduce"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a textual mode name into a Mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "allocate":
		return ModeAllocate, nil
	case "reduce":
		return ModeReduce, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// Strategy selects the search algorithm.
type Strategy int

const (
	// StrategyExact enumerates every assignment inside a capped per-item range.
	StrategyExact Strategy = iota
	// StrategyGreedyRefine consumes the largest prices first and adjusts with the cheapest item.
	StrategyGreedyRefine
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyGreedyRefine:
		return "greedy_refine"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy converts a textual strategy name into a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "exact":
		return StrategyExact, nil
	case "greedy", "greedy_refine", "greedy-refine":
		return StrategyGreedyRefine, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
}

// TiePolicy decides between refinement candidates with equal residuals.
type TiePolicy int

const (
	// PreferUndershoot keeps the smaller quantity when residuals tie.
	PreferUndershoot TiePolicy = iota
	// PreferOvershoot takes the larger quantity when residuals tie.
	PreferOvershoot
)

func (p TiePolicy) String() string {
	if p == PreferOvershoot {
		return "overshoot"
	}
	return "undershoot"
}

// ParseTiePolicy converts "undershoot" or "overshoot" into a TiePolicy.
func ParseTiePolicy(raw string) (TiePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "undershoot":
		return PreferUndershoot, nil
	case "overshoot":
		return PreferOvershoot, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTiePolicy, raw)
	}
}

// Item is a priced catalog line. Bound is the stock ceiling in allocate mode,
// the floor when floor-at-current is enabled, and the current quantity in
// reduce mode.
type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Bound int     `json:"bound"`
}

// Request describes a single solve invocation.
type Request struct {
	Items    []Item   `json:"items"`
	Target   float64  `json:"target"`
	Mode     Mode     `json:"mode"`
	Strategy Strategy `json:"strategy"`
}

// Result is index-aligned with Request.Items.
// In reduce mode Quantities holds the remaining quantity after reduction and
// Reductions the amount removed; in allocate mode Reductions is all zeros.
type Result struct {
	Quantities []int    `json:"quantities"`
	Reductions []int    `json:"reductions"`
	Achieved   float64  `json:"achieved"`
	Residual   float64  `json:"residual"`
	Strategy   Strategy `json:"strategy"`
}

// Solver computes quantity adjustments for a request.
type Solver interface {
	Solve(req Request) (Result, error)
}
