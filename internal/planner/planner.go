// Package planner applies caller-side policy around the solver: catalog
// lookup, strategy selection and result caching.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/service-calculator/internal/cache"
	"github.com/eugenenazirov/service-calculator/internal/catalog"
	"github.com/eugenenazirov/service-calculator/internal/solver"
)

const (
	// EXACT enumerates roughly (max additional)^n assignments, so auto keeps
	// it to small catalogs.
	defaultExactMaxItems = 6
	defaultNodeBudget    = 2_000_000
)

var (
	// ErrInvalidTarget is returned when the target amount is not strictly positive.
	ErrInvalidTarget = errors.New("target must be greater than zero")
	// ErrQuantityMismatch is returned when the quantity list does not line up with the catalog.
	ErrQuantityMismatch = errors.New("quantities must match the number of catalog services")
)

// Policy holds the tunables applied to every calculation.
type Policy struct {
	ExactMaxItems  int
	MaxAdditional  int
	SearchMargin   int
	NodeBudget     int
	TiePolicy      solver.TiePolicy
	FloorAtCurrent bool
}

// DefaultPolicy returns the settings used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		ExactMaxItems:  defaultExactMaxItems,
		MaxAdditional:  50,
		SearchMargin:   5,
		NodeBudget:     defaultNodeBudget,
		TiePolicy:      solver.PreferUndershoot,
		FloorAtCurrent: true,
	}
}

// Request is one calculation against the current catalog.
// Quantities are the current amounts, index-aligned with the catalog.
type Request struct {
	Quantities     []int
	Target         float64
	Mode           solver.Mode
	Strategy       string
	FloorAtCurrent *bool
}

// Outcome is a solved request together with the catalog it was solved against.
type Outcome struct {
	Catalog       catalog.Catalog
	Bounds        []int
	Result        solver.Result
	Mode          solver.Mode
	Strategy      solver.Strategy
	Target        float64
	OriginalTotal float64
	FinalTotal    float64
	Elapsed       time.Duration
	Cached        bool
}

// Planner resolves requests against the catalog and runs the solver.
type Planner struct {
	store  catalog.Store
	cache  cache.Cache
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithCache sets the result cache.
func WithCache(c cache.Cache) Option {
	return func(p *Planner) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithPolicy overrides the default policy.
func WithPolicy(policy Policy) Option {
	return func(p *Planner) {
		p.policy = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used for elapsed measurements.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Planner reading services from store.
func New(store catalog.Store, opts ...Option) *Planner {
	p := &Planner{
		store:  store,
		cache:  cache.Noop{},
		policy: DefaultPolicy(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the active policy.
func (p *Planner) Policy() Policy {
	return p.policy
}

type cacheInput struct {
	Request        solver.Request `json:"request"`
	FloorAtCurrent bool           `json:"floor_at_current"`
	MaxAdditional  int            `json:"max_additional"`
	SearchMargin   int            `json:"search_margin"`
	NodeBudget     int            `json:"node_budget"`
	TiePolicy      string         `json:"tie_policy"`
}

// Calculate solves req against a snapshot of the catalog.
func (p *Planner) Calculate(ctx context.Context, req Request) (Outcome, error) {
	if !(req.Target > 0) {
		return Outcome{}, ErrInvalidTarget
	}

	snapshot, err := p.store.Snapshot(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("read catalog: %w", err)
	}
	if len(req.Quantities) != len(snapshot.Services) {
		return Outcome{}, fmt.Errorf("%w: got %d, want %d", ErrQuantityMismatch, len(req.Quantities), len(snapshot.Services))
	}

	floor := p.policy.FloorAtCurrent
	if req.FloorAtCurrent != nil {
		floor = *req.FloorAtCurrent
	}

	items := make([]solver.Item, len(snapshot.Services))
	bounds := make([]int, len(snapshot.Services))
	original := 0.0
	for i, svc := range snapshot.Services {
		q := req.Quantities[i]
		if q < 0 {
			q = 0
		}
		bounds[i] = q
		items[i] = solver.Item{Name: svc.Name, Price: svc.Price, Bound: q}
		original += svc.Price * float64(q)
	}

	strategy, err := p.resolveStrategy(req.Strategy, items, req.Mode, floor)
	if err != nil {
		return Outcome{}, err
	}

	solveReq := solver.Request{Items: items, Target: req.Target, Mode: req.Mode, Strategy: strategy}
	start := p.now()

	key, keyErr := cache.Key(cacheInput{
		Request:        solveReq,
		FloorAtCurrent: floor,
		MaxAdditional:  p.policy.MaxAdditional,
		SearchMargin:   p.policy.SearchMargin,
		NodeBudget:     p.policy.NodeBudget,
		TiePolicy:      p.policy.TiePolicy.String(),
	})
	if keyErr != nil {
		p.logger.Warn("failed to derive cache key", zap.Error(keyErr))
	}

	outcome := Outcome{
		Catalog:       snapshot,
		Bounds:        bounds,
		Mode:          req.Mode,
		Strategy:      strategy,
		Target:        req.Target,
		OriginalTotal: original,
	}

	if keyErr == nil {
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.logger.Warn("cache lookup failed", zap.Error(err))
		case ok && len(cached.Quantities) == len(items):
			outcome.Result = cached
			outcome.Cached = true
		}
	}

	if !outcome.Cached {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		result, err := p.newSolver(floor).Solve(solveReq)
		if err != nil {
			return Outcome{}, err
		}
		if result.Strategy != strategy {
			p.logger.Warn("exact search exceeded its node budget, used greedy refine",
				zap.Int("eligible", solver.Eligible(items, req.Mode, floor)),
				zap.Int("node_budget", p.policy.NodeBudget),
			)
		}
		outcome.Result = result
		if keyErr == nil {
			if err := p.cache.Set(ctx, key, result); err != nil {
				p.logger.Warn("cache store failed", zap.Error(err))
			}
		}
	}

	outcome.Strategy = outcome.Result.Strategy
	outcome.Elapsed = p.now().Sub(start)
	if req.Mode == solver.ModeReduce {
		outcome.FinalTotal = original - outcome.Result.Achieved
	} else {
		outcome.FinalTotal = outcome.Result.Achieved
	}

	p.logger.Debug("calculation finished",
		zap.String("mode", req.Mode.String()),
		zap.String("strategy", outcome.Strategy.String()),
		zap.Float64("target", req.Target),
		zap.Float64("achieved", outcome.Result.Achieved),
		zap.Float64("residual", outcome.Result.Residual),
		zap.Bool("cached", outcome.Cached),
		zap.Duration("elapsed", outcome.Elapsed),
	)

	return outcome, nil
}

func (p *Planner) resolveStrategy(raw string, items []solver.Item, mode solver.Mode, floor bool) (solver.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		if solver.Eligible(items, mode, floor) <= p.policy.ExactMaxItems {
			return solver.StrategyExact, nil
		}
		return solver.StrategyGreedyRefine, nil
	default:
		return solver.ParseStrategy(raw)
	}
}

func (p *Planner) newSolver(floor bool) solver.Solver {
	return solver.New(
		solver.WithFloorAtCurrent(floor),
		solver.WithMaxAdditional(p.policy.MaxAdditional),
		solver.WithSearchMargin(p.policy.SearchMargin),
		solver.WithNodeBudget(p.policy.NodeBudget),
		solver.WithTiePolicy(p.policy.TiePolicy),
	)
}
