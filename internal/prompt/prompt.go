// Package prompt implements the interactive line-oriented front end: a target
// amount per line, plus a few commands to edit the working quantities.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/service-calculator/internal/catalog"
	"github.com/eugenenazirov/service-calculator/internal/planner"
	"github.com/eugenenazirov/service-calculator/internal/report"
	"github.com/eugenenazirov/service-calculator/internal/solver"
	"github.com/eugenenazirov/service-calculator/internal/textinput"
)

const helpText = `Enter a target amount (e.g. 173 or 65,30), or one of:
  list                  show services and current quantities
  set <n> <qty>         set the current quantity of service n
  clear                 reset all quantities to zero
  mode allocate|reduce  switch calculation mode
  strategy auto|exact|greedy
  floor on|off          keep current quantities as a minimum (allocate)
  help                  show this text
  quit                  leave
`

// Session holds the working state of one interactive run.
type Session struct {
	planner   *planner.Planner
	store     catalog.Store
	logger    *zap.Logger
	tolerance float64

	quantities []int
	mode       solver.Mode
	strategy   string
	floor      *bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMode sets the initial calculation mode.
func WithMode(mode solver.Mode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithStrategy sets the initial strategy name (auto, exact or greedy).
func WithStrategy(strategy string) Option {
	return func(s *Session) {
		s.strategy = strategy
	}
}

// WithQuantities seeds the working quantities.
func WithQuantities(quantities []int) Option {
	return func(s *Session) {
		s.quantities = append([]int(nil), quantities...)
	}
}

// WithFloorAtCurrent overrides the planner's floor setting for this session.
func WithFloorAtCurrent(enabled bool) Option {
	return func(s *Session) {
		s.floor = &enabled
	}
}

// WithTolerance sets the relative deviation graded as a close match.
func WithTolerance(tolerance float64) Option {
	return func(s *Session) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// NewSession creates a Session over the given planner and catalog.
func NewSession(p *planner.Planner, store catalog.Store, opts ...Option) *Session {
	s := &Session{
		planner:   p,
		store:     store,
		logger:    zap.NewNop(),
		tolerance: 0.01,
		strategy:  "auto",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quantities returns a copy of the working quantities.
func (s *Session) Quantities() []int {
	return append([]int(nil), s.quantities...)
}

// Run reads commands from in until EOF, quit or ctx cancellation.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, helpText)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := s.handle(ctx, line, out)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// Evaluate processes a single command or target line without the banner.
func (s *Session) Evaluate(ctx context.Context, line string, out io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	_, err := s.handle(ctx, line, out)
	return err
}

func (s *Session) handle(ctx context.Context, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Bye.")
		return true, nil
	case "help", "?":
		fmt.Fprint(out, helpText)
	case "list":
		return false, s.list(ctx, out)
	case "clear":
		for i := range s.quantities {
			s.quantities[i] = 0
		}
		fmt.Fprintln(out, "Quantities cleared.")
	case "set":
		return false, s.set(ctx, fields[1:], out)
	case "mode":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: mode allocate|reduce")
			return false, nil
		}
		mode, err := solver.ParseMode(fields[1])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false, nil
		}
		s.mode = mode
		fmt.Fprintf(out, "Mode: %s\n", mode)
	case "strategy":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: strategy auto|exact|greedy")
			return false, nil
		}
		name := strings.ToLower(fields[1])
		if name != "auto" {
			if _, err := solver.ParseStrategy(name); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				return false, nil
			}
		}
		s.strategy = name
		fmt.Fprintf(out, "Strategy: %s\n", name)
	case "floor":
		if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Fprintln(out, "usage: floor on|off")
			return false, nil
		}
		enabled := fields[1] == "on"
		s.floor = &enabled
		fmt.Fprintf(out, "Floor at current: %s\n", fields[1])
	default:
		return false, s.calculate(ctx, line, out)
	}
	return false, nil
}

func (s *Session) snapshot(ctx context.Context) (catalog.Catalog, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}
	s.fit(len(snap.Services))
	return snap, nil
}

// fit pads or truncates the working quantities to the catalog size.
func (s *Session) fit(n int) {
	if len(s.quantities) == n {
		return
	}
	next := make([]int, n)
	copy(next, s.quantities)
	s.quantities = next
}

func (s *Session) list(ctx context.Context, out io.Writer) error {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s, strategy %s)\n", snap.ProjectName, s.mode, s.strategy)
	total := 0.0
	for i, svc := range snap.Services {
		q := s.quantities[i]
		total += svc.Price * float64(q)
		fmt.Fprintf(out, "%3d. %-10s %8s x %d\n", i+1, svc.Name, report.Money(svc.Price), q)
	}
	fmt.Fprintf(out, "Current total: %s\n", report.Money(total))
	return nil
}

func (s *Session) set(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: set <n> <qty>")
		return nil
	}
	if _, err := s.snapshot(ctx); err != nil {
		return err
	}

	n := textinput.ParseQuantity(args[0])
	if n < 1 || n > len(s.quantities) {
		fmt.Fprintf(out, "Error: service number must be between 1 and %d\n", len(s.quantities))
		return nil
	}
	s.quantities[n-1] = textinput.ParseQuantity(args[1])
	fmt.Fprintf(out, "Service %d quantity: %d\n", n, s.quantities[n-1])
	return nil
}

func (s *Session) calculate(ctx context.Context, line string, out io.Writer) error {
	target, err := textinput.ParseTarget(line)
	if err != nil {
		fmt.Fprintf(out, "Error: %v. Type help for commands.\n", err)
		return nil
	}

	if _, err := s.snapshot(ctx); err != nil {
		return err
	}

	outcome, err := s.planner.Calculate(ctx, planner.Request{
		Quantities:     s.Quantities(),
		Target:         target,
		Mode:           s.mode,
		Strategy:       s.strategy,
		FloorAtCurrent: s.floor,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.logger.Warn("calculation failed", zap.Error(err))
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil
	}

	return report.Render(out, summarize(outcome, s.tolerance))
}

func summarize(o planner.Outcome, tolerance float64) report.Summary {
	lines := make([]report.Line, len(o.Catalog.Services))
	for i, svc := range o.Catalog.Services {
		lines[i] = report.Line{
			Name:      svc.Name,
			Price:     svc.Price,
			Before:    o.Bounds[i],
			Quantity:  o.Result.Quantities[i],
			Reduction: o.Result.Reductions[i],
		}
	}
	return report.Summary{
		Project:       o.Catalog.ProjectName,
		Mode:          o.Mode,
		Strategy:      o.Strategy,
		Target:        o.Target,
		Achieved:      o.Result.Achieved,
		Residual:      o.Result.Residual,
		OriginalTotal: o.OriginalTotal,
		FinalTotal:    o.FinalTotal,
		Lines:         lines,
		Tolerance:     tolerance,
	}
}
