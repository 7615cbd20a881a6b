package prompt

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/eugenenazirov/service-calculator/internal/catalog"
	"github.com/eugenenazirov/service-calculator/internal/planner"
	"github.com/eugenenazirov/service-calculator/internal/solver"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	store := catalog.NewMemoryStore()
	err := store.Replace(context.Background(), catalog.Catalog{
		ProjectName: "Small",
		Services: []catalog.Item{
			{Name: "A", Price: 10},
			{Name: "B", Price: 15},
			{Name: "Free", Price: 0},
		},
	})
	if err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	return NewSession(planner.New(store), store, opts...)
}

func run(t *testing.T, s *Session, input string) string {
	t.Helper()

	var out bytes.Buffer
	if err := s.Run(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return out.String()
}

func assertOutput(t *testing.T, out string, wants ...string) {
	t.Helper()

	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunCalculatesTargets(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, WithFloorAtCurrent(false))
	s.quantities = []int{5, 5, 0}

	out := run(t, s, "strategy exact\n65\nquit\n")

	assertOutput(t, out, "Strategy: exact", "Small", "Calculated: 65.00", "Perfect match.", "Bye.")
}

func TestRunAcceptsCommaDecimals(t *testing.T) {
	t.Parallel()

	out := run(t, newTestSession(t), "65,00\n")
	assertOutput(t, out, "Target:     65.00")
}

func TestRunReportsInvalidTargetsAndContinues(t *testing.T) {
	t.Parallel()

	out := run(t, newTestSession(t), "banana\n0\n40\n")

	assertOutput(t, out, "not a valid number", "greater than zero", "Target:     40.00")
}

func TestRunEditsQuantities(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	out := run(t, s, "set 2 4\nset 9 1\nset x\nlist\n")

	if got := s.Quantities(); !slices.Equal(got, []int{0, 4, 0}) {
		t.Fatalf("expected quantities [0 4 0], got %v", got)
	}
	assertOutput(t, out, "Service 2 quantity: 4", "between 1 and 3", "usage: set <n> <qty>", "Current total: 60.00")

	run(t, s, "clear\n")
	if got := s.Quantities(); !slices.Equal(got, []int{0, 0, 0}) {
		t.Fatalf("expected clear to zero quantities, got %v", got)
	}
}

func TestRunReduceMode(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, WithQuantities([]int{4, 3, 2}), WithMode(solver.ModeAllocate))
	out := run(t, s, "mode reduce\n25\n")

	assertOutput(t, out, "Mode: reduce", "Original total:   85.00", "Remaining total:  60.00", "Units removed: 2")
}

func TestRunRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	out := run(t, s, "mode sideways\nstrategy fastest\nfloor maybe\n")

	assertOutput(t, out, "unknown solver mode", "unknown solver strategy", "usage: floor on|off")
	if s.mode != solver.ModeAllocate {
		t.Fatalf("expected mode to stay allocate, got %v", s.mode)
	}
	if s.strategy != "auto" {
		t.Fatalf("expected strategy to stay auto, got %q", s.strategy)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := newTestSession(t).Run(ctx, strings.NewReader("40\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEvaluateSingleTarget(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newTestSession(t)
	if err := s.Evaluate(context.Background(), "  40 ", &out); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if strings.Contains(out.String(), "Enter a target amount") {
		t.Fatalf("single evaluation must not prompt, got:\n%s", out.String())
	}
	assertOutput(t, out.String(), "Calculated: 40.00")
}
