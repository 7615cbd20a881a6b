package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/eugenenazirov/service-calculator/internal/solver"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		residual, target, tolerance float64
		want                        Quality
	}{
		{residual: 0, target: 100, tolerance: 0.01, want: QualityPerfect},
		{residual: 0.004, target: 100, tolerance: 0.01, want: QualityPerfect},
		{residual: 1, target: 100, tolerance: 0.01, want: QualityClose},
		{residual: 1.5, target: 100, tolerance: 0.01, want: QualityOff},
		{residual: 4, target: 100, tolerance: 0.05, want: QualityClose},
	}
	for _, tc := range tests {
		if got := Classify(tc.residual, tc.target, tc.tolerance); got != tc.want {
			t.Fatalf("Classify(%v, %v, %v) = %s, want %s", tc.residual, tc.target, tc.tolerance, got, tc.want)
		}
	}
}

func TestMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{in: 173, want: "173.00"},
		{in: 0.68, want: "0.68"},
		{in: 2.675, want: "2.68"},
		{in: -3.5, want: "-3.50"},
		{in: 0.1 + 0.2, want: "0.30"},
	}
	for _, tc := range tests {
		if got := Money(tc.in); got != tc.want {
			t.Fatalf("Money(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	t.Parallel()

	if got := Percent(1, 173); got != "0.58%" {
		t.Fatalf("expected 0.58%%, got %s", got)
	}
	if got := Percent(1, 0); got != "0.00%" {
		t.Fatalf("expected 0.00%% for a zero whole, got %s", got)
	}
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestRenderAllocate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, Summary{
		Project:  "Demo",
		Mode:     solver.ModeAllocate,
		Strategy: solver.StrategyExact,
		Target:   65,
		Achieved: 65,
		Lines: []Line{
			{Name: "A", Price: 10, Quantity: 2},
			{Name: "B", Price: 15, Quantity: 0},
			{Name: "C", Price: 15, Quantity: 3},
		},
		Tolerance: 0.01,
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()
	assertContains(t, out,
		"Demo",
		"A          2 x 10.00 = 20.00",
		"C          3 x 15.00 = 45.00",
		"Total: 5 services, 65.00",
		"Perfect match.",
	)
	if strings.Contains(out, "B ") {
		t.Fatalf("services with no units must be omitted:\n%s", out)
	}
}

func TestRenderReduce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, Summary{
		Mode:          solver.ModeReduce,
		Strategy:      solver.StrategyGreedyRefine,
		Target:        25,
		Achieved:      20,
		Residual:      5,
		OriginalTotal: 50,
		FinalTotal:    30,
		Lines: []Line{
			{Name: "A", Price: 10, Before: 5, Quantity: 3, Reduction: 2},
			{Name: "Z", Price: 3, Before: 0, Quantity: 0},
		},
		Tolerance: 0.05,
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()
	assertContains(t, out,
		"Original total:   50.00",
		"Remaining total:  30.00",
		"A          5 -> 3",
		"Units removed: 2",
		"Difference: 5.00 (20.00%)",
		"Noticeable deviation.",
	)
	if strings.Contains(out, "Z ") {
		t.Fatalf("services that were not held must be omitted:\n%s", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRenderPropagatesWriteErrors(t *testing.T) {
	t.Parallel()

	if err := Render(failingWriter{}, Summary{Target: 1}); err == nil {
		t.Fatalf("expected write error to be returned")
	}
}
