// Package report renders calculation outcomes for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/service-calculator/internal/solver"
)

// perfectThreshold is the largest residual still shown as an exact hit (half a cent).
const perfectThreshold = 0.005

// Quality grades how close an outcome came to its target.
type Quality string

const (
	QualityPerfect Quality = "perfect"
	QualityClose   Quality = "close"
	QualityOff     Quality = "off"
)

// Classify grades residual against target; tolerance is a fraction of the target.
func Classify(residual, target, tolerance float64) Quality {
	switch {
	case residual <= perfectThreshold:
		return QualityPerfect
	case target > 0 && residual <= target*tolerance:
		return QualityClose
	default:
		return QualityOff
	}
}

// Money formats an amount with exactly two decimals, rounding half away from zero.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent formats part/whole as a percentage with two decimals.
func Percent(part, whole float64) string {
	if whole == 0 {
		return "0.00%"
	}
	return decimal.NewFromFloat(part).Div(decimal.NewFromFloat(whole)).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// Line is one catalog row of a rendered outcome.
type Line struct {
	Name      string
	Price     float64
	Before    int
	Quantity  int
	Reduction int
}

// Summary is everything Render needs.
type Summary struct {
	Project       string
	Mode          solver.Mode
	Strategy      solver.Strategy
	Target        float64
	Achieved      float64
	Residual      float64
	OriginalTotal float64
	FinalTotal    float64
	Lines         []Line
	Tolerance     float64
}

// Render writes a plain-text report.
func Render(w io.Writer, s Summary) error {
	var b strings.Builder

	if s.Project != "" {
		fmt.Fprintf(&b, "%s\n", s.Project)
	}
	b.WriteString(strings.Repeat("=", 50) + "\n")

	switch s.Mode {
	case solver.ModeReduce:
		fmt.Fprintf(&b, "Original total:   %s\n", Money(s.OriginalTotal))
		fmt.Fprintf(&b, "Target reduction: %s\n", Money(s.Target))
		fmt.Fprintf(&b, "Reduced by:       %s\n", Money(s.Achieved))
		fmt.Fprintf(&b, "Remaining total:  %s\n", Money(s.FinalTotal))
	default:
		fmt.Fprintf(&b, "Target:     %s\n", Money(s.Target))
		fmt.Fprintf(&b, "Calculated: %s\n", Money(s.Achieved))
	}
	fmt.Fprintf(&b, "Difference: %s (%s)\n", Money(s.Residual), Percent(s.Residual, s.Target))
	fmt.Fprintf(&b, "Strategy:   %s\n\n", s.Strategy)

	units := 0
	switch s.Mode {
	case solver.ModeReduce:
		b.WriteString("Changes:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, line := range s.Lines {
			if line.Before == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %-10s %d -> %d\n", line.Name, line.Before, line.Quantity)
			units += line.Reduction
		}
		fmt.Fprintf(&b, "\nUnits removed: %d\n", units)
	default:
		b.WriteString("Combination:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, line := range s.Lines {
			if line.Quantity == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %-10s %d x %s = %s\n", line.Name, line.Quantity, Money(line.Price), Money(line.Price*float64(line.Quantity)))
			units += line.Quantity
		}
		fmt.Fprintf(&b, "\nTotal: %d services, %s\n", units, Money(s.Achieved))
	}

	switch Classify(s.Residual, s.Target, s.Tolerance) {
	case QualityPerfect:
		b.WriteString("Perfect match.\n")
	case QualityClose:
		b.WriteString("Close match.\n")
	default:
		b.WriteString("Noticeable deviation.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
