// Package textinput normalises free-text numbers typed by operators before
// they reach the solver. Amounts may use either a period or a comma as the
// decimal marker; quantities are clamped rather than rejected.
package textinput

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNumber is returned when text cannot be read as a finite number.
	ErrInvalidNumber = errors.New("not a valid number")
	// ErrNonPositive is returned when a target is zero or negative.
	ErrNonPositive = errors.New("value must be greater than zero")
)

// ParseAmount reads a decimal amount such as "12.50", "12,50" or " 7 ".
func ParseAmount(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidNumber)
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	return v, nil
}

// ParseTarget reads an amount that must be strictly positive.
func ParseTarget(text string) (float64, error) {
	v, err := ParseAmount(text)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNonPositive, text)
	}
	return v, nil
}

// ParseQuantity reads a unit count. Blank, "null", unparsable and negative
// input all become 0.
func ParseQuantity(text string) int {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" || s == "null" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParsePrice reads a unit price, falling back to lastGood when the text is
// unparsable or negative.
func ParsePrice(text string, lastGood float64) float64 {
	v, err := ParseAmount(text)
	if err != nil || v < 0 {
		return lastGood
	}
	return v
}

// ParseQuantityList splits a comma, semicolon or whitespace separated list of
// quantities.
func ParseQuantityList(text string) []int {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]int, len(fields))
	for i, f := range fields {
		out[i] = ParseQuantity(f)
	}
	return out
}
