package solver

import "errors"

var (
	// ErrInvalidTarget is returned when the target is not a positive finite number.
	ErrInvalidTarget = errors.New("target must be a positive number")
	// ErrInvalidPrice is returned when an item carries a negative or non-finite price.
	ErrInvalidPrice = errors.New("item price must be a non-negative finite number")
	// ErrInvalidBound is returned when an item carries a negative bound.
	ErrInvalidBound = errors.New("item bound must be a non-negative integer")
	// ErrUnknownMode is returned for modes other than allocate and reduce.
	ErrUnknownMode = errors.New("unknown solver mode")
	// ErrUnknownStrategy is returned for strategies other than exact and greedy refine.
	ErrUnknownStrategy = errors.New("unknown solver strategy")
	// ErrUnknownTiePolicy is returned when a tie policy name cannot be parsed.
	ErrUnknownTiePolicy = errors.New("unknown tie policy")
)
