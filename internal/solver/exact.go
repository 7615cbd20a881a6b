package solver

import "math"

// candidate summarises a complete assignment for ranking.
type candidate struct {
	residual float64
	value    float64
	units    int
}

// betterThan orders by smaller residual, then larger value, then fewer units.
func (c candidate) betterThan(o candidate) bool {
	if c.residual < o.residual-epsilon {
		return true
	}
	if c.residual > o.residual+epsilon {
		return false
	}
	if c.value > o.value+epsilon {
		return true
	}
	if c.value < o.value-epsilon {
		return false
	}
	return c.units < o.units
}

type exactSearch struct {
	lanes   []lane
	top     []int
	minRest []float64
	maxRest []float64
	target  float64

	current   []int
	found     bool
	best      candidate
	bestUnits []int

	budget    int
	exhausted bool
}

// exact returns the best assignment and whether the search completed within
// the node budget.
func (e *engine) exact(lanes []lane, target float64) ([]int, bool) {
	n := len(lanes)
	if n == 0 {
		return nil, true
	}

	span := e.searchSpan(lanes, target)
	// high >= low for every lane, so high-low cannot overflow and
	// low+span stays below high when it is taken.
	top := make([]int, n)
	for k, l := range lanes {
		top[k] = l.high
		if l.high-l.low > span {
			top[k] = l.low + span
		}
	}

	// minRest[k] and maxRest[k] bound what lanes k.. can still add.
	minRest := make([]float64, n+1)
	maxRest := make([]float64, n+1)
	for k := n - 1; k >= 0; k-- {
		minRest[k] = minRest[k+1] + lanes[k].price*float64(lanes[k].low)
		maxRest[k] = maxRest[k+1] + lanes[k].price*float64(top[k])
	}

	s := &exactSearch{
		lanes:   lanes,
		top:     top,
		minRest: minRest,
		maxRest: maxRest,
		target:  target,
		current: make([]int, n),
		best:    candidate{residual: math.Inf(1)},
		budget:  e.nodeBudget,
	}
	s.walk(0, 0, 0)

	if s.exhausted {
		return nil, false
	}
	return s.bestUnits, true
}

// searchSpan is min(maxAdditional, floor(target/min price) + searchMargin).
func (e *engine) searchSpan(lanes []lane, target float64) int {
	minPrice := lanes[0].price
	for _, l := range lanes[1:] {
		if l.price < minPrice {
			minPrice = l.price
		}
	}

	q := math.Floor(target/minPrice + epsilon)
	if q >= float64(e.maxAdditional) {
		return e.maxAdditional
	}
	span := int(q) + e.searchMargin
	if span > e.maxAdditional {
		return e.maxAdditional
	}
	return span
}

func (s *exactSearch) walk(depth int, value float64, units int) {
	s.budget--
	if s.budget < 0 {
		s.exhausted = true
		return
	}

	if depth == len(s.lanes) {
		c := candidate{
			residual: math.Abs(value - s.target),
			value:    value,
			units:    units,
		}
		if !s.found || c.betterThan(s.best) {
			s.found = true
			s.best = c
			s.bestUnits = append(s.bestUnits[:0], s.current...)
		}
		return
	}

	l := s.lanes[depth]
	// Counting steps keeps the loop finite when top is math.MaxInt.
	steps := s.top[depth] - l.low
	for step := 0; step <= steps && !s.exhausted; step++ {
		q := l.low + step
		v := value + l.price*float64(q)

		// Every completion overshoots by more than the best residual, and
		// raising q only makes it worse.
		if v+s.minRest[depth+1]-s.target > s.best.residual+epsilon {
			break
		}
		// Every completion falls short by more than the best residual.
		if s.target-(v+s.maxRest[depth+1]) > s.best.residual+epsilon {
			continue
		}

		s.current[depth] = q
		s.walk(depth+1, v, units+q)
	}
}
