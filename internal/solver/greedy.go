package solver

import (
	"math"
	"sort"
)

// greedyRefine consumes the target with the most expensive lanes first, then
// adjusts the leftover with the cheapest lane. Like change-making with
// arbitrary denominations it is not guaranteed optimal.
func (e *engine) greedyRefine(lanes []lane, target float64) []int {
	units := make([]int, len(lanes))
	if len(lanes) == 0 {
		return units
	}

	order := make([]int, len(lanes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lanes[order[a]].price > lanes[order[b]].price
	})

	remaining := target
	for k, l := range lanes {
		units[k] = l.low
		remaining -= l.price * float64(l.low)
	}

	for _, k := range order[:len(order)-1] {
		if remaining <= epsilon {
			break
		}
		l := lanes[k]
		take := fit(remaining, l.price, l.high-units[k])
		if take == 0 {
			continue
		}
		units[k] += take
		remaining -= l.price * float64(take)
	}

	if remaining > epsilon {
		k := order[len(order)-1]
		l := lanes[k]
		headroom := l.high - units[k]
		floorQty := fit(remaining, l.price, headroom)
		ceilQty := floorQty
		if floorQty < headroom {
			ceilQty++
		}
		units[k] += e.pick(remaining, l.price, []int{0, floorQty, ceilQty})
	}

	return units
}

// fit returns floor(remaining/price) limited to headroom.
func fit(remaining, price float64, headroom int) int {
	if headroom <= 0 || remaining <= 0 {
		return 0
	}
	q := math.Floor(remaining/price + epsilon)
	if q >= float64(headroom) {
		return headroom
	}
	return int(q)
}

// pick chooses among ascending quantity options the one whose cost lands
// closest to remaining. Ties go to the smaller option unless the solver
// prefers overshoot.
func (e *engine) pick(remaining, price float64, options []int) int {
	best := options[0]
	bestResidual := math.Abs(remaining - price*float64(best))
	for _, q := range options[1:] {
		r := math.Abs(remaining - price*float64(q))
		switch {
		case r < bestResidual-epsilon:
		case e.tiePolicy == PreferOvershoot && q > best && r <= bestResidual+epsilon:
		default:
			continue
		}
		best, bestResidual = q, r
	}
	return best
}
