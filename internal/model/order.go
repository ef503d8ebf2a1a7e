package model

import "time"

// ExitDuration is the linear unwind window applied to a resting order's
// filled exposure after the order itself expires. The exchange-side
// remainder is canceled at expiry, but exposure already acquired is
// released gradually to avoid flattening it in one round trip.
const ExitDuration = time.Hour

// Order represents one resting maker order tracked by the engine.
// Price 0 marks a taker-style reconciliation order: its price is chosen
// from the book at submission and it carries no decayed exposure.
type Order struct {
	ID              string // internal id, assigned at creation
	CreatedAt       time.Time
	Symbol          string // internal instrument symbol, e.g. "BTC"
	Price           float64
	Amount          float64 // non-negative magnitude
	IsBuy           bool
	ReduceOnly      bool
	Duration        time.Duration // active window before decay begins
	ExecutedAmount  float64       // cumulative fill, exchange-reported
	ExchangeOrderID string        // "" until submitted
}

// SideInt returns +1 for buys and -1 for sells.
func (o *Order) SideInt() float64 {
	if o.IsBuy {
		return 1
	}
	return -1
}

// ExpireAt returns the instant the order's active window ends.
func (o *Order) ExpireAt() time.Time {
	return o.CreatedAt.Add(o.Duration)
}

// Expired reports whether the active window has passed. An expired order
// still open on the exchange should be canceled; its filled exposure
// keeps decaying independently.
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpireAt())
}

// EffectiveAmount returns the order's current exposure credit:
// full executed amount while active, then a linear ramp down to zero
// over ExitDuration, then zero. Taker-style orders always return 0.
func (o *Order) EffectiveAmount(now time.Time) float64 {
	if o.Price == 0 {
		return 0
	}
	expireAt := o.ExpireAt()
	if !now.After(expireAt) {
		return o.ExecutedAmount
	}
	exitAt := expireAt.Add(ExitDuration)
	if now.After(exitAt) {
		return 0
	}
	return o.ExecutedAmount * exitAt.Sub(now).Seconds() / ExitDuration.Seconds()
}

// SignedEffective is EffectiveAmount signed by order direction: the
// order's current contribution to the instrument's target position.
func (o *Order) SignedEffective(now time.Time) float64 {
	return o.SideInt() * o.EffectiveAmount(now)
}
