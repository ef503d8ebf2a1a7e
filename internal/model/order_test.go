package model

import (
	"testing"
	"time"
)

func TestOrder_EffectiveAmountDecay(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{
		CreatedAt:      created,
		Symbol:         "BTC",
		Price:          50000,
		Amount:         10,
		IsBuy:          true,
		Duration:       300 * time.Second,
		ExecutedAmount: 10,
	}
	expireAt := created.Add(300 * time.Second)

	if got := o.EffectiveAmount(created); got != 10 {
		t.Errorf("at creation: expected 10, got %v", got)
	}
	if got := o.EffectiveAmount(expireAt); got != 10 {
		t.Errorf("at expiry: expected 10, got %v", got)
	}
	if got := o.EffectiveAmount(expireAt.Add(30 * time.Minute)); got != 5 {
		t.Errorf("halfway through exit: expected 5, got %v", got)
	}
	if got := o.EffectiveAmount(expireAt.Add(time.Hour + time.Second)); got != 0 {
		t.Errorf("after exit window: expected 0, got %v", got)
	}
}

func TestOrder_EffectiveAmountRampsDown(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{
		CreatedAt:      created,
		Price:          100,
		Duration:       300 * time.Second,
		ExecutedAmount: 8,
	}
	expireAt := created.Add(300 * time.Second)

	// Exposure must shrink monotonically after expiry, not grow.
	prev := o.EffectiveAmount(expireAt)
	for _, dt := range []time.Duration{10 * time.Minute, 30 * time.Minute, 50 * time.Minute} {
		got := o.EffectiveAmount(expireAt.Add(dt))
		if got >= prev {
			t.Errorf("at expiry+%v: expected < %v, got %v", dt, prev, got)
		}
		prev = got
	}
}

func TestOrder_TakerStyleHasNoExposure(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{
		CreatedAt:      created,
		Price:          0, // taker-style
		Duration:       300 * time.Second,
		ExecutedAmount: 10,
	}
	if got := o.EffectiveAmount(created.Add(time.Minute)); got != 0 {
		t.Errorf("taker-style order: expected 0 exposure, got %v", got)
	}
}

func TestOrder_Expired(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{CreatedAt: created, Duration: 300 * time.Second}

	if o.Expired(created.Add(300 * time.Second)) {
		t.Error("order should not be expired exactly at expireAt")
	}
	if !o.Expired(created.Add(301 * time.Second)) {
		t.Error("order should be expired after expireAt")
	}
}

func TestOrder_SignedEffective(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sell := Order{
		CreatedAt:      created,
		Price:          100,
		IsBuy:          false,
		Duration:       300 * time.Second,
		ExecutedAmount: 4,
	}
	if got := sell.SignedEffective(created); got != -4 {
		t.Errorf("sell order: expected -4, got %v", got)
	}
}
