package market

import (
	"fmt"
	"math"
)

// Validate checks that prices are positive and volume is finite and non-negative.
// A failure wraps ErrSchema so the record is skipped like any undecodable row.
func (c Candle) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s %v is not a positive price", ErrSchema, f.name, f.v)
		}
	}
	if !nonNegative(c.Volume) {
		return fmt.Errorf("%w: volume %v is not a finite non-negative amount", ErrSchema, c.Volume)
	}
	return nil
}

// Validate rejects NaN and infinite rates. Negative rates are legitimate.
func (f FundingRecord) Validate() error {
	if math.IsNaN(f.Rate) || math.IsInf(f.Rate, 0) {
		return fmt.Errorf("%w: funding rate %v is not finite", ErrSchema, f.Rate)
	}
	return nil
}

func (o OpenInterestRecord) Validate() error {
	if !nonNegative(o.Value) {
		return fmt.Errorf("%w: open interest %v is not a finite non-negative amount", ErrSchema, o.Value)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
