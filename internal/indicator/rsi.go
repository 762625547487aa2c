// Package indicator holds technical indicators computed on close series.
package indicator

// NeutralRSI is returned when there is not enough history.
const NeutralRSI = 50.0

// RSI is the Wilder-smoothed relative strength index of closes (oldest first).
// The first average is the simple mean of the first period changes; later changes are
// smoothed with weight 1/period. Fewer than period+1 closes yields NeutralRSI.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return NeutralRSI
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := split(closes[i] - closes[i-1])
		gain += g
		loss += l
	}
	gain /= float64(period)
	loss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		g, l := split(closes[i] - closes[i-1])
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
	}

	switch {
	case loss == 0 && gain == 0:
		return NeutralRSI
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}
