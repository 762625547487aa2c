package bybit

import (
	"strconv"
	"time"

	"candlefuse/internal/market"
)

// ParseKlineList converts Bybit kline rows to candles.
// It safely skips invalid rows; the returned count is the number of rows skipped.
func ParseKlineList(raw [][]string) ([]market.Candle, int) {
	var (
		out     []market.Candle
		skipped int
	)

	for _, row := range raw {
		if len(row) < 6 {
			skipped++
			continue // skip incomplete row
		}

		start, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			skipped++
			continue
		}

		var vals [5]float64
		ok := true
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			skipped++
			continue
		}

		c := market.Candle{
			Timestamp: time.UnixMilli(start).UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		}
		if c.Validate() != nil {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}
