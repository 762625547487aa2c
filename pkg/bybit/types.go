package bybit

// KlinesResponse is the result payload of /v5/market/kline.
type KlinesResponse struct {
	Category string     `json:"category"` // e.g., "linear", "spot"
	Symbol   string     `json:"symbol"`   // e.g., "BTCUSDT"
	List     [][]string `json:"list"`     // [start, open, high, low, close, volume, turnover], newest first
}
