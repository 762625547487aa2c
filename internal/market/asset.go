package market

import "strings"

// Asset is one configured instrument.
type Asset struct {
	Coin   string `json:"coin" mapstructure:"coin"`     // e.g. "BTC"
	Symbol string `json:"symbol" mapstructure:"symbol"` // canonical spot symbol, e.g. "BTC-USDT"
}

// SwapSymbol is the OKX perpetual swap instrument, e.g. "BTC-USDT-SWAP".
func SwapSymbol(symbol string) string {
	if strings.HasSuffix(symbol, "-SWAP") {
		return symbol
	}
	return symbol + "-SWAP"
}

// CompactSymbol drops separators, e.g. "BTC-USDT" -> "BTCUSDT".
func CompactSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "")
}

// VendorSymbol maps a USDT pair onto the vendor's USD quote, e.g. "BTC-USDT" -> "BTC-USD".
func VendorSymbol(symbol string) string {
	return strings.Replace(symbol, "-USDT", "-USD", 1)
}

// SpotSymbol builds the canonical symbol for a bare coin, e.g. "BTC" -> "BTC-USDT".
func SpotSymbol(coin string) string {
	if strings.Contains(coin, "-") {
		return coin
	}
	return strings.ToUpper(coin) + "-USDT"
}
