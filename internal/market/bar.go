package market

import (
	"fmt"
	"strings"
	"time"
)

// Bar is a named bar width with each provider's native interval token.
type Bar struct {
	Name     string        `json:"name"`     // canonical name, e.g. "4H"
	Duration time.Duration `json:"duration"` // width of one bar
	OKX      string        `json:"-"`        // OKX bar parameter
	Binance  string        `json:"-"`        // Binance interval parameter
	Bybit    string        `json:"-"`        // Bybit v5 interval parameter
}

var (
	Bar1H  = Bar{Name: "1H", Duration: time.Hour, OKX: "1H", Binance: "1h", Bybit: "60"}
	Bar2H  = Bar{Name: "2H", Duration: 2 * time.Hour, OKX: "2H", Binance: "2h", Bybit: "120"}
	Bar4H  = Bar{Name: "4H", Duration: 4 * time.Hour, OKX: "4H", Binance: "4h", Bybit: "240"}
	Bar6H  = Bar{Name: "6H", Duration: 6 * time.Hour, OKX: "6H", Binance: "6h", Bybit: "360"}
	Bar12H = Bar{Name: "12H", Duration: 12 * time.Hour, OKX: "12H", Binance: "12h", Bybit: "720"}
	Bar1D  = Bar{Name: "1D", Duration: 24 * time.Hour, OKX: "1D", Binance: "1d", Bybit: "D"}
)

var validBars = map[string]Bar{
	Bar1H.Name:  Bar1H,
	Bar2H.Name:  Bar2H,
	Bar4H.Name:  Bar4H,
	Bar6H.Name:  Bar6H,
	Bar12H.Name: Bar12H,
	Bar1D.Name:  Bar1D,
}

// ParseBar parses a bar name such as "4H" or "1d" (case-insensitive).
func ParseBar(s string) (Bar, error) {
	bar, ok := validBars[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return Bar{}, fmt.Errorf("invalid bar: %q", s)
	}
	return bar, nil
}

// FileSuffix is the lower-case name used in artifact names, e.g. "4h".
func (b Bar) FileSuffix() string {
	return strings.ToLower(b.Name)
}

func (b Bar) String() string {
	return b.Name
}
