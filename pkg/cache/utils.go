package cache

import (
	"fmt"
	"strings"
)

// GenerateKeyWithParams joins a prefix and parameters with ":".
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		fmt.Fprintf(&b, ":%v", param)
	}
	return b.String()
}

// SeriesKey is the key of one cached (exchange, symbol, interval) series.
// Symbols are upper-cased so "aapl" and "AAPL" share an entry.
func SeriesKey(exchange, symbol string, interval fmt.Stringer) string {
	return GenerateKeyWithParams("series", exchange, strings.ToUpper(symbol), interval)
}
