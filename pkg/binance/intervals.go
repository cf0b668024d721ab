package binance

import "fmt"

// Interval is a kline granularity in Binance notation.
type Interval string

const (
	Interval1Min  Interval = "1m"
	Interval5Min  Interval = "5m"
	Interval15Min Interval = "15m"
	Interval1Hour Interval = "1h"
	Interval4Hour Interval = "4h"
	Interval1Day  Interval = "1d"
)

var validIntervals = map[Interval]int{
	Interval1Min:  1,
	Interval5Min:  5,
	Interval15Min: 15,
	Interval1Hour: 60,
	Interval4Hour: 240,
	Interval1Day:  1440,
}

// IsValid checks if the Interval is one of the supported granularities.
func (i Interval) IsValid() bool {
	_, ok := validIntervals[i]
	return ok
}

// Minutes returns the interval length in minutes.
func (i Interval) Minutes() int {
	return validIntervals[i]
}

// ParseInterval parses a string into a supported Interval.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if !interval.IsValid() {
		return "", fmt.Errorf("invalid kline interval: %s", s)
	}
	return interval, nil
}
