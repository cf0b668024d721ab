package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// FetchError wraps any failure of a one-shot historical-data request:
// network error, non-200 status, or a malformed response body. Callers
// report it and leave previously good state untouched.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("binance fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetKlines fetches up to limit historical candles for (symbol, interval),
// ascending by open time. Any malformed row fails the whole call so callers
// never observe a partially parsed history.
func (c *RESTClient) GetKlines(ctx context.Context, symbol string, interval Interval, limit int) ([]Kline, error) {
	endpoint := fmt.Sprintf(
		"%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		c.baseURL, symbol, interval, limit,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Op: "klines", Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: "klines", Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Op: "klines", Err: fmt.Errorf("binance error: %s", body)}
	}

	var rows []KlineRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &FetchError{Op: "klines", Err: fmt.Errorf("decode response: %w", err)}
	}

	klines, err := ParseKlineRows(rows)
	if err != nil {
		return nil, &FetchError{Op: "klines", Err: err}
	}

	return klines, nil
}

// ParseKlineRows converts REST kline tuples to candles. Row layout:
// [openTime, open, high, low, close, volume, closeTime, ...] with the open
// time as a JSON number and prices/volume as strings.
func ParseKlineRows(rows []KlineRow) ([]Kline, error) {
	klines := make([]Kline, 0, len(rows))

	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: expected at least 6 fields, got %d", i, len(row))
		}

		var openTimeMs int64
		if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
			return nil, fmt.Errorf("kline row %d: open time: %w", i, err)
		}

		fields := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			var s string
			if err := json.Unmarshal(row[j], &s); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			fields[j-1] = f
		}

		klines = append(klines, Kline{
			OpenTime: openTimeMs / 1000,
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   fields[4],
		})
	}

	return klines, nil
}
