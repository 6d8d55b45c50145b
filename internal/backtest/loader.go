package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

const apiPageSize = 1000

// KlineFetcher is the subset of the exchange adapter contract the
// Backtester needs to pull historical candles page by page.
type KlineFetcher interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]types.Candle, error)
}

// CSVLoader reads historical candles from CSV files, caching parsed
// results per file path so repeated backtests over the same dataset
// avoid re-parsing.
type CSVLoader struct {
	mu    sync.RWMutex
	cache map[string][]types.Candle
}

func NewCSVLoader() *CSVLoader {
	return &CSVLoader{cache: make(map[string][]types.Candle)}
}

// Load reads rows of (ms-open-time, O, H, L, C, V, ms-close-time) from
// path, sorted by open-time ascending.
func (l *CSVLoader) Load(path string) ([]types.Candle, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	candles, err := l.loadFromFile(path)
	if err != nil {
		return nil, err
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })

	l.mu.Lock()
	l.cache[path] = candles
	l.mu.Unlock()
	return candles, nil
}

func (l *CSVLoader) loadFromFile(path string) ([]types.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var out []types.Candle
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", line, err)
		}
		line++

		if len(record) < 7 {
			continue
		}
		c, ok := parseCandleRow(record)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandleRow(record []string) (types.Candle, bool) {
	openTime, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return types.Candle{}, false
	}
	open, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return types.Candle{}, false
	}
	high, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return types.Candle{}, false
	}
	low, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return types.Candle{}, false
	}
	closePrice, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return types.Candle{}, false
	}
	volume, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return types.Candle{}, false
	}
	closeTime, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		closeTime = openTime
	}
	if open <= 0 || high <= 0 || low <= 0 || closePrice <= 0 {
		return types.Candle{}, false
	}
	return types.Candle{
		OpenTime: openTime, CloseTime: closeTime,
		Open: open, High: high, Low: low, Close: closePrice, Volume: volume,
	}, true
}

// LoadFromAPI pages through fetcher in apiPageSize-candle chunks from
// startMs until endMs (inclusive), pausing briefly between pages to
// cooperate with the adapter's rate limit.
func LoadFromAPI(ctx context.Context, fetcher KlineFetcher, symbol, interval string, startMs, endMs int64) ([]types.Candle, error) {
	var all []types.Candle
	cursor := startMs

	for cursor <= endMs {
		page, err := fetcher.GetKlines(ctx, symbol, interval, apiPageSize, cursor, endMs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines from %d: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		last := page[len(page)-1].OpenTime
		if last <= cursor {
			break
		}
		cursor = last + 1

		if len(page) < apiPageSize {
			break
		}

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].OpenTime < all[j].OpenTime })
	return all, nil
}

// ParseBacktestTimestamp accepts "YYYY-MM-DD", "DD/MM/YYYY" or
// "YYYY-MM-DD HH:MM:SS".
func ParseBacktestTimestamp(s string) (time.Time, error) {
	formats := []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
