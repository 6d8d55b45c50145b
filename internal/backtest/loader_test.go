package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func writeTempCSV(t *testing.T, rows string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	header := "open_time,open,high,low,close,volume,close_time\n"
	require.NoError(t, os.WriteFile(path, []byte(header+rows), 0o644))
	return path
}

func TestCSVLoaderParsesAndSortsRows(t *testing.T) {
	path := writeTempCSV(t, "120000,101,102,100,101,10,179999\n60000,100,101,99,100,5,119999\n")
	l := NewCSVLoader()

	candles, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(60000), candles[0].OpenTime)
	assert.Equal(t, int64(120000), candles[1].OpenTime)
}

func TestCSVLoaderCachesByPath(t *testing.T) {
	path := writeTempCSV(t, "60000,100,101,99,100,5,119999\n")
	l := NewCSVLoader()

	first, err := l.Load(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCSVLoaderSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "60000,100,101,99,100,5,119999\nnotanumber,1,2,3,4,5,6\n120000,-1,2,1,1,5,6\n")
	l := NewCSVLoader()

	candles, err := l.Load(path)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}

type fakeFetcher struct {
	pages [][]types.Candle
	calls int
}

func (f *fakeFetcher) GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]types.Candle, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	p := f.pages[f.calls]
	f.calls++
	return p, nil
}

func TestLoadFromAPIPaginatesUntilShortPage(t *testing.T) {
	full := make([]types.Candle, apiPageSize)
	for i := range full {
		full[i] = types.Candle{OpenTime: int64(i), Close: 1}
	}
	short := []types.Candle{{OpenTime: int64(apiPageSize), Close: 1}}

	f := &fakeFetcher{pages: [][]types.Candle{full, short}}
	candles, err := LoadFromAPI(context.Background(), f, "BTCUSDT", "1m", 0, int64(apiPageSize))
	require.NoError(t, err)
	assert.Equal(t, apiPageSize+1, len(candles))
	assert.Equal(t, 2, f.calls)
}

func TestLoadFromAPIStopsOnEmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: [][]types.Candle{{}}}
	candles, err := LoadFromAPI(context.Background(), f, "BTCUSDT", "1m", 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestParseBacktestTimestampFormats(t *testing.T) {
	cases := []string{"2024-01-15", "15/01/2024", "2024-01-15 10:30:00"}
	for _, c := range cases {
		_, err := ParseBacktestTimestamp(c)
		assert.NoError(t, err, "format %q should parse", c)
	}

	_, err := ParseBacktestTimestamp("garbage")
	assert.Error(t, err)
}
