package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	assert.Equal(t, 0.0, SMA([]float64{1, 2}, 3))
	assert.Equal(t, 2.0, SMA([]float64{1, 2, 3}, 3))
	assert.Equal(t, 4.0, SMA([]float64{1, 2, 3, 4, 5}, 3))
}

func TestEMASeedsOnFirstValue(t *testing.T) {
	v := EMA([]float64{10, 10, 10}, 5)
	assert.Equal(t, 10.0, v)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114}
	assert.Equal(t, 100.0, RSI(closes, 14))
}

func TestRSIInsufficientDataReturnsNeutral(t *testing.T) {
	assert.Equal(t, RSINeutral, RSI([]float64{1, 2, 3}, 14))
}

func TestRSIMonotoneDecreaseIsLow(t *testing.T) {
	closes := make([]float64, 0, 16)
	for i := 0; i < 16; i++ {
		closes = append(closes, 100-float64(i))
	}
	r := RSI(closes, 14)
	assert.Less(t, r, 10.0)
}

func TestLinRegSlopePositiveTrend(t *testing.T) {
	s := LinRegSlope([]float64{1, 2, 3, 4, 5}, 5)
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestLinRegSlopeInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, LinRegSlope([]float64{1, 2}, 5))
}

func TestMACDLineInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, MACDLine([]float64{1, 2}, 3, 5))
}
