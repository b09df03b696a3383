package datacube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistic(t *testing.T) {
	vs := []float64{4, 1, 3, 2}
	tests := []struct {
		stat Statistic
		want float64
	}{
		{COUNT, 4},
		{MIN, 1},
		{MAX, 4},
		{MEAN, 2.5},
		{MEDIAN, 2.5},
		{STANDARD_DEVIATION, math.Sqrt(1.25)},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ComputeStatistic(vs, tt.stat, -999), 1e-12, string(tt.stat))
	}
	assert.Equal(t, 3.0, ComputeStatistic([]float64{5, 3, 1}, MEDIAN, -999))
	assert.Equal(t, 0.0, ComputeStatistic(nil, COUNT, -999))
	assert.Equal(t, -999.0, ComputeStatistic(nil, MEAN, -999))
	assert.Equal(t, 0.0, ComputeStatistic([]float64{7}, STANDARD_DEVIATION, -999))
	assert.Equal(t, []float64{4, 1, 3, 2}, vs, "median must not sort in place")
}

func TestComputeBandStats(t *testing.T) {
	st, ok := ComputeBandStats([]float64{-999, 2, 4, math.NaN()}, -999)
	require.True(t, ok)
	assert.Equal(t, BandStats{Min: 2, Max: 4, Mean: 3, StdDev: 1, Valid: 2, Total: 4}, st)
	md := st.Metadata()
	assert.Equal(t, "2", md[MD_STATISTICS_MINIMUM])
	assert.Equal(t, "50.000", md[MD_STATISTICS_VALID])

	_, ok = ComputeBandStats([]float64{-999, -999}, -999)
	assert.False(t, ok)
}

func TestComputeDerived(t *testing.T) {
	in := map[string][]float64{
		BAND_BLUE:                  {500, 0},
		BAND_RED:                   {1000, 0},
		BAND_NEAR_INFRARED:         {3000, 0},
		BAND_SHORT_WAVE_INFRARED_2: {1000, math.NaN()},
	}
	ndvi := ComputeDerived(NDVI, in)
	assert.InDelta(t, 0.5, ndvi[0], 1e-12)
	assert.True(t, math.IsNaN(ndvi[1]))

	nbr := ComputeDerived(NBR, in)
	assert.InDelta(t, 0.5, nbr[0], 1e-12)
	assert.True(t, math.IsNaN(nbr[1]))

	evi := ComputeDerived(EVI, in)
	// 2.5 * (0.3 - 0.1) / (0.3 + 0.6 - 0.375 + 1)
	assert.InDelta(t, 2.5*0.2/1.525, evi[0], 1e-9)
	assert.InDelta(t, 0, evi[1], 1e-12)

	assert.Equal(t, []string{BAND_RED, BAND_NEAR_INFRARED}, DerivedInputBands(NDVI))
	assert.Nil(t, DerivedInputBands(ARG25))
}
