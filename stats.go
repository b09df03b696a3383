package datacube

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 逐像元时间序列统计量
type Statistic string

const (
	COUNT              Statistic = "COUNT"
	MIN                Statistic = "MIN"
	MAX                Statistic = "MAX"
	MEAN               Statistic = "MEAN"
	MEDIAN             Statistic = "MEDIAN"
	STANDARD_DEVIATION Statistic = "STANDARD_DEVIATION"
)

var Statistics = []Statistic{COUNT, MIN, MAX, MEAN, MEDIAN, STANDARD_DEVIATION}

// 波段统计
type BandStats struct {
	Min, Max     float64
	Mean, StdDev float64
	Valid        int
	Total        int
}

func isValid(v, ndv float64) bool {
	return !math.IsNaN(v) && v != ndv
}

// 计算有效像元（非NaN且不等于ndv）的统计，ok为false表示无有效像元
func ComputeBandStats(data []float64, ndv float64) (st BandStats, ok bool) {
	valid := make([]float64, 0, len(data))
	for _, v := range data {
		if isValid(v, ndv) {
			valid = append(valid, v)
		}
	}
	st.Total = len(data)
	st.Valid = len(valid)
	if len(valid) == 0 {
		return
	}
	ok = true
	st.Min = floats.Min(valid)
	st.Max = floats.Max(valid)
	if len(valid) == 1 {
		st.Mean = valid[0]
		return
	}
	st.Mean, st.StdDev = stat.PopMeanStdDev(valid, nil)
	return
}

// 写入波段元数据的统计项
func (st BandStats) Metadata() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	pct := 0.0
	if st.Total > 0 {
		pct = 100 * float64(st.Valid) / float64(st.Total)
	}
	return map[string]string{
		MD_STATISTICS_MINIMUM: f(st.Min),
		MD_STATISTICS_MAXIMUM: f(st.Max),
		MD_STATISTICS_MEAN:    f(st.Mean),
		MD_STATISTICS_STDDEV:  f(st.StdDev),
		MD_STATISTICS_VALID:   strconv.FormatFloat(pct, 'f', 3, 64),
	}
}

// 对一组有效观测值求统计量，空序列返回ndv（COUNT返回0）
func ComputeStatistic(values []float64, s Statistic, ndv float64) float64 {
	if s == COUNT {
		return float64(len(values))
	}
	if len(values) == 0 {
		return ndv
	}
	switch s {
	case MIN:
		return floats.Min(values)
	case MAX:
		return floats.Max(values)
	case MEAN:
		return stat.Mean(values, nil)
	case MEDIAN:
		// 偶数个观测取中间两值的平均，stat.Quantile只返回其一
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	case STANDARD_DEVIATION:
		if len(values) == 1 {
			return 0
		}
		_, std := stat.PopMeanStdDev(values, nil)
		return std
	}
	return ndv
}
