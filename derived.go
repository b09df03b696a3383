package datacube

import (
	"fmt"
	"math"

	"github.com/wgdzlh/datacube/log"

	"go.uber.org/zap"
)

// 派生指数所需的NBAR波段
func DerivedInputBands(dt DatasetType) []string {
	switch dt {
	case NDVI:
		return []string{BAND_RED, BAND_NEAR_INFRARED}
	case EVI:
		return []string{BAND_BLUE, BAND_RED, BAND_NEAR_INFRARED}
	case NBR:
		return []string{BAND_NEAR_INFRARED, BAND_SHORT_WAVE_INFRARED_2}
	}
	return nil
}

func (g *Toolbox) readDerived(ds *Dataset, win Window) (ret []float64, err error) {
	names := DerivedInputBands(ds.Type)
	if names == nil {
		err = fmt.Errorf("%w: %s", ErrUnknownBand, ds.Type)
		return
	}
	indexes := make([]int, len(names))
	for i, n := range names {
		// 派生数据集的波段表为NBAR波段
		b, ok := nbarBand(ds.Satellite, n)
		if !ok {
			err = fmt.Errorf("%w: %s not in %s NBAR", ErrUnknownBand, n, ds.Satellite)
			return
		}
		indexes[i] = b.Index
	}
	log.Debug(g.logTag+"derive index from nbar", zap.String("type", string(ds.Type)), zap.String("path", ds.Path))
	data, ndv, _, err := g.readBandsFloat(ds.Path, indexes, win)
	if err != nil {
		return
	}
	in := make(map[string][]float64, len(names))
	for i, n := range names {
		nd := float64(NDV_NBAR)
		if ndv[i] != nil {
			nd = *ndv[i]
		}
		v := data[i]
		for j := range v {
			if v[j] == nd {
				v[j] = math.NaN()
			}
		}
		in[n] = v
	}
	ret = ComputeDerived(ds.Type, in)
	return
}

func nbarBand(sat Satellite, name string) (b Band, ok bool) {
	for _, b = range GetBands(ARG25, sat) {
		if b.Name == name {
			ok = true
			return
		}
	}
	return
}

// 由NBAR波段计算派生指数，输入中的无效值须已为NaN
func ComputeDerived(dt DatasetType, in map[string][]float64) (out []float64) {
	red, nir := in[BAND_RED], in[BAND_NEAR_INFRARED]
	switch dt {
	case NDVI:
		out = make([]float64, len(nir))
		for i := range out {
			out[i] = normDiff(nir[i], red[i])
		}
	case NBR:
		swir := in[BAND_SHORT_WAVE_INFRARED_2]
		out = make([]float64, len(nir))
		for i := range out {
			out[i] = normDiff(nir[i], swir[i])
		}
	case EVI:
		blue := in[BAND_BLUE]
		out = make([]float64, len(nir))
		for i := range out {
			n, r, b := nir[i]*REFLECTANCE_SCALE, red[i]*REFLECTANCE_SCALE, blue[i]*REFLECTANCE_SCALE
			d := n + 6*r - 7.5*b + 1
			if d == 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = 2.5 * (n - r) / d
		}
	}
	return
}

func normDiff(a, b float64) float64 {
	s := a + b
	if s == 0 {
		return math.NaN()
	}
	return (a - b) / s
}
