package datacube

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var (
	acqMin = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	acqMax = time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)
)

func TestDatasetFilename(t *testing.T) {
	nbar := &Dataset{Type: ARG25, Satellite: LS5, Path: "/g/data/LS5_TM_NBAR_120_-020_2005-06-01T01-02-03.123456.tif"}
	pqa := &Dataset{Type: PQ25, Satellite: LS5, Path: "/g/data/LS5_TM_PQA_120_-020_2005-06-01T01-02-03.123456.tif"}
	ndvi := &Dataset{Type: NDVI, Satellite: LS5, Path: nbar.Path}
	vrt := &Dataset{Type: ARG25, Satellite: LS8, Path: "/g/data/LS8_OLI_TIRS_NBAR_120_-020_2014-01-01T00-00-00.vrt"}

	tests := []struct {
		name   string
		ds     *Dataset
		target DatasetType
		format OutputFormat
		pqa    bool
		wofs   bool
		vector bool
		want   string
	}{
		{"plain", nbar, ARG25, GEOTIFF, false, false, false, "LS5_TM_NBAR_120_-020_2005-06-01T01-02-03.123456.tif"},
		{"pqa masked", nbar, ARG25, GEOTIFF, true, false, false, "LS5_TM_NBAR_WITH_PQA_120_-020_2005-06-01T01-02-03.123456.tif"},
		{"all masks envi", nbar, ARG25, ENVI, true, true, true, "LS5_TM_NBAR_WITH_PQA_WITH_WATER_WITH_VECTOR_120_-020_2005-06-01T01-02-03.123456.dat"},
		{"pqa dataset", pqa, PQ25, GEOTIFF, false, false, false, "LS5_TM_PQA_120_-020_2005-06-01T01-02-03.123456.tif"},
		{"derived", ndvi, NDVI, GEOTIFF, true, false, false, "LS5_TM_NDVI_WITH_PQA_120_-020_2005-06-01T01-02-03.123456.tif"},
		{"vrt source", vrt, ARG25, GEOTIFF, false, false, false, "LS8_OLI_TIRS_NBAR_120_-020_2014-01-01T00-00-00.tif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DatasetFilename(tt.ds, tt.target, tt.format, tt.pqa, tt.wofs, tt.vector))
		})
	}
}

func TestStackAndSummaryFilenames(t *testing.T) {
	sats := []Satellite{LS5, LS7}
	assert.Equal(t, "LS5_LS7_ARG25_120_-020_2005-01-01_2005-12-31_RED_STACK.tif",
		DatasetBandStackFilename(sats, ARG25, BAND_RED, 120, -20, acqMin, acqMax, GEOTIFF, false, false, false))
	assert.Equal(t, "LS5_LS7_ARG25_120_-020_2005-01-01_2005-12-31_WITH_PQA_WITH_WATER_RED_STACK.dat",
		DatasetBandStackFilename(sats, ARG25, BAND_RED, 120, -20, acqMin, acqMax, ENVI, true, true, false))
	assert.Equal(t, "LS5_LS7_NDVI_MEDIAN_120_-020_2005-01-01_2005-12-31_NDVI.tif",
		SummaryFilename(sats, NDVI, MEDIAN, "NDVI", 120, -20, acqMin, acqMax))
}

func TestGenerateMetadata(t *testing.T) {
	acq := time.Date(2005, 6, 1, 1, 2, 3, 0, time.UTC)
	mo := &MaskOptions{PqaApply: true, PqaMasks: []PqaMask{PQ_MASK_CLEAR}, WofsMasks: []WofsMask{WOFS_WET}}
	want := map[string]string{
		MD_X_INDEX:              "120",
		MD_Y_INDEX:              "-020",
		MD_DATASET_TYPE:         "ARG25",
		MD_ACQUISITION_DATE:     "2005-06-01 01:02:03",
		MD_SATELLITE:            "LS5",
		MD_PIXEL_QUALITY_FILTER: "PQ_MASK_CLEAR",
		MD_WATER_FILTER:         "",
	}
	if diff := cmp.Diff(want, GenerateRasterMetadata(120, -20, acq, ARG25, LS5, mo)); diff != "" {
		t.Errorf("raster metadata mismatch (-want +got):\n%s", diff)
	}

	md := GenerateStackMetadata(120, -20, acqMin, acqMax, FC25, []Satellite{LS5, LS7}, &MaskOptions{})
	assert.Equal(t, "2005-01-01 to 2005-12-31", md[MD_ACQUISITION_DATE])
	assert.Equal(t, "LS5 LS7", md[MD_SATELLITES])
	assert.Empty(t, md[MD_PIXEL_QUALITY_FILTER])
}

func TestBandNames(t *testing.T) {
	assert.Len(t, BandNames(ARG25, LS5), 6)
	assert.Equal(t, BAND_COASTAL_AEROSOL, BandNames(ARG25, LS8)[0])
	assert.Equal(t, []string{"NDVI"}, BandNames(NDVI, LS7))

	union := BandNameUnion(ARG25, LS5, LS8)
	assert.Len(t, union, 7)
	assert.Equal(t, BAND_COASTAL_AEROSOL, union[6])

	common := BandNameIntersection(ARG25, LS8, LS5)
	assert.Equal(t, BandNames(ARG25, LS5), common)

	assert.Equal(t, []string{BAND_RED}, ResolveBandNames(ARG25, BandsExplicit, []string{BAND_RED}, LS5))
	assert.Equal(t, common, ResolveBandNames(ARG25, BandsCommon, nil, LS8, LS5))
	assert.Equal(t, union, ResolveBandNames(ARG25, BandsAll, nil, LS5, LS8))

	b, ok := (&Dataset{Bands: GetBands(ARG25, LS8)}).Band(BAND_RED)
	assert.True(t, ok)
	assert.Equal(t, 4, b.Index)
}
