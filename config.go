package datacube

import (
	"math"

	gdal "github.com/airbusgeo/godal"
)

const (
	UNIVERSAL_SRID = 4326

	// cell为1x1度，4000x4000像素
	CELL_SIZE_PIXELS = 4000
	CELL_PIXEL_SIZE  = 0.00025

	X_MIN = 110
	X_MAX = 155
	Y_MIN = -45
	Y_MAX = -10

	CHUNK_SIZE_MIN = 1
	CHUNK_SIZE_MAX = CELL_SIZE_PIXELS

	PQA_CONTIGUITY = 256

	NDV_NBAR  = -999
	NDV_FC    = -999
	NDV_WATER = 1

	// 派生指数计算前的反射率缩放
	REFLECTANCE_SCALE = 0.0001

	DATE_FORMAT     = "2006-01-02"
	DATETIME_FORMAT = "2006-01-02 15:04:05"
	ACQ_MIN_DEFAULT = "1980"
	ACQ_MAX_DEFAULT = "2020"

	MD_X_INDEX              = "X_INDEX"
	MD_Y_INDEX              = "Y_INDEX"
	MD_DATASET_TYPE         = "DATASET_TYPE"
	MD_ACQUISITION_DATE     = "ACQUISITION_DATE"
	MD_SATELLITE            = "SATELLITE"
	MD_SATELLITES           = "SATELLITES"
	MD_PIXEL_QUALITY_FILTER = "PIXEL_QUALITY_FILTER"
	MD_WATER_FILTER         = "WATER_FILTER"
	MD_ACQ_DATE             = "ACQ_DATE"
	MD_STATISTIC            = "STATISTIC"

	MD_STATISTICS_MINIMUM = "STATISTICS_MINIMUM"
	MD_STATISTICS_MAXIMUM = "STATISTICS_MAXIMUM"
	MD_STATISTICS_MEAN    = "STATISTICS_MEAN"
	MD_STATISTICS_STDDEV  = "STATISTICS_STDDEV"
	MD_STATISTICS_VALID   = "STATISTICS_VALID_PERCENT"

	DRIVER_MEM = "MEM"
)

var (
	GeoTiffCreateOptions      = []string{"INTERLEAVE=PIXEL", "COMPRESS=LZW"}
	GeoTiffStackCreateOptions = []string{"BIGTIFF=YES", "INTERLEAVE=BAND"}
	EnviCreateOptions         = []string{"INTERLEAVE=BSQ"}
)

// 数据类型对应的默认无效值，ok为false表示无默认无效值
func DefaultNoData(dt DatasetType) (ndv float64, ok bool) {
	switch dt {
	case ARG25:
		return NDV_NBAR, true
	case FC25:
		return NDV_FC, true
	case WATER:
		return NDV_WATER, true
	case NDVI, EVI, NBR:
		return math.NaN(), true
	}
	return
}

// 数据类型对应的栅格像素类型
func DataTypeOf(dt DatasetType) gdal.DataType {
	switch dt {
	case ARG25, FC25:
		return gdal.Int16
	case PQ25:
		return gdal.UInt16
	case WATER:
		return gdal.Byte
	}
	return gdal.Float32
}

// cell左上角为(x, y+1)的地理变换
func CellTransform(x, y int) [6]float64 {
	return [6]float64{float64(x), CELL_PIXEL_SIZE, 0, float64(y + 1), 0, -CELL_PIXEL_SIZE}
}
