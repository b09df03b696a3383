package datacube

import (
	"context"
	"time"

	gdal "github.com/airbusgeo/godal"
)

type Satellite string

const (
	LS5 Satellite = "LS5"
	LS7 Satellite = "LS7"
	LS8 Satellite = "LS8"
)

var Satellites = []Satellite{LS5, LS7, LS8}

// 卫星对应的传感器
func (s Satellite) Sensor() string {
	switch s {
	case LS5:
		return "TM"
	case LS7:
		return "ETM"
	case LS8:
		return "OLI_TIRS"
	}
	return ""
}

type DatasetType string

const (
	ARG25 DatasetType = "ARG25"
	PQ25  DatasetType = "PQ25"
	FC25  DatasetType = "FC25"
	WATER DatasetType = "WATER"

	NDVI DatasetType = "NDVI"
	EVI  DatasetType = "EVI"
	NBR  DatasetType = "NBR"
)

var (
	DatabaseDatasetTypes  = []DatasetType{ARG25, PQ25, FC25, WATER}
	DerivedNbarTypes      = []DatasetType{NDVI, EVI, NBR}
	RetrievalDatasetTypes = []DatasetType{ARG25, PQ25, FC25, WATER, NDVI, EVI, NBR}
	SummaryDatasetTypes   = []DatasetType{ARG25, FC25, NDVI, EVI, NBR}
)

// 由NBAR数据计算得到的派生类型
func (t DatasetType) IsDerived() bool {
	return t == NDVI || t == EVI || t == NBR
}

// 派生类型在目录中对应的存储类型
func (t DatasetType) Storage() DatasetType {
	if t.IsDerived() {
		return ARG25
	}
	return t
}

type OutputFormat string

const (
	GEOTIFF OutputFormat = "GEOTIFF"
	ENVI    OutputFormat = "ENVI"
)

var OutputFormats = []OutputFormat{GEOTIFF, ENVI}

func (f OutputFormat) Ext() string {
	if f == ENVI {
		return "dat"
	}
	return "tif"
}

func (f OutputFormat) Driver() gdal.DriverName {
	if f == ENVI {
		return gdal.DriverName("ENVI")
	}
	return gdal.GTiff
}

type BandListType string

const (
	BandsExplicit BandListType = "EXPLICIT"
	BandsAll      BandListType = "ALL"
	BandsCommon   BandListType = "COMMON"
)

// 波段，Index为栅格中从1开始的波段序号
type Band struct {
	Name  string
	Index int
}

// 单景单类型数据集
type Dataset struct {
	Type        DatasetType
	Satellite   Satellite
	Path        string
	Bands       []Band
	X, Y        int
	AcqDatetime time.Time
}

func (ds *Dataset) Band(name string) (b Band, ok bool) {
	for _, b = range ds.Bands {
		if b.Name == name {
			ok = true
			return
		}
	}
	return
}

// 同一景、同一cell下的数据集集合
type Tile struct {
	AcquisitionID int64
	X, Y          int
	Satellite     Satellite
	StartDatetime time.Time
	EndDatetime   time.Time
	Datasets      map[DatasetType]*Dataset
}

type Cell struct {
	X, Y  int
	Count int
}

// 栅格基本信息
type DatasetMetadata struct {
	Transform  [6]float64
	Projection string
	SizeX      int
	SizeY      int
	BandCount  int
	DataType   gdal.DataType
}

func (md *DatasetMetadata) Pixels() int {
	return md.SizeX * md.SizeY
}

// 南半球季节
type Season string

const (
	SUMMER        Season = "SUMMER"
	AUTUMN        Season = "AUTUMN"
	WINTER        Season = "WINTER"
	SPRING        Season = "SPRING"
	CALENDAR_YEAR Season = "CALENDAR_YEAR"
)

var Seasons = []Season{SUMMER, AUTUMN, WINTER, SPRING, CALENDAR_YEAR}

func (s Season) Months() []time.Month {
	switch s {
	case SUMMER:
		return []time.Month{time.December, time.January, time.February}
	case AUTUMN:
		return []time.Month{time.March, time.April, time.May}
	case WINTER:
		return []time.Month{time.June, time.July, time.August}
	case SPRING:
		return []time.Month{time.September, time.October, time.November}
	case CALENDAR_YEAR:
		ms := make([]time.Month, 12)
		for i := range ms {
			ms[i] = time.Month(i + 1)
		}
		return ms
	}
	return nil
}

// 目录查询排除的采集期
type Exclusion string

const (
	LS7_SLC_OFF   Exclusion = "LS7_SLC_OFF"
	LS8_PRE_WRS_2 Exclusion = "LS8_PRE_WRS_2"
)

var Exclusions = []Exclusion{LS7_SLC_OFF, LS8_PRE_WRS_2}

type SortOrder string

const (
	ASC  SortOrder = "ASC"
	DESC SortOrder = "DESC"
)

// 瓦片查询条件，空列表表示不限
type TileQuery struct {
	X, Y         []int
	AcqMin       time.Time
	AcqMax       time.Time
	Satellites   []Satellite
	DatasetTypes []DatasetType
	Months       []time.Month
	Exclude      []Exclusion
	Sort         SortOrder
}

type TileLister interface {
	ListTiles(ctx context.Context, q *TileQuery) ([]*Tile, error)
}
