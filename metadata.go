package datacube

import (
	"fmt"
	"time"
)

// 输出栅格的掩膜设置
type MaskOptions struct {
	PqaApply    bool
	PqaMasks    []PqaMask
	WofsApply   bool
	WofsMasks   []WofsMask
	VectorApply bool
	VectorFile  string
	VectorLayer int
	VectorFeat  int
}

func (mo *MaskOptions) pqaFilter() string {
	if !mo.PqaApply {
		return ""
	}
	return PqaMaskNames(mo.PqaMasks)
}

func (mo *MaskOptions) wofsFilter() string {
	if !mo.WofsApply {
		return ""
	}
	return WofsMaskNames(mo.WofsMasks)
}

// 单景输出栅格的元数据
func GenerateRasterMetadata(x, y int, acqDate time.Time, dt DatasetType, sat Satellite, mo *MaskOptions) map[string]string {
	return map[string]string{
		MD_X_INDEX:              fmt.Sprintf("%03d", x),
		MD_Y_INDEX:              fmt.Sprintf("%04d", y),
		MD_DATASET_TYPE:         string(dt),
		MD_ACQUISITION_DATE:     FormatDateTime(acqDate),
		MD_SATELLITE:            string(sat),
		MD_PIXEL_QUALITY_FILTER: mo.pqaFilter(),
		MD_WATER_FILTER:         mo.wofsFilter(),
	}
}

// 时间序列堆栈的元数据
func GenerateStackMetadata(x, y int, acqMin, acqMax time.Time, dt DatasetType, sats []Satellite, mo *MaskOptions) map[string]string {
	return map[string]string{
		MD_X_INDEX:              fmt.Sprintf("%03d", x),
		MD_Y_INDEX:              fmt.Sprintf("%04d", y),
		MD_DATASET_TYPE:         string(dt),
		MD_ACQUISITION_DATE:     FormatDate(acqMin) + " to " + FormatDate(acqMax),
		MD_SATELLITES:           SatellitesString(sats, " "),
		MD_PIXEL_QUALITY_FILTER: mo.pqaFilter(),
		MD_WATER_FILTER:         mo.wofsFilter(),
	}
}
