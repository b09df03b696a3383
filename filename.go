package datacube

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var typeTokens = map[DatasetType]string{
	ARG25: "_NBAR_",
	PQ25:  "_PQA_",
	FC25:  "_FC_",
	WATER: "_WATER_",
	NDVI:  "_NDVI_",
	EVI:   "_EVI_",
	NBR:   "_NBR_",
}

var rasterExts = []string{".vrt", ".tiff", ".tif"}

func FormatDate(t time.Time) string {
	return t.Format(DATE_FORMAT)
}

func FormatDateTime(t time.Time) string {
	return t.Format(DATETIME_FORMAT)
}

func maskSuffix(pqa, wofs, vector bool, sep string) string {
	var sb strings.Builder
	if pqa {
		sb.WriteString("WITH_PQA" + sep)
	}
	if wofs {
		sb.WriteString("WITH_WATER" + sep)
	}
	if vector {
		sb.WriteString("WITH_VECTOR" + sep)
	}
	return sb.String()
}

func trimRasterExt(name string) string {
	for _, ext := range rasterExts {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// 输出文件名：替换源文件名中的类型标记，附加掩膜标记，并改为输出格式扩展名
func DatasetFilename(ds *Dataset, target DatasetType, format OutputFormat, pqa, wofs, vector bool) string {
	name := trimRasterExt(filepath.Base(ds.Path))
	src := typeTokens[ds.Type.Storage()]
	dst := typeTokens[target] + maskSuffix(pqa, wofs, vector, "_")
	if src != "" && strings.Contains(name, src) {
		name = strings.Replace(name, src, dst, 1)
	} else {
		name += "_" + strings.Trim(dst, "_")
	}
	return name + "." + format.Ext()
}

func SatellitesString(sats []Satellite, sep string) string {
	ss := make([]string, len(sats))
	for i, s := range sats {
		ss[i] = string(s)
	}
	return strings.Join(ss, sep)
}

// 波段时间序列堆栈文件名
func DatasetBandStackFilename(sats []Satellite, dt DatasetType, band string, x, y int, acqMin, acqMax time.Time,
	format OutputFormat, pqa, wofs, vector bool) string {
	name := fmt.Sprintf("%s_%s_%03d_%04d_%s_%s_", SatellitesString(sats, "_"), dt, x, y, FormatDate(acqMin), FormatDate(acqMax))
	return name + maskSuffix(pqa, wofs, vector, "_") + band + "_STACK." + format.Ext()
}

// cell汇总统计文件名
func SummaryFilename(sats []Satellite, dt DatasetType, stat Statistic, band string, x, y int, acqMin, acqMax time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%03d_%04d_%s_%s_%s.tif", SatellitesString(sats, "_"), dt, stat, x, y,
		FormatDate(acqMin), FormatDate(acqMax), band)
}
