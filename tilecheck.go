package datacube

import (
	"fmt"

	"github.com/wgdzlh/datacube/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 瓦片文件中各波段的说明，NoData为nil时取文件中的无效值
type TileBand struct {
	NoData *float64
	IsPqa  bool
}

// 判断重投影得到的瓦片是否含有效数据
// 无无效值时：PQA波段任一像元含连续性位即有数据，其他波段视为全部有效
func (g *Toolbox) HasData(path string, bands []TileBand) (result bool, err error) {
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tile failed", zap.String("path", path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrInvalidTif, path)
		return
	}
	defer sds.Close()
	rbands := sds.Bands()
	if len(rbands) != len(bands) {
		err = fmt.Errorf("%w: %d layers in tile %s, %d bands expected", ErrBandCount, len(rbands), path, len(bands))
		return
	}
	st := sds.Structure()
	n := st.SizeX * st.SizeY
	for i, band := range rbands {
		ndv := bands[i].NoData
		if fileNdv, ok := band.NoData(); ok {
			if ndv != nil && *ndv != fileNdv {
				log.Info(g.logTag+"nodata value differs from tile band", zap.Float64("expected", *ndv), zap.Float64("band", fileNdv))
			}
			if ndv == nil {
				ndv = &fileNdv
			}
		}
		if ndv == nil {
			if !bands[i].IsPqa {
				log.Debug(g.logTag+"tile is not empty: no-data value is not set", zap.Int("band", i+1))
				result = true
				break
			}
			buf := make([]uint16, n)
			if err = band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
				return
			}
			for _, v := range buf {
				if v&PQA_CONTIGUITY > 0 {
					result = true
					break
				}
			}
			if result {
				log.Debug(g.logTag+"tile is not empty: pqa contains contiguous data", zap.Int("band", i+1))
				break
			}
			continue
		}
		buf := make([]float64, n)
		if err = band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
			return
		}
		for _, v := range buf {
			if v != *ndv {
				result = true
				break
			}
		}
		if result {
			log.Debug(g.logTag+"tile is not empty", zap.Int("band", i+1), zap.Float64("nodata", *ndv))
			break
		}
	}
	log.Info(g.logTag+"tile data checked", zap.String("path", path), zap.Bool("hasData", result))
	return
}

// 瓦片类型：原点与瓦片尺寸（度）
type TileType struct {
	XOrigin, YOrigin float64
	XSize, YSize     float64
}

var DefaultTileType = TileType{XSize: 1, YSize: 1}

// 瓦片足迹(x, y)的范围：minX, minY, maxX, maxY
func (tt TileType) Extents(x, y int) [4]float64 {
	x0 := tt.XOrigin + float64(x)*tt.XSize
	y0 := tt.YOrigin + float64(y)*tt.YSize
	return [4]float64{x0, y0, x0 + tt.XSize, y0 + tt.YSize}
}
