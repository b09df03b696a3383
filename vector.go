package datacube

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wgdzlh/datacube/log"
	"github.com/wgdzlh/datacube/utils"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 矢量要素概要
type VectorFeature struct {
	Index  int
	Fields map[string]string
	Bounds [4]float64 // minX, minY, maxX, maxY
}

func (g *Toolbox) openLayer(file string, layerIdx int) (ds *gdal.Dataset, layer gdal.Layer, err error) {
	if ds, err = gdal.Open(file, gdal.VectorOnly()); err != nil {
		log.Error(g.logTag+"open vector failed", zap.String("file", file), zap.Error(err))
		return
	}
	layers := ds.Layers()
	if layerIdx < 0 || layerIdx >= len(layers) {
		ds.Close()
		ds = nil
		err = fmt.Errorf("%w: layer %d of %s", ErrLayerNotFound, layerIdx, file)
		return
	}
	layer = layers[layerIdx]
	layer.ResetReading()
	return
}

// 图层未定义坐标系时godal同样返回非nil的空句柄，以导出的WKT判断
func hasSpatialRef(sr *gdal.SpatialRef) bool {
	if sr == nil {
		return false
	}
	wkt, err := sr.WKT()
	return err == nil && wkt != ""
}

// 按序号（从0起）取要素
func nextFeatureAt(layer gdal.Layer, featureIdx int) (feat *gdal.Feature) {
	for i := 0; ; i++ {
		if feat = layer.NextFeature(); feat == nil || i == featureIdx {
			return
		}
		feat.Close()
	}
}

// 将矢量要素转为EPSG:4326下的几何（调用方负责Close）
func (g *Toolbox) featureGeometry(layer gdal.Layer, feat *gdal.Feature) (geo *gdal.Geometry, err error) {
	// 无几何时godal返回空句柄的包装，Empty为true
	geo = feat.Geometry()
	defer func() {
		if err != nil {
			geo.Close()
			geo = nil
		}
	}()
	if geo.Empty() {
		err = ErrEmptyGeometry
		return
	}
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	sr := layer.SpatialRef()
	if !hasSpatialRef(sr) {
		log.Warn(g.logTag + "vector layer without spatial ref, assumed EPSG:4326")
		return
	}
	if sr.IsSame(ref) {
		return
	}
	trans, err := gdal.NewTransform(sr, ref)
	if err != nil {
		log.Error(g.logTag+"create transform failed", zap.Error(err))
		return
	}
	defer trans.Close()
	if err = geo.Transform(trans); err != nil {
		log.Error(g.logTag+"geo transform failed", zap.Error(err))
	}
	return
}

// 生成cell(x, y)的矢量掩膜：要素栅格化到4000x4000网格，未覆盖像元被掩去
func (g *Toolbox) VectorMaskForCell(x, y int, file string, layerIdx, featureIdx int) (mask Mask, err error) {
	log.Info(g.logTag+"build vector mask", zap.Int("x", x), zap.Int("y", y), zap.String("file", file),
		zap.Int("layer", layerIdx), zap.Int("feature", featureIdx))
	ds, layer, err := g.openLayer(file, layerIdx)
	if err != nil {
		return
	}
	defer ds.Close()
	feat := nextFeatureAt(layer, featureIdx)
	if feat == nil {
		err = fmt.Errorf("%w: feature %d of layer %d", ErrFeatureNotFound, featureIdx, layerIdx)
		return
	}
	defer feat.Close()
	geo, err := g.featureGeometry(layer, feat)
	if err != nil {
		return
	}
	defer geo.Close()
	inside, err := g.intersectsCell(geo, x, y)
	if err != nil {
		return
	}
	if !inside {
		log.Warn(g.logTag+"vector feature misses the cell, all pixels masked", zap.Int("x", x), zap.Int("y", y))
		mask = make(Mask, CELL_SIZE_PIXELS*CELL_SIZE_PIXELS)
		for i := range mask {
			mask[i] = true
		}
		return
	}
	burn, err := g.rasterizeCell(x, y, geo)
	if err != nil {
		return
	}
	if mask, err = MaskVector(burn, nil); err != nil {
		return
	}
	log.Info(g.logTag+"vector mask built", zap.Int("masked", mask.Count()), zap.Int("pixels", len(mask)))
	return
}

// 在内存栅格上烧录几何，覆盖像元值为1
func (g *Toolbox) rasterizeCell(x, y int, geo *gdal.Geometry) (burn []uint8, err error) {
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	mem, err := gdal.Create(gdal.DriverName(DRIVER_MEM), "", 1, gdal.Byte, CELL_SIZE_PIXELS, CELL_SIZE_PIXELS)
	if err != nil {
		log.Error(g.logTag+"create mem raster failed", zap.Error(err))
		return
	}
	defer mem.Close()
	if err = mem.SetGeoTransform(CellTransform(x, y)); err != nil {
		return
	}
	if err = mem.SetSpatialRef(ref); err != nil {
		return
	}
	if err = mem.RasterizeGeometry(geo, gdal.Values(1)); err != nil {
		log.Error(g.logTag+"rasterize failed", zap.Error(err))
		return
	}
	burn = make([]uint8, CELL_SIZE_PIXELS*CELL_SIZE_PIXELS)
	err = mem.Bands()[0].Read(0, 0, burn, CELL_SIZE_PIXELS, CELL_SIZE_PIXELS)
	return
}

// 列出图层中的要素（属性按.cpg编码解码，无.cpg视为GBK）
func (g *Toolbox) ListVectorFeatures(file string, layerIdx int) (ret []VectorFeature, err error) {
	ds, layer, err := g.openLayer(file, layerIdx)
	if err != nil {
		return
	}
	defer ds.Close()
	var (
		isUtf8 = utils.IsShpUtf8(file)
		feat   *gdal.Feature
		geo    *gdal.Geometry
		gc     []closable
	)
	defer func() {
		for _, v := range gc {
			v.Close()
		}
	}()
	for i := 0; ; i++ {
		if feat = layer.NextFeature(); feat == nil {
			break
		}
		gc = append(gc, feat)
		vf := VectorFeature{Index: i, Fields: map[string]string{}}
		for name, fld := range feat.Fields() {
			val := fld.String()
			if !isUtf8 {
				if dec, e := utils.GbkStrToUtf8(val); e == nil {
					val = dec
				}
			}
			vf.Fields[name] = utils.PurifyForUtf8(val)
		}
		if geo, err = g.featureGeometry(layer, feat); err == nil {
			gc = append(gc, geo)
			vf.Bounds, _ = geo.Bounds()
		} else if errors.Is(err, ErrEmptyGeometry) {
			err = nil
		} else {
			return
		}
		ret = append(ret, vf)
	}
	log.Info(g.logTag+"listed vector features", zap.String("file", file), zap.Int("count", len(ret)))
	return
}

// 要素范围覆盖的cell
func (vf VectorFeature) Cells() []Cell {
	return SpanToCells(vf.Bounds)
}

// 要素的属性名（排序后）
func (vf VectorFeature) FieldNames() (names []string) {
	for k := range vf.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
