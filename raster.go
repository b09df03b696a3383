package datacube

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/wgdzlh/datacube/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 读取栅格基本信息
func (g *Toolbox) ReadDatasetMetadata(path string) (md DatasetMetadata, err error) {
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrInvalidTif, path)
		return
	}
	defer sds.Close()
	st := sds.Structure()
	md.SizeX = st.SizeX
	md.SizeY = st.SizeY
	md.BandCount = st.NBands
	md.DataType = st.DataType
	md.Projection = sds.Projection()
	if md.Transform, err = sds.GeoTransform(); err != nil {
		log.Warn(g.logTag+"raster without geo transform", zap.String("path", path))
		md.Transform = [6]float64{0, 1, 0, 0, 0, 1}
		err = nil
	}
	return
}

// 读取的窗口，W或H为0表示整幅
type Window struct {
	X, Y int
	W, H int
}

func (w Window) resolve(sizeX, sizeY int) Window {
	if w.W == 0 || w.H == 0 {
		return Window{W: sizeX, H: sizeY}
	}
	return w
}

func (g *Toolbox) openBands(path string, indexes []int) (sds *gdal.Dataset, bands []gdal.Band, err error) {
	if sds, err = gdal.Open(path, gdal.RasterOnly()); err != nil {
		log.Error(g.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrInvalidTif, path)
		return
	}
	all := sds.Bands()
	bands = make([]gdal.Band, len(indexes))
	for i, idx := range indexes {
		if idx < 1 || idx > len(all) {
			sds.Close()
			sds = nil
			err = fmt.Errorf("%w: band %d of %s", ErrBandCount, idx, path)
			return
		}
		bands[i] = all[idx-1]
	}
	return
}

// 按float64读取若干波段，返回各波段数据及源无效值
func (g *Toolbox) readBandsFloat(path string, indexes []int, win Window) (data [][]float64, ndv []*float64, w Window, err error) {
	sds, bands, err := g.openBands(path, indexes)
	if err != nil {
		return
	}
	defer sds.Close()
	st := sds.Structure()
	w = win.resolve(st.SizeX, st.SizeY)
	data = make([][]float64, len(bands))
	ndv = make([]*float64, len(bands))
	for i, band := range bands {
		buf := make([]float64, w.W*w.H)
		if err = band.Read(w.X, w.Y, buf, w.W, w.H); err != nil {
			log.Error(g.logTag+"read band failed", zap.String("path", path), zap.Int("band", indexes[i]), zap.Error(err))
			err = fmt.Errorf("%w: %s", ErrTifReadFailed, err)
			return
		}
		data[i] = buf
		if nd, ok := band.NoData(); ok {
			ndv[i] = &nd
		}
	}
	return
}

// 读取数据集的指定波段（派生类型由NBAR波段计算）
func (g *Toolbox) ReadDatasetData(ds *Dataset, bandNames []string) (ret map[string][]float64, err error) {
	return g.ReadDatasetWindow(ds, bandNames, Window{})
}

func (g *Toolbox) ReadDatasetWindow(ds *Dataset, bandNames []string, win Window) (ret map[string][]float64, err error) {
	if ds.Type.IsDerived() {
		var v []float64
		if v, err = g.readDerived(ds, win); err != nil {
			return
		}
		ret = map[string][]float64{string(ds.Type): v}
		return
	}
	if len(bandNames) == 0 {
		for _, b := range ds.Bands {
			bandNames = append(bandNames, b.Name)
		}
	}
	indexes := make([]int, len(bandNames))
	for i, n := range bandNames {
		b, ok := ds.Band(n)
		if !ok {
			err = fmt.Errorf("%w: %s not in %s %s", ErrUnknownBand, n, ds.Satellite, ds.Type)
			return
		}
		indexes[i] = b.Index
	}
	log.Debug(g.logTag+"read dataset", zap.String("path", ds.Path), zap.Strings("bands", bandNames))
	data, _, _, err := g.readBandsFloat(ds.Path, indexes, win)
	if err != nil {
		return
	}
	ret = make(map[string][]float64, len(bandNames))
	for i, n := range bandNames {
		ret[n] = data[i]
	}
	return
}

// 读取数据并将掩去的像元设为无效值
func (g *Toolbox) ReadDatasetDataMasked(ds *Dataset, bandNames []string, mask Mask, ndv float64) (ret map[string][]float64, err error) {
	return g.ReadDatasetWindowMasked(ds, bandNames, Window{}, mask, ndv)
}

func (g *Toolbox) ReadDatasetWindowMasked(ds *Dataset, bandNames []string, win Window, mask Mask, ndv float64) (ret map[string][]float64, err error) {
	if ret, err = g.ReadDatasetWindow(ds, bandNames, win); err != nil {
		return
	}
	for _, v := range ret {
		if err = ApplyMask(v, mask, ndv); err != nil {
			return
		}
	}
	return
}

// 读取PQA数据集
func (g *Toolbox) ReadPqa(ds *Dataset, win Window) (ret []uint16, err error) {
	sds, bands, err := g.openBands(ds.Path, []int{1})
	if err != nil {
		return
	}
	defer sds.Close()
	st := sds.Structure()
	w := win.resolve(st.SizeX, st.SizeY)
	ret = make([]uint16, w.W*w.H)
	if err = bands[0].Read(w.X, w.Y, ret, w.W, w.H); err != nil {
		log.Error(g.logTag+"read pqa failed", zap.String("path", ds.Path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrTifReadFailed, err)
	}
	return
}

// 读取WOFS数据集
func (g *Toolbox) ReadWofs(ds *Dataset, win Window) (ret []uint8, err error) {
	sds, bands, err := g.openBands(ds.Path, []int{1})
	if err != nil {
		return
	}
	defer sds.Close()
	st := sds.Structure()
	w := win.resolve(st.SizeX, st.SizeY)
	ret = make([]uint8, w.W*w.H)
	if err = bands[0].Read(w.X, w.Y, ret, w.W, w.H); err != nil {
		log.Error(g.logTag+"read wofs failed", zap.String("path", ds.Path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrTifReadFailed, err)
	}
	return
}

// 源数据的无效值，未设置时取数据类型默认值
func (g *Toolbox) DatasetNoData(ds *Dataset) (ndv float64, ok bool) {
	if ds.Type.IsDerived() {
		return math.NaN(), true
	}
	if sds, bands, err := g.openBands(ds.Path, []int{1}); err == nil {
		ndv, ok = bands[0].NoData()
		sds.Close()
		if ok {
			return
		}
	}
	return DefaultNoData(ds.Type)
}

// 输出栅格参数
type RasterSpec struct {
	Format     OutputFormat
	Transform  [6]float64
	Projection string
	SizeX      int
	SizeY      int
	DataType   gdal.DataType
	NoData     *float64
	Metadata   map[string]string
	Options    []string // 为空时按格式取默认创建参数
}

// 逐波段写出的栅格
type RasterWriter struct {
	ds     *gdal.Dataset
	bands  []gdal.Band
	spec   RasterSpec
	path   string
	logTag string
}

// 创建nBands个波段的输出栅格
func (g *Toolbox) NewRasterWriter(path string, nBands int, spec RasterSpec) (rw *RasterWriter, err error) {
	opts := spec.Options
	if len(opts) == 0 {
		opts = GeoTiffCreateOptions
		if spec.Format == ENVI {
			opts = EnviCreateOptions
		}
	}
	if err = os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return
	}
	log.Debug(g.logTag+"create raster", zap.String("path", path), zap.String("format", string(spec.Format)),
		zap.Int("bands", nBands), zap.Strings("options", opts))
	ds, err := gdal.Create(spec.Format.Driver(), path, nBands, spec.DataType, spec.SizeX, spec.SizeY, gdal.CreationOption(opts...))
	if err != nil {
		log.Error(g.logTag+"create raster failed", zap.String("path", path), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrTifWriteFailed, err)
		return
	}
	rw = &RasterWriter{ds: ds, bands: ds.Bands(), spec: spec, path: path, logTag: g.logTag}
	defer func() {
		if err != nil {
			ds.Close()
			rw = nil
		}
	}()
	if err = ds.SetGeoTransform(spec.Transform); err != nil {
		return
	}
	if spec.Projection != "" {
		if err = ds.SetProjection(spec.Projection); err != nil {
			return
		}
	}
	for k, v := range spec.Metadata {
		if err = ds.SetMetadata(k, v); err != nil {
			return
		}
	}
	return
}

// 写入第i个波段（从0起），附带波段描述与元数据
func (rw *RasterWriter) WriteBand(i int, data []float64, desc string, md map[string]string) (err error) {
	if i < 0 || i >= len(rw.bands) {
		return fmt.Errorf("%w: band %d of %d", ErrBandCount, i+1, len(rw.bands))
	}
	if len(data) != rw.spec.SizeX*rw.spec.SizeY {
		return ErrMaskShape
	}
	band := rw.bands[i]
	if desc != "" {
		if err = band.SetDescription(desc); err != nil {
			return
		}
	}
	if rw.spec.NoData != nil {
		if err = band.SetNoData(*rw.spec.NoData); err != nil {
			return
		}
	}
	for k, v := range md {
		if err = band.SetMetadata(k, v); err != nil {
			return
		}
	}
	if err = band.Write(0, 0, data, rw.spec.SizeX, rw.spec.SizeY); err != nil {
		log.Error(rw.logTag+"write band failed", zap.String("path", rw.path), zap.Int("band", i+1), zap.Error(err))
		err = fmt.Errorf("%w: %s", ErrTifWriteFailed, err)
	}
	return
}

func (rw *RasterWriter) Close() error {
	return rw.ds.Close()
}

// 一次性写出栅格，bandIDs为各波段描述
func (g *Toolbox) CreateRaster(path string, bandIDs []string, data map[string][]float64, spec RasterSpec) (err error) {
	rw, err := g.NewRasterWriter(path, len(bandIDs), spec)
	if err != nil {
		return
	}
	for i, id := range bandIDs {
		if err = rw.WriteBand(i, data[id], id, nil); err != nil {
			rw.Close()
			return
		}
	}
	err = rw.Close()
	log.Info(g.logTag+"raster written", zap.String("path", path), zap.Int("bands", len(bandIDs)))
	return
}

// 读取栅格的单个波段（idx从1起）
func (g *Toolbox) ReadRasterBand(path string, idx int) (data []float64, md DatasetMetadata, err error) {
	if md, err = g.ReadDatasetMetadata(path); err != nil {
		return
	}
	vs, _, _, err := g.readBandsFloat(path, []int{idx}, Window{})
	if err != nil {
		return
	}
	data = vs[0]
	return
}
