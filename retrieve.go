package datacube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wgdzlh/datacube/log"

	"go.uber.org/zap"
)

// cell工具的公共参数
type CellArgs struct {
	X, Y       int
	AcqMin     time.Time
	AcqMax     time.Time
	Satellites []Satellite
	Mask       MaskOptions
}

// 追加掩膜所需的数据类型
func (a *CellArgs) queryTypes(types ...DatasetType) []DatasetType {
	ret := append([]DatasetType(nil), types...)
	if a.Mask.PqaApply && !containsType(ret, PQ25) {
		ret = append(ret, PQ25)
	}
	if a.Mask.WofsApply && !containsType(ret, WATER) {
		ret = append(ret, WATER)
	}
	return ret
}

func (a *CellArgs) tileQuery(types ...DatasetType) *TileQuery {
	return &TileQuery{
		X:            []int{a.X},
		Y:            []int{a.Y},
		AcqMin:       a.AcqMin,
		AcqMax:       a.AcqMax,
		Satellites:   a.Satellites,
		DatasetTypes: a.queryTypes(types...),
		Sort:         ASC,
	}
}

func (a *CellArgs) logFields() []zap.Field {
	return []zap.Field{
		zap.Int("x", a.X), zap.Int("y", a.Y),
		zap.String("acqMin", FormatDate(a.AcqMin)), zap.String("acqMax", FormatDate(a.AcqMax)),
		zap.String("satellites", SatellitesString(a.Satellites, " ")),
		zap.Bool("pqaApply", a.Mask.PqaApply), zap.String("pqaMask", PqaMaskNames(a.Mask.PqaMasks)),
		zap.Bool("wofsApply", a.Mask.WofsApply), zap.String("wofsMask", WofsMaskNames(a.Mask.WofsMasks)),
		zap.Bool("vectorApply", a.Mask.VectorApply), zap.String("vectorFile", a.Mask.VectorFile),
		zap.Int("vectorLayer", a.Mask.VectorLayer), zap.Int("vectorFeature", a.Mask.VectorFeat),
	}
}

func containsType(types []DatasetType, t DatasetType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

// 矢量掩膜（如需），整次运行只计算一次
func (g *Toolbox) cellVectorMask(a *CellArgs) (mask Mask, err error) {
	if !a.Mask.VectorApply {
		return
	}
	return g.VectorMaskForCell(a.X, a.Y, a.Mask.VectorFile, a.Mask.VectorLayer, a.Mask.VectorFeat)
}

// 按瓦片导出数据集
type RetrieveDatasetTool struct {
	CellArgs
	DatasetTypes    []DatasetType
	OutputDirectory string
	Overwrite       bool
	ListOnly        bool
	OutputFormat    OutputFormat

	tiles  TileLister
	g      *Toolbox
	logTag string
}

func NewRetrieveDatasetTool(g *Toolbox, tiles TileLister) *RetrieveDatasetTool {
	return &RetrieveDatasetTool{
		OutputFormat: GEOTIFF,
		tiles:        tiles,
		g:            g,
		logTag:       "RetrieveDataset:",
	}
}

func (t *RetrieveDatasetTool) LogArguments() {
	types := make([]string, len(t.DatasetTypes))
	for i, dt := range t.DatasetTypes {
		types[i] = string(dt)
	}
	log.Info(t.logTag+"arguments", append(t.logFields(),
		zap.Strings("datasetTypes", types), zap.String("outputDirectory", t.OutputDirectory),
		zap.Bool("overwrite", t.Overwrite), zap.Bool("listOnly", t.ListOnly),
		zap.String("outputFormat", string(t.OutputFormat)))...)
}

// 导出的文件路径（list-only时为空）
func (t *RetrieveDatasetTool) Run(ctx context.Context) (written []string, err error) {
	mask, err := t.g.cellVectorMask(&t.CellArgs)
	if err != nil {
		return
	}
	tiles, err := t.tiles.ListTiles(ctx, t.tileQuery(t.DatasetTypes...))
	if err != nil {
		return
	}
	log.Info(t.logTag+"tiles found", zap.Int("count", len(tiles)))
	for _, tile := range tiles {
		if err = ctx.Err(); err != nil {
			return
		}
		if t.ListOnly {
			var paths []string
			for _, dt := range t.DatasetTypes {
				if ds, ok := tile.Datasets[dt]; ok {
					paths = append(paths, ds.Path)
				}
			}
			log.Info(t.logTag+"would retrieve datasets", zap.String("datasets", strings.Join(paths, "\n")))
			continue
		}
		var pqa, wofs *Dataset
		if t.Mask.PqaApply {
			pqa = tile.Datasets[PQ25]
		}
		if t.Mask.WofsApply {
			wofs = tile.Datasets[WATER]
		}
		for _, dt := range t.DatasetTypes {
			ds, ok := tile.Datasets[dt]
			if !ok {
				log.Debug(t.logTag+"dataset not present, skipping", zap.String("type", string(dt)),
					zap.Time("acq", tile.EndDatetime))
				continue
			}
			path := filepath.Join(t.OutputDirectory,
				DatasetFilename(ds, dt, t.OutputFormat, t.Mask.PqaApply, t.Mask.WofsApply, t.Mask.VectorApply))
			if err = t.g.RetrieveData(&RetrieveRequest{
				X:         tile.X,
				Y:         tile.Y,
				AcqDate:   tile.EndDatetime,
				Dataset:   ds,
				Pqa:       pqa,
				PqaMasks:  t.Mask.PqaMasks,
				Wofs:      wofs,
				WofsMasks: t.Mask.WofsMasks,
				Path:      path,
				Format:    t.OutputFormat,
				Overwrite: t.Overwrite,
				Mask:      mask,
			}); err != nil {
				return
			}
			written = append(written, path)
		}
	}
	return
}

// 单个数据集的导出请求
type RetrieveRequest struct {
	X, Y      int
	AcqDate   time.Time
	Dataset   *Dataset
	Pqa       *Dataset
	PqaMasks  []PqaMask
	Wofs      *Dataset
	WofsMasks []WofsMask
	Path      string
	Format    OutputFormat
	Overwrite bool
	Mask      Mask // 初始掩膜（如矢量掩膜），不会被修改
}

// 读取数据集、叠加掩膜并写出栅格
func (g *Toolbox) RetrieveData(req *RetrieveRequest) (err error) {
	ds := req.Dataset
	fields := []zap.Field{zap.String("dataset", ds.Path), zap.String("format", string(req.Format)), zap.String("path", req.Path)}
	if req.Pqa != nil {
		fields = append(fields, zap.String("pqa", req.Pqa.Path), zap.String("pqaMask", PqaMaskNames(req.PqaMasks)))
	}
	if req.Wofs != nil {
		fields = append(fields, zap.String("wofs", req.Wofs.Path), zap.String("wofsMask", WofsMaskNames(req.WofsMasks)))
	}
	log.Info(g.logTag+"retrieving data", fields...)

	if _, e := os.Stat(req.Path); e == nil && !req.Overwrite {
		log.Error(g.logTag+"output file exists", zap.String("path", req.Path))
		err = fmt.Errorf("%w: %s", ErrOutputExists, req.Path)
		return
	}
	md, err := g.ReadDatasetMetadata(ds.Path)
	if err != nil {
		return
	}
	mask, err := g.tileMask(req.Mask, req.Pqa, req.PqaMasks, req.Wofs, req.WofsMasks, Window{})
	if err != nil {
		return
	}
	ndv, hasNdv := g.DatasetNoData(ds)
	data, err := g.ReadDatasetDataMasked(ds, nil, mask, ndv)
	if err != nil {
		return
	}
	mo := &MaskOptions{PqaApply: req.Pqa != nil, PqaMasks: req.PqaMasks, WofsApply: req.Wofs != nil, WofsMasks: req.WofsMasks}
	spec := RasterSpec{
		Format:     req.Format,
		Transform:  md.Transform,
		Projection: md.Projection,
		SizeX:      md.SizeX,
		SizeY:      md.SizeY,
		DataType:   DataTypeOf(ds.Type),
		Metadata:   GenerateRasterMetadata(req.X, req.Y, req.AcqDate, ds.Type, ds.Satellite, mo),
	}
	if hasNdv {
		spec.NoData = &ndv
	}
	bandIDs := make([]string, len(ds.Bands))
	for i, b := range ds.Bands {
		bandIDs[i] = b.Name
	}
	return g.CreateRaster(req.Path, bandIDs, data, spec)
}

// 由初始掩膜叠加PQA、WOFS掩膜，base不会被修改
func (g *Toolbox) tileMask(base Mask, pqa *Dataset, pqaMasks []PqaMask, wofs *Dataset, wofsMasks []WofsMask, win Window) (mask Mask, err error) {
	mask = base.Clone()
	if pqa != nil {
		var v []uint16
		if v, err = g.ReadPqa(pqa, win); err != nil {
			return
		}
		if mask, err = MaskPqa(v, pqaMasks, mask); err != nil {
			return
		}
	}
	if wofs != nil {
		var v []uint8
		if v, err = g.ReadWofs(wofs, win); err != nil {
			return
		}
		if mask, err = MaskWofs(v, wofsMasks, mask); err != nil {
			return
		}
	}
	return
}
