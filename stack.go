package datacube

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/wgdzlh/datacube/log"

	"go.uber.org/zap"
)

// 按波段生成时间序列堆栈
type RetrieveDatasetStackTool struct {
	CellArgs
	DatasetType     DatasetType
	BandList        BandListType
	Bands           []string // BandList为EXPLICIT时使用
	OutputDirectory string
	Overwrite       bool
	ListOnly        bool
	OutputFormat    OutputFormat

	tiles  TileLister
	g      *Toolbox
	logTag string
}

func NewRetrieveDatasetStackTool(g *Toolbox, tiles TileLister) *RetrieveDatasetStackTool {
	return &RetrieveDatasetStackTool{
		DatasetType:  ARG25,
		BandList:     BandsAll,
		OutputFormat: GEOTIFF,
		tiles:        tiles,
		g:            g,
		logTag:       "RetrieveDatasetStack:",
	}
}

func (t *RetrieveDatasetStackTool) bandNames() []string {
	return ResolveBandNames(t.DatasetType, t.BandList, t.Bands, t.Satellites...)
}

func (t *RetrieveDatasetStackTool) LogArguments() {
	log.Info(t.logTag+"arguments", append(t.logFields(),
		zap.String("datasetType", string(t.DatasetType)), zap.Strings("bands", t.bandNames()),
		zap.String("outputDirectory", t.OutputDirectory), zap.Bool("overwrite", t.Overwrite),
		zap.Bool("listOnly", t.ListOnly), zap.String("outputFormat", string(t.OutputFormat)))...)
}

// 返回生成的堆栈文件
func (t *RetrieveDatasetStackTool) Run(ctx context.Context) (written []string, err error) {
	mask, err := t.g.cellVectorMask(&t.CellArgs)
	if err != nil {
		return
	}
	tiles, err := t.tiles.ListTiles(ctx, t.tileQuery(t.DatasetType))
	if err != nil {
		return
	}
	log.Info(t.logTag+"tiles found", zap.Int("count", len(tiles)))
	for _, band := range t.bandNames() {
		if err = ctx.Err(); err != nil {
			return
		}
		var path string
		if path, err = t.stackBand(band, tiles, mask); err != nil {
			return
		}
		if path != "" {
			written = append(written, path)
		}
	}
	return
}

func (t *RetrieveDatasetStackTool) relevantTiles(band string, tiles []*Tile) (relevant []*Tile) {
	for _, tile := range tiles {
		ds, ok := tile.Datasets[t.DatasetType]
		if !ok {
			log.Info(t.logTag+"no applicable dataset", zap.String("type", string(t.DatasetType)), zap.Time("acq", tile.EndDatetime))
			continue
		}
		if _, ok = ds.Band(band); ok {
			relevant = append(relevant, tile)
		}
	}
	return
}

func (t *RetrieveDatasetStackTool) stackBand(band string, tiles []*Tile, vmask Mask) (path string, err error) {
	relevant := t.relevantTiles(band, tiles)
	log.Info(t.logTag+"creating stack for band", zap.String("band", band), zap.Int("tiles", len(relevant)))
	if len(relevant) == 0 {
		return
	}
	if t.ListOnly {
		for _, tile := range relevant {
			log.Info(t.logTag+"would stack band", zap.String("band", band), zap.String("dataset", tile.Datasets[t.DatasetType].Path))
		}
		return
	}
	path = filepath.Join(t.OutputDirectory, DatasetBandStackFilename(t.Satellites, t.DatasetType, band, t.X, t.Y,
		t.AcqMin, t.AcqMax, t.OutputFormat, t.Mask.PqaApply, t.Mask.WofsApply, t.Mask.VectorApply))
	if _, e := os.Stat(path); e == nil && !t.Overwrite {
		log.Error(t.logTag+"output file exists", zap.String("path", path))
		err = fmt.Errorf("%w: %s", ErrOutputExists, path)
		return
	}
	first := relevant[0].Datasets[t.DatasetType]
	md, err := t.g.ReadDatasetMetadata(first.Path)
	if err != nil {
		return
	}
	ndv, hasNdv := t.g.DatasetNoData(first)
	spec := RasterSpec{
		Format:     t.OutputFormat,
		Transform:  md.Transform,
		Projection: md.Projection,
		SizeX:      md.SizeX,
		SizeY:      md.SizeY,
		DataType:   DataTypeOf(t.DatasetType),
		Metadata:   GenerateStackMetadata(t.X, t.Y, t.AcqMin, t.AcqMax, t.DatasetType, t.Satellites, &t.Mask),
		Options:    GeoTiffStackCreateOptions,
	}
	if t.OutputFormat == ENVI {
		spec.Options = EnviCreateOptions
	}
	// 无无效值的源（如PQ25）中0为有效值，统计时不应剔除
	statNdv := math.NaN()
	if hasNdv {
		spec.NoData = &ndv
		statNdv = ndv
	}
	rw, err := t.g.NewRasterWriter(path, len(relevant), spec)
	if err != nil {
		return
	}
	defer func() {
		if e := rw.Close(); err == nil {
			err = e
		}
	}()
	for i, tile := range relevant {
		ds := tile.Datasets[t.DatasetType]
		var pqa, wofs *Dataset
		if t.Mask.PqaApply {
			pqa = tile.Datasets[PQ25]
		}
		if t.Mask.WofsApply {
			wofs = tile.Datasets[WATER]
		}
		var (
			mask Mask
			data map[string][]float64
		)
		if mask, err = t.g.tileMask(vmask, pqa, t.Mask.PqaMasks, wofs, t.Mask.WofsMasks, Window{}); err != nil {
			return
		}
		log.Info(t.logTag+"stacking band", zap.String("band", band), zap.String("dataset", ds.Path),
			zap.Bool("pqa", pqa != nil), zap.Bool("wofs", wofs != nil), zap.String("path", path))
		if data, err = t.g.ReadDatasetDataMasked(ds, []string{band}, mask, ndv); err != nil {
			return
		}
		values := data[band]
		bmd := map[string]string{
			MD_ACQ_DATE:  FormatDate(tile.EndDatetime),
			MD_SATELLITE: string(ds.Satellite),
		}
		if st, ok := ComputeBandStats(values, statNdv); ok {
			for k, v := range st.Metadata() {
				bmd[k] = v
			}
		}
		if err = rw.WriteBand(i, values, filepath.Base(ds.Path), bmd); err != nil {
			return
		}
	}
	log.Info(t.logTag+"stack written", zap.String("band", band), zap.String("path", path), zap.Int("layers", len(relevant)))
	return
}
