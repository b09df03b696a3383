package workflow

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/log"
	"github.com/wgdzlh/datacube/utils"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

const chunkDir = "chunks"

type Catalog interface {
	dc.TileLister
	ListCells(ctx context.Context, q *dc.TileQuery) ([]dc.Cell, error)
}

// SummaryWorkflow computes a per-pixel statistic over the acquisition window
// for every cell, dataset band and chunk.
type SummaryWorkflow struct {
	XMin, XMax      int
	YMin, YMax      int
	AcqMin, AcqMax  time.Time
	Satellites      []dc.Satellite
	OutputDirectory string
	Dummy           bool
	PqaApply        bool
	PqaMasks        []dc.PqaMask
	DatasetType     dc.DatasetType
	Bands           []string
	ChunkSizeX      int
	ChunkSizeY      int
	Statistic       dc.Statistic

	g        *dc.Toolbox
	catalog  Catalog
	cellSize int // pixels along a cell side
}

func NewSummaryWorkflow(g *dc.Toolbox, catalog Catalog) *SummaryWorkflow {
	return &SummaryWorkflow{
		DatasetType: dc.ARG25,
		ChunkSizeX:  dc.CELL_SIZE_PIXELS,
		ChunkSizeY:  dc.CELL_SIZE_PIXELS,
		Statistic:   dc.MEAN,
		g:           g,
		catalog:     catalog,
		cellSize:    dc.CELL_SIZE_PIXELS,
	}
}

// Validate checks every requested band exists for every satellite.
func (w *SummaryWorkflow) Validate() error {
	for _, sat := range w.Satellites {
		if !utils.ContainsAll(dc.BandNames(w.DatasetType, sat), w.Bands) {
			log.Error("Workflow:requested bands not all present", zap.Strings("bands", w.Bands), zap.String("satellite", string(sat)))
			return fmt.Errorf("%w: %s", dc.ErrBandsNotPresent, sat)
		}
	}
	for _, cs := range []int{w.ChunkSizeX, w.ChunkSizeY} {
		if err := dc.CheckRange(cs, dc.CHUNK_SIZE_MIN, dc.CHUNK_SIZE_MAX); err != nil {
			return err
		}
	}
	return nil
}

func (w *SummaryWorkflow) LogArguments() {
	log.Info("Workflow:arguments",
		zap.Int("xMin", w.XMin), zap.Int("xMax", w.XMax), zap.Int("yMin", w.YMin), zap.Int("yMax", w.YMax),
		zap.String("acqMin", dc.FormatDate(w.AcqMin)), zap.String("acqMax", dc.FormatDate(w.AcqMax)),
		zap.String("satellites", dc.SatellitesString(w.Satellites, " ")),
		zap.String("outputDirectory", w.OutputDirectory), zap.Bool("dummy", w.Dummy),
		zap.Bool("pqaApply", w.PqaApply), zap.String("pqaMask", dc.PqaMaskNames(w.PqaMasks)),
		zap.String("datasetType", string(w.DatasetType)), zap.Strings("bands", w.Bands),
		zap.Int("chunkSizeX", w.ChunkSizeX), zap.Int("chunkSizeY", w.ChunkSizeY),
		zap.String("statistic", string(w.Statistic)))
}

func (w *SummaryWorkflow) query(xs, ys []int) *dc.TileQuery {
	types := []dc.DatasetType{w.DatasetType}
	if w.PqaApply {
		types = append(types, dc.PQ25)
	}
	return &dc.TileQuery{
		X: xs, Y: ys,
		AcqMin:       w.AcqMin,
		AcqMax:       w.AcqMax,
		Satellites:   w.Satellites,
		DatasetTypes: types,
		Sort:         dc.ASC,
	}
}

func span(lo, hi int) (ret []int) {
	for v := lo; v <= hi; v++ {
		ret = append(ret, v)
	}
	return
}

// Root builds the task graph: summary, cells, cell bands, cell band chunks.
func (w *SummaryWorkflow) Root(ctx context.Context) (Task, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	cells, err := w.catalog.ListCells(ctx, w.query(span(w.XMin, w.XMax), span(w.YMin, w.YMax)))
	if err != nil {
		return nil, err
	}
	log.Info("Workflow:cells found", zap.Int("count", len(cells)))
	root := &summaryTask{w: w}
	for _, c := range cells {
		tiles, err := w.catalog.ListTiles(ctx, w.query([]int{c.X}, []int{c.Y}))
		if err != nil {
			return nil, err
		}
		ct := &cellTask{w: w, x: c.X, y: c.Y}
		for _, band := range w.Bands {
			ct.bands = append(ct.bands, newBandTask(w, c.X, c.Y, band, tiles))
		}
		root.cells = append(root.cells, ct)
	}
	return root, nil
}

type summaryTask struct {
	w     *SummaryWorkflow
	cells []*cellTask
}

func (t *summaryTask) ID() string { return "summary" }

func (t *summaryTask) Requires() []Task {
	ret := make([]Task, len(t.cells))
	for i, c := range t.cells {
		ret[i] = c
	}
	return ret
}

func (t *summaryTask) Output() string { return "" }

func (t *summaryTask) Run(ctx context.Context) error {
	log.Info("Workflow:summary done", zap.Int("cells", len(t.cells)), zap.String("statistic", string(t.w.Statistic)))
	return nil
}

type cellTask struct {
	w     *SummaryWorkflow
	x, y  int
	bands []*bandTask
}

func (t *cellTask) ID() string { return fmt.Sprintf("cell_%03d_%04d", t.x, t.y) }

func (t *cellTask) Requires() []Task {
	ret := make([]Task, len(t.bands))
	for i, b := range t.bands {
		ret[i] = b
	}
	return ret
}

func (t *cellTask) Output() string { return "" }

func (t *cellTask) Run(ctx context.Context) error {
	log.Info("Workflow:cell done", zap.Int("x", t.x), zap.Int("y", t.y))
	return nil
}

type bandTask struct {
	w      *SummaryWorkflow
	x, y   int
	band   string
	tiles  []*dc.Tile
	chunks []*chunkTask
}

func newBandTask(w *SummaryWorkflow, x, y int, band string, tiles []*dc.Tile) *bandTask {
	t := &bandTask{w: w, x: x, y: y, band: band, tiles: tiles}
	for xOff := 0; xOff < w.cellSize; xOff += w.ChunkSizeX {
		for yOff := 0; yOff < w.cellSize; yOff += w.ChunkSizeY {
			t.chunks = append(t.chunks, &chunkTask{
				band: t,
				win: dc.Window{
					X: xOff, Y: yOff,
					W: min(w.ChunkSizeX, w.cellSize-xOff),
					H: min(w.ChunkSizeY, w.cellSize-yOff),
				},
			})
		}
	}
	return t
}

func (t *bandTask) filename() string {
	return dc.SummaryFilename(t.w.Satellites, t.w.DatasetType, t.w.Statistic, t.band, t.x, t.y, t.w.AcqMin, t.w.AcqMax)
}

func (t *bandTask) ID() string { return t.filename() }

func (t *bandTask) Requires() []Task {
	ret := make([]Task, len(t.chunks))
	for i, c := range t.chunks {
		ret[i] = c
	}
	return ret
}

func (t *bandTask) Output() string { return filepath.Join(t.w.OutputDirectory, t.filename()) }

func (t *bandTask) spec() (spec dc.RasterSpec, err error) {
	var (
		ndv = math.NaN()
		cs  = t.w.cellSize
		gt  = dc.CellTransform(t.x, t.y)
	)
	if cs != dc.CELL_SIZE_PIXELS {
		gt[1], gt[5] = 1/float64(cs), -1/float64(cs)
	}
	spec = dc.RasterSpec{
		Format:    dc.GEOTIFF,
		Transform: gt,
		SizeX:     cs,
		SizeY:     cs,
		DataType:  gdal.Float32,
		NoData:    &ndv,
	}
	spec.Projection, err = t.w.g.SridWKT(dc.UNIVERSAL_SRID)
	return
}

// Run assembles the chunk rasters into the cell raster.
func (t *bandTask) Run(ctx context.Context) (err error) {
	out := t.Output()
	if t.w.Dummy {
		return utils.WriteFileAtomic(out, nil)
	}
	cs := t.w.cellSize
	data := make([]float64, cs*cs)
	for _, c := range t.chunks {
		if err = ctx.Err(); err != nil {
			return
		}
		var v []float64
		if v, _, err = t.w.g.ReadRasterBand(c.Output(), 1); err != nil {
			return
		}
		for r := 0; r < c.win.H; r++ {
			copy(data[(c.win.Y+r)*cs+c.win.X:], v[r*c.win.W:(r+1)*c.win.W])
		}
	}
	spec, err := t.spec()
	if err != nil {
		return
	}
	spec.Metadata = dc.GenerateStackMetadata(t.x, t.y, t.w.AcqMin, t.w.AcqMax, t.w.DatasetType, t.w.Satellites,
		&dc.MaskOptions{PqaApply: t.w.PqaApply, PqaMasks: t.w.PqaMasks})
	spec.Metadata[dc.MD_STATISTIC] = string(t.w.Statistic)
	tmp := utils.GetTmpPath(out)
	if err = t.w.g.CreateRaster(tmp, []string{t.band}, map[string][]float64{t.band: data}, spec); err != nil {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return
	}
	for _, c := range t.chunks {
		os.Remove(c.Output())
	}
	return
}

type chunkTask struct {
	band *bandTask
	win  dc.Window
}

func (t *chunkTask) ID() string {
	return fmt.Sprintf("%s_%04d_%04d", t.band.filename(), t.win.X, t.win.Y)
}

func (t *chunkTask) Requires() []Task { return nil }

func (t *chunkTask) Output() string {
	b := t.band
	name := utils.GetFilenameWithoutExt(b.filename())
	return filepath.Join(b.w.OutputDirectory, chunkDir, fmt.Sprintf("%s_%04d_%04d.tif", name, t.win.X, t.win.Y))
}

// Run computes the statistic of every pixel of the chunk over all tiles.
func (t *chunkTask) Run(ctx context.Context) (err error) {
	var (
		b   = t.band
		w   = b.w
		out = t.Output()
		n   = t.win.W * t.win.H
	)
	if err = os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return
	}
	if w.Dummy {
		return utils.WriteFileAtomic(out, nil)
	}
	series := make([][]float64, n)
	for _, tile := range b.tiles {
		if err = ctx.Err(); err != nil {
			return
		}
		ds, ok := tile.Datasets[w.DatasetType]
		if !ok {
			continue
		}
		var pqa *dc.Dataset
		if w.PqaApply {
			pqa = tile.Datasets[dc.PQ25]
		}
		var vals []float64
		if vals, err = t.readTile(ds, pqa); err != nil {
			return
		}
		for i, v := range vals {
			if !math.IsNaN(v) {
				series[i] = append(series[i], v)
			}
		}
	}
	stat := make([]float64, n)
	for i, s := range series {
		stat[i] = dc.ComputeStatistic(s, w.Statistic, math.NaN())
	}
	spec, err := b.spec()
	if err != nil {
		return
	}
	spec.SizeX, spec.SizeY = t.win.W, t.win.H
	spec.Transform[0] += float64(t.win.X) * spec.Transform[1]
	spec.Transform[3] += float64(t.win.Y) * spec.Transform[5]
	tmp := utils.GetTmpPath(out)
	if err = w.g.CreateRaster(tmp, []string{b.band}, map[string][]float64{b.band: stat}, spec); err != nil {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
	}
	log.Debug("Workflow:chunk done", zap.String("chunk", t.ID()), zap.Int("tiles", len(b.tiles)))
	return
}

// readTile reads the chunk window of one tile with invalid pixels set to NaN.
func (t *chunkTask) readTile(ds, pqa *dc.Dataset) (vals []float64, err error) {
	w := t.band.w
	var mask dc.Mask
	if pqa != nil {
		var v []uint16
		if v, err = w.g.ReadPqa(pqa, t.win); err != nil {
			return
		}
		if mask, err = dc.MaskPqa(v, w.PqaMasks, nil); err != nil {
			return
		}
	}
	ndv, hasNdv := w.g.DatasetNoData(ds)
	data, err := w.g.ReadDatasetWindow(ds, []string{t.band.band}, t.win)
	if err != nil {
		return
	}
	vals = data[t.band.band]
	if hasNdv {
		for i, v := range vals {
			if v == ndv {
				vals[i] = math.NaN()
			}
		}
	}
	err = dc.ApplyMask(vals, mask, math.NaN())
	return
}
