package workflow

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	dc "github.com/wgdzlh/datacube"

	gdal "github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	cells   []dc.Cell
	tiles   []*dc.Tile
	queries []*dc.TileQuery
}

func (c *fakeCatalog) ListTiles(ctx context.Context, q *dc.TileQuery) ([]*dc.Tile, error) {
	c.queries = append(c.queries, q)
	return c.tiles, nil
}

func (c *fakeCatalog) ListCells(ctx context.Context, q *dc.TileQuery) ([]dc.Cell, error) {
	c.queries = append(c.queries, q)
	return c.cells, nil
}

func newWorkflow(t *testing.T, cat Catalog) *SummaryWorkflow {
	w := NewSummaryWorkflow(nil, cat)
	w.XMin, w.XMax, w.YMin, w.YMax = 120, 121, -20, -20
	w.AcqMin = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	w.AcqMax = time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)
	w.Satellites = []dc.Satellite{dc.LS5, dc.LS7}
	w.OutputDirectory = t.TempDir()
	w.Bands = []string{dc.BAND_RED, dc.BAND_NEAR_INFRARED}
	w.ChunkSizeX, w.ChunkSizeY = 1000, 3000
	return w
}

func TestSummaryValidate(t *testing.T) {
	w := newWorkflow(t, &fakeCatalog{})
	require.NoError(t, w.Validate())

	w.Satellites = append(w.Satellites, dc.LS8)
	w.Bands = []string{dc.BAND_COASTAL_AEROSOL}
	require.ErrorIs(t, w.Validate(), dc.ErrBandsNotPresent)

	w.Satellites = []dc.Satellite{dc.LS8}
	w.ChunkSizeY = 4001
	var ae *dc.ArgumentError
	require.ErrorAs(t, w.Validate(), &ae)
}

func TestSummaryGraph(t *testing.T) {
	cat := &fakeCatalog{cells: []dc.Cell{{X: 120, Y: -20, Count: 3}, {X: 121, Y: -20, Count: 1}}}
	w := newWorkflow(t, cat)
	w.PqaApply = true

	root, err := w.Root(context.Background())
	require.NoError(t, err)
	cells := root.Requires()
	require.Len(t, cells, 2)
	bands := cells[0].Requires()
	require.Len(t, bands, 2)
	// 4 columns of 1000 and 2 rows of 3000 and 1000
	chunks := bands[0].(*bandTask).chunks
	require.Len(t, chunks, 8)
	last := chunks[len(chunks)-1].win
	assert.Equal(t, dc.Window{X: 3000, Y: 3000, W: 1000, H: 1000}, last)

	require.NotEmpty(t, cat.queries)
	assert.Equal(t, []int{120, 121}, cat.queries[0].X)
	assert.Equal(t, []dc.DatasetType{dc.ARG25, dc.PQ25}, cat.queries[0].DatasetTypes)
	assert.Equal(t, []int{120}, cat.queries[1].X)
}

func TestSummaryDummyRun(t *testing.T) {
	cat := &fakeCatalog{cells: []dc.Cell{{X: 120, Y: -20, Count: 2}}}
	w := newWorkflow(t, cat)
	w.Dummy = true

	root, err := w.Root(context.Background())
	require.NoError(t, err)
	stats, err := (&Runner{Workers: 4}).Run(context.Background(), root)
	require.NoError(t, err)
	// summary, cell, 2 bands, 2x8 chunks
	assert.EqualValues(t, 20, stats.Ran)

	for _, band := range w.Bands {
		name := dc.SummaryFilename(w.Satellites, w.DatasetType, w.Statistic, band, 120, -20, w.AcqMin, w.AcqMax)
		assert.FileExists(t, filepath.Join(w.OutputDirectory, name))
	}
	chunks, err := os.ReadDir(filepath.Join(w.OutputDirectory, chunkDir))
	require.NoError(t, err)
	assert.Len(t, chunks, 16)

	// outputs exist, so a second run only re-runs the file-less tasks
	stats, err = (&Runner{Workers: 4}).Run(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Ran)
	assert.EqualValues(t, 2, stats.Skipped)
}

// writeTile writes a 2x2 raster of the given bands; ndv is set when not nil.
func writeTile(t *testing.T, g *dc.Toolbox, path string, dtype gdal.DataType, ndv *float64, bands ...[]float64) {
	t.Helper()
	ds, err := gdal.Create(gdal.GTiff, path, len(bands), dtype, 2, 2)
	require.NoError(t, err)
	defer ds.Close()
	require.NoError(t, ds.SetGeoTransform([6]float64{120, 0.5, 0, -19, 0, -0.5}))
	wkt, err := g.SridWKT(dc.UNIVERSAL_SRID)
	require.NoError(t, err)
	require.NoError(t, ds.SetProjection(wkt))
	for i, b := range ds.Bands() {
		if ndv != nil {
			require.NoError(t, b.SetNoData(*ndv))
		}
		require.NoError(t, b.Write(0, 0, bands[i], 2, 2))
	}
}

// summaryTile writes an NBAR tile whose RED band holds red and a PQA tile.
func summaryTile(t *testing.T, g *dc.Toolbox, dir string, sat dc.Satellite, acq time.Time, red, pq []float64) *dc.Tile {
	t.Helper()
	var (
		ndv   = float64(dc.NDV_NBAR)
		nbar  = filepath.Join(dir, string(sat)+"_NBAR_120_-020_"+dc.FormatDate(acq)+".tif")
		pqa   = filepath.Join(dir, string(sat)+"_PQA_120_-020_"+dc.FormatDate(acq)+".tif")
		bands [][]float64
	)
	for _, b := range dc.GetBands(dc.ARG25, sat) {
		if b.Name == dc.BAND_RED {
			bands = append(bands, red)
		} else {
			bands = append(bands, []float64{1, 1, 1, 1})
		}
	}
	writeTile(t, g, nbar, gdal.Int16, &ndv, bands...)
	writeTile(t, g, pqa, gdal.UInt16, nil, pq)
	tile := &dc.Tile{X: 120, Y: -20, Satellite: sat, StartDatetime: acq, EndDatetime: acq}
	tile.Datasets = map[dc.DatasetType]*dc.Dataset{
		dc.ARG25: {Type: dc.ARG25, Satellite: sat, Path: nbar, Bands: dc.GetBands(dc.ARG25, sat), X: 120, Y: -20, AcqDatetime: acq},
		dc.PQ25:  {Type: dc.PQ25, Satellite: sat, Path: pqa, Bands: dc.GetBands(dc.PQ25, sat), X: 120, Y: -20, AcqDatetime: acq},
	}
	return tile
}

func TestSummaryRun(t *testing.T) {
	g := dc.NewToolbox()
	defer g.Close()
	src := t.TempDir()
	good := float64(dc.PQ_MASK_CLEAR)
	cat := &fakeCatalog{
		cells: []dc.Cell{{X: 120, Y: -20, Count: 2}},
		tiles: []*dc.Tile{
			// last pixel fails the pixel quality test
			summaryTile(t, g, src, dc.LS5, time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC),
				[]float64{100, 200, dc.NDV_NBAR, 400}, []float64{good, good, good, 0}),
			summaryTile(t, g, src, dc.LS7, time.Date(2005, 7, 1, 0, 0, 0, 0, time.UTC),
				[]float64{300, dc.NDV_NBAR, dc.NDV_NBAR, 800}, []float64{good, good, good, good}),
		},
	}
	w := NewSummaryWorkflow(g, cat)
	w.cellSize = 2
	w.XMin, w.XMax, w.YMin, w.YMax = 120, 120, -20, -20
	w.AcqMin = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	w.AcqMax = time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)
	w.Satellites = []dc.Satellite{dc.LS5, dc.LS7}
	w.OutputDirectory = t.TempDir()
	w.Bands = []string{dc.BAND_RED}
	w.ChunkSizeX, w.ChunkSizeY = 1, 1
	w.PqaApply = true
	w.PqaMasks = []dc.PqaMask{dc.PQ_MASK_CLEAR}

	nan := math.NaN()
	cases := []struct {
		stat dc.Statistic
		want []float64
	}{
		{dc.MEAN, []float64{200, 200, nan, 800}},
		{dc.COUNT, []float64{2, 1, 0, 1}},
	}
	for _, c := range cases {
		t.Run(string(c.stat), func(t *testing.T) {
			w.Statistic = c.stat
			root, err := w.Root(context.Background())
			require.NoError(t, err)
			stats, err := (&Runner{Workers: 2}).Run(context.Background(), root)
			require.NoError(t, err)
			// summary, cell, band, 2x2 chunks
			assert.EqualValues(t, 7, stats.Ran)

			out := filepath.Join(w.OutputDirectory,
				dc.SummaryFilename(w.Satellites, w.DatasetType, c.stat, dc.BAND_RED, 120, -20, w.AcqMin, w.AcqMax))
			got, md, err := g.ReadRasterBand(out, 1)
			require.NoError(t, err)
			require.Len(t, got, len(c.want))
			for i, v := range c.want {
				if math.IsNaN(v) {
					assert.True(t, math.IsNaN(got[i]), "pixel %d", i)
				} else {
					assert.Equal(t, v, got[i], "pixel %d", i)
				}
			}
			assert.Equal(t, [6]float64{120, 0.5, 0, -19, 0, -0.5}, md.Transform)
			assert.Equal(t, gdal.Float32, md.DataType)

			sds, err := gdal.Open(out, gdal.RasterOnly())
			require.NoError(t, err)
			assert.Equal(t, string(c.stat), sds.Metadata(dc.MD_STATISTIC))
			assert.Equal(t, "PQ_MASK_CLEAR", sds.Metadata(dc.MD_PIXEL_QUALITY_FILTER))
			assert.Equal(t, "LS5 LS7", sds.Metadata(dc.MD_SATELLITES))
			sds.Close()

			chunks, err := os.ReadDir(filepath.Join(w.OutputDirectory, chunkDir))
			require.NoError(t, err)
			assert.Empty(t, chunks)
		})
	}
}
