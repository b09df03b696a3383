package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dc "github.com/wgdzlh/datacube"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	sat   dc.Satellite
	acq   time.Time
	x, y  int
	types []dc.DatasetType
}

func seed(t *testing.T, db *DB, fs ...fixture) {
	t.Helper()
	ctx := context.Background()
	for _, f := range fs {
		id, err := db.AddAcquisition(ctx, f.sat, f.acq, f.acq.Add(30*time.Second))
		require.NoError(t, err)
		for _, dt := range f.types {
			token := map[dc.DatasetType]string{dc.ARG25: "NBAR", dc.PQ25: "PQA", dc.FC25: "FC", dc.WATER: "WATER"}[dt]
			path := filepath.Join("/data", string(f.sat)+"_"+token+"_"+f.acq.Format("2006-01-02")+".tif")
			_, err = db.AddTile(ctx, &TileRecord{AcquisitionID: id, X: f.x, Y: f.y, DatasetType: dt, Path: path})
			require.NoError(t, err)
		}
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// already at latest
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestAddTileTwice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id, err := db.AddAcquisition(ctx, dc.LS5, date(2006, 1, 2), date(2006, 1, 2))
	require.NoError(t, err)
	again, err := db.AddAcquisition(ctx, dc.LS5, date(2006, 1, 2), date(2006, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	rec := &TileRecord{AcquisitionID: id, X: 120, Y: -20, DatasetType: dc.ARG25, Path: "/a.tif"}
	_, err = db.AddTile(ctx, rec)
	require.NoError(t, err)
	_, err = db.AddTile(ctx, rec)
	assert.ErrorIs(t, err, ErrTileExists)

	_, err = db.AddTile(ctx, &TileRecord{AcquisitionID: id + 100, X: 120, Y: -20, DatasetType: dc.PQ25, Path: "/b.tif"})
	assert.ErrorIs(t, err, ErrAcquisitionAbsent)

	var ext [4]float64
	require.NoError(t, db.QueryRow(`SELECT x_min, y_min, x_max, y_max FROM tile`).Scan(&ext[0], &ext[1], &ext[2], &ext[3]))
	assert.Equal(t, [4]float64{120, -20, 121, -19}, ext)
}

func TestListTilesRequiresAllTypes(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db,
		fixture{dc.LS5, date(2006, 1, 2), 120, -20, []dc.DatasetType{dc.ARG25, dc.PQ25}},
		fixture{dc.LS5, date(2006, 2, 3), 120, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS7, date(2006, 3, 4), 120, -20, []dc.DatasetType{dc.ARG25, dc.PQ25, dc.WATER}},
	)
	tiles, err := db.ListTiles(context.Background(), &dc.TileQuery{
		X: []int{120}, Y: []int{-20},
		Satellites:   []dc.Satellite{dc.LS5, dc.LS7},
		DatasetTypes: []dc.DatasetType{dc.ARG25, dc.PQ25},
	})
	require.NoError(t, err)
	require.Len(t, tiles, 2)

	got := []time.Time{tiles[0].EndDatetime.Truncate(24 * time.Hour), tiles[1].EndDatetime.Truncate(24 * time.Hour)}
	if diff := cmp.Diff([]time.Time{date(2006, 1, 2), date(2006, 3, 4)}, got); diff != "" {
		t.Errorf("acquisition dates mismatch (-want +got):\n%s", diff)
	}
	ds := tiles[1].Datasets[dc.ARG25]
	assert.Equal(t, dc.LS7, ds.Satellite)
	assert.Len(t, ds.Bands, 6)
	assert.Contains(t, tiles[1].Datasets, dc.WATER)
}

func TestListTilesDerivedAndFilters(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db,
		fixture{dc.LS5, date(2006, 1, 2), 120, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS7, date(2004, 7, 1), 120, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS8, date(2013, 3, 1), 120, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS8, date(2014, 1, 5), 121, -20, []dc.DatasetType{dc.ARG25}},
	)
	ctx := context.Background()

	tiles, err := db.ListTiles(ctx, &dc.TileQuery{DatasetTypes: []dc.DatasetType{dc.NDVI}})
	require.NoError(t, err)
	require.Len(t, tiles, 4)
	for _, tile := range tiles {
		ndvi := tile.Datasets[dc.NDVI]
		require.NotNil(t, ndvi)
		assert.Equal(t, tile.Datasets[dc.ARG25].Path, ndvi.Path)
		assert.Equal(t, []dc.Band{{Name: "NDVI", Index: 1}}, ndvi.Bands)
	}

	tiles, err = db.ListTiles(ctx, &dc.TileQuery{
		DatasetTypes: []dc.DatasetType{dc.ARG25},
		Exclude:      []dc.Exclusion{dc.LS7_SLC_OFF, dc.LS8_PRE_WRS_2},
	})
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	assert.Equal(t, dc.LS5, tiles[0].Satellite)
	assert.Equal(t, 121, tiles[1].X)

	tiles, err = db.ListTiles(ctx, &dc.TileQuery{Months: dc.SUMMER.Months(), Sort: dc.DESC})
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	assert.Equal(t, dc.LS8, tiles[0].Satellite)

	tiles, err = db.ListTiles(ctx, &dc.TileQuery{AcqMin: date(2006, 1, 1), AcqMax: date(2006, 1, 2)})
	require.NoError(t, err)
	require.Len(t, tiles, 1, "acq max includes the whole day")
}

func TestListCells(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db,
		fixture{dc.LS5, date(2006, 1, 2), 121, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS5, date(2006, 1, 2), 120, -20, []dc.DatasetType{dc.ARG25}},
		fixture{dc.LS5, date(2006, 2, 3), 120, -20, []dc.DatasetType{dc.ARG25}},
	)
	ctx := context.Background()
	q := &dc.TileQuery{X: []int{120, 121, 122}, Y: []int{-20}, DatasetTypes: []dc.DatasetType{dc.ARG25}}

	cells, err := db.ListCells(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []dc.Cell{{X: 120, Y: -20, Count: 2}, {X: 121, Y: -20, Count: 1}}, cells)

	missing, err := db.ListCellsMissing(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []dc.Cell{{X: 122, Y: -20}}, missing)

	var buf bytes.Buffer
	require.NoError(t, WriteCellsCSV(&buf, cells))
	assert.Equal(t, "x_index,y_index,count\n120,-20,2\n121,-20,1\n", buf.String())
}

func TestListTilesToFile(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, fixture{dc.LS5, date(2006, 1, 2), 120, -20, []dc.DatasetType{dc.ARG25, dc.PQ25}})
	path := filepath.Join(t.TempDir(), "tiles.csv")
	require.NoError(t, db.ListTilesToFile(context.Background(), &dc.TileQuery{}, path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "acquisition_id,satellite"))
	assert.Contains(t, lines[1], ",ARG25,")
	assert.Contains(t, lines[2], ",PQ25,")
}
