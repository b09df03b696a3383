package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/log"

	"go.uber.org/zap"
)

var (
	// LS7 scan line corrector failed on this date
	ls7SlcOffFrom = time.Date(2003, time.May, 31, 0, 0, 0, 0, time.UTC)
	// LS8 scenes before this date are not on the WRS-2 grid
	ls8Wrs2From = time.Date(2013, time.April, 11, 0, 0, 0, 0, time.UTC)
)

// TileRecord is one dataset file of an acquisition over a cell.
type TileRecord struct {
	AcquisitionID int64
	X, Y          int
	DatasetType   dc.DatasetType
	Path          string
	Class         int
	SizeMB        float64
}

// AddAcquisition returns the id of the acquisition, inserting it if new.
func (db *DB) AddAcquisition(ctx context.Context, sat dc.Satellite, start, end time.Time) (id int64, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT acquisition_id FROM acquisition WHERE satellite = ? AND start_datetime = ?`,
		string(sat), start.Unix()).Scan(&id)
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO acquisition (satellite, start_datetime, end_datetime) VALUES (?, ?, ?)`,
		string(sat), start.Unix(), end.Unix())
	if err != nil {
		return
	}
	return res.LastInsertId()
}

// AddTile records a tile. Recreating an existing tile is an error.
func (db *DB) AddTile(ctx context.Context, t *TileRecord) (id int64, err error) {
	if t.Class == 0 {
		t.Class = TileClassSingle
	}
	var n int
	if err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM acquisition WHERE acquisition_id = ?`, t.AcquisitionID).Scan(&n); err != nil {
		return
	}
	if n == 0 {
		err = fmt.Errorf("%w: %d", ErrAcquisitionAbsent, t.AcquisitionID)
		return
	}
	err = db.QueryRowContext(ctx,
		`SELECT tile_id FROM tile WHERE acquisition_id = ? AND x_index = ? AND y_index = ? AND dataset_type = ?`,
		t.AcquisitionID, t.X, t.Y, string(t.DatasetType)).Scan(&id)
	if err == nil {
		log.Error("Catalog:tile exists", zap.Int64("tile", id), zap.String("path", t.Path))
		err = ErrTileExists
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return
	}
	ext := dc.DefaultTileType.Extents(t.X, t.Y)
	res, err := db.ExecContext(ctx, `INSERT INTO tile
		(acquisition_id, x_index, y_index, dataset_type, tile_pathname, tile_class_id, tile_size, x_min, y_min, x_max, y_max, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AcquisitionID, t.X, t.Y, string(t.DatasetType), t.Path, t.Class, t.SizeMB,
		ext[0], ext[1], ext[2], ext[3], time.Now().Unix())
	if err != nil {
		return
	}
	return res.LastInsertId()
}

// whereClause builds the shared filter of tile queries.
func whereClause(q *dc.TileQuery) (string, []any) {
	var (
		conds = []string{fmt.Sprintf("t.tile_class_id IN (%d, %d)", TileClassSingle, TileClassMosaic)}
		args  []any
	)
	in := func(col string, n int) string {
		return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
	}
	if len(q.X) > 0 {
		conds = append(conds, in("t.x_index", len(q.X)))
		for _, v := range q.X {
			args = append(args, v)
		}
	}
	if len(q.Y) > 0 {
		conds = append(conds, in("t.y_index", len(q.Y)))
		for _, v := range q.Y {
			args = append(args, v)
		}
	}
	if !q.AcqMin.IsZero() {
		conds = append(conds, "a.end_datetime >= ?")
		args = append(args, q.AcqMin.Unix())
	}
	if !q.AcqMax.IsZero() {
		// inclusive of the whole last day
		conds = append(conds, "a.end_datetime < ?")
		args = append(args, q.AcqMax.AddDate(0, 0, 1).Unix())
	}
	if len(q.Satellites) > 0 {
		conds = append(conds, in("a.satellite", len(q.Satellites)))
		for _, v := range q.Satellites {
			args = append(args, string(v))
		}
	}
	if types := storageTypes(q.DatasetTypes); len(types) > 0 {
		conds = append(conds, in("t.dataset_type", len(types)))
		for _, v := range types {
			args = append(args, string(v))
		}
	}
	if len(q.Months) > 0 {
		conds = append(conds, in("CAST(strftime('%m', a.end_datetime, 'unixepoch') AS INTEGER)", len(q.Months)))
		for _, v := range q.Months {
			args = append(args, int(v))
		}
	}
	for _, ex := range q.Exclude {
		switch ex {
		case dc.LS7_SLC_OFF:
			conds = append(conds, "NOT (a.satellite = ? AND a.end_datetime >= ?)")
			args = append(args, string(dc.LS7), ls7SlcOffFrom.Unix())
		case dc.LS8_PRE_WRS_2:
			conds = append(conds, "NOT (a.satellite = ? AND a.end_datetime < ?)")
			args = append(args, string(dc.LS8), ls8Wrs2From.Unix())
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// storageTypes maps derived types onto the stored type they are computed from.
func storageTypes(types []dc.DatasetType) (ret []dc.DatasetType) {
	seen := map[dc.DatasetType]bool{}
	for _, t := range types {
		s := t.Storage()
		if !seen[s] {
			seen[s] = true
			ret = append(ret, s)
		}
	}
	return
}

type tileKey struct {
	acq  int64
	x, y int
}

// ListTiles returns the tiles matching q. A tile is returned only when it
// carries every requested dataset type. Derived types are served by the
// ARG25 dataset of the tile.
func (db *DB) ListTiles(ctx context.Context, q *dc.TileQuery) (tiles []*dc.Tile, err error) {
	where, args := whereClause(q)
	order := "ASC"
	if q.Sort == dc.DESC {
		order = "DESC"
	}
	query := `SELECT a.acquisition_id, a.satellite, a.start_datetime, a.end_datetime,
		t.x_index, t.y_index, t.dataset_type, t.tile_pathname
		FROM tile t JOIN acquisition a ON a.acquisition_id = t.acquisition_id` + where +
		` ORDER BY a.end_datetime ` + order + `, t.x_index, t.y_index, t.dataset_type`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return
	}
	defer rows.Close()
	byKey := map[tileKey]*dc.Tile{}
	for rows.Next() {
		var (
			k          tileKey
			sat, dtype string
			path       string
			start, end int64
		)
		if err = rows.Scan(&k.acq, &sat, &start, &end, &k.x, &k.y, &dtype, &path); err != nil {
			return
		}
		tile, ok := byKey[k]
		if !ok {
			tile = &dc.Tile{
				AcquisitionID: k.acq,
				X:             k.x,
				Y:             k.y,
				Satellite:     dc.Satellite(sat),
				StartDatetime: time.Unix(start, 0).UTC(),
				EndDatetime:   time.Unix(end, 0).UTC(),
				Datasets:      map[dc.DatasetType]*dc.Dataset{},
			}
			byKey[k] = tile
			tiles = append(tiles, tile)
		}
		dt := dc.DatasetType(dtype)
		tile.Datasets[dt] = newDataset(dt, tile, path)
	}
	if err = rows.Err(); err != nil {
		return
	}
	tiles = completeTiles(tiles, q.DatasetTypes)
	log.Debug("Catalog:list tiles", zap.Int("tiles", len(tiles)))
	return
}

func newDataset(dt dc.DatasetType, tile *dc.Tile, path string) *dc.Dataset {
	return &dc.Dataset{
		Type:        dt,
		Satellite:   tile.Satellite,
		Path:        path,
		Bands:       dc.GetBands(dt, tile.Satellite),
		X:           tile.X,
		Y:           tile.Y,
		AcqDatetime: tile.EndDatetime,
	}
}

// completeTiles keeps tiles holding all requested types and adds derived
// datasets on top of ARG25.
func completeTiles(tiles []*dc.Tile, types []dc.DatasetType) []*dc.Tile {
	ret := tiles[:0]
	for _, tile := range tiles {
		ok := true
		for _, dt := range types {
			if _, has := tile.Datasets[dt.Storage()]; !has {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, dt := range types {
			if dt.IsDerived() {
				tile.Datasets[dt] = newDataset(dt, tile, tile.Datasets[dc.ARG25].Path)
			}
		}
		ret = append(ret, tile)
	}
	return ret
}

// ListCells returns the cells with matching tiles and the tile count of each,
// ordered by x then y.
func (db *DB) ListCells(ctx context.Context, q *dc.TileQuery) (cells []dc.Cell, err error) {
	tiles, err := db.ListTiles(ctx, q)
	if err != nil {
		return
	}
	idx := map[[2]int]int{}
	for _, t := range tiles {
		k := [2]int{t.X, t.Y}
		i, ok := idx[k]
		if !ok {
			i = len(cells)
			idx[k] = i
			cells = append(cells, dc.Cell{X: t.X, Y: t.Y})
		}
		cells[i].Count++
	}
	sortCells(cells)
	return
}

// ListCellsMissing returns the cells of the q.X by q.Y grid without any
// matching tile.
func (db *DB) ListCellsMissing(ctx context.Context, q *dc.TileQuery) (cells []dc.Cell, err error) {
	have, err := db.ListCells(ctx, q)
	if err != nil {
		return
	}
	present := map[[2]int]bool{}
	for _, c := range have {
		present[[2]int{c.X, c.Y}] = true
	}
	for _, x := range q.X {
		for _, y := range q.Y {
			if !present[[2]int{x, y}] {
				cells = append(cells, dc.Cell{X: x, Y: y})
			}
		}
	}
	sortCells(cells)
	return
}

func sortCells(cells []dc.Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})
}
