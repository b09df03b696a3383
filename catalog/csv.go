package catalog

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"

	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/utils"
)

var (
	tileHeader = []string{"acquisition_id", "satellite", "x_index", "y_index", "start_datetime", "end_datetime", "dataset_type", "path"}
	cellHeader = []string{"x_index", "y_index", "count"}
)

// WriteTilesCSV writes one row per dataset of every tile.
func WriteTilesCSV(w io.Writer, tiles []*dc.Tile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tileHeader); err != nil {
		return err
	}
	for _, t := range tiles {
		types := make([]string, 0, len(t.Datasets))
		for dt := range t.Datasets {
			types = append(types, string(dt))
		}
		sort.Strings(types)
		for _, dt := range types {
			ds := t.Datasets[dc.DatasetType(dt)]
			if err := cw.Write([]string{
				strconv.FormatInt(t.AcquisitionID, 10),
				string(t.Satellite),
				strconv.Itoa(t.X),
				strconv.Itoa(t.Y),
				dc.FormatDateTime(t.StartDatetime),
				dc.FormatDateTime(t.EndDatetime),
				dt,
				ds.Path,
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCellsCSV(w io.Writer, cells []dc.Cell) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cellHeader); err != nil {
		return err
	}
	for _, c := range cells {
		if err := cw.Write([]string{strconv.Itoa(c.X), strconv.Itoa(c.Y), strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile writes through a temp file so a failed query leaves no partial csv.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	tmp := utils.GetTmpPath(path)
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	defer os.Remove(tmp)
	if err = fn(f); err != nil {
		f.Close()
		return
	}
	if err = f.Close(); err != nil {
		return
	}
	return os.Rename(tmp, path)
}

func (db *DB) ListTilesToFile(ctx context.Context, q *dc.TileQuery, path string) error {
	tiles, err := db.ListTiles(ctx, q)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WriteTilesCSV(w, tiles) })
}

func (db *DB) ListCellsToFile(ctx context.Context, q *dc.TileQuery, path string) error {
	cells, err := db.ListCells(ctx, q)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WriteCellsCSV(w, cells) })
}

func (db *DB) ListCellsMissingToFile(ctx context.Context, q *dc.TileQuery, path string) error {
	cells, err := db.ListCellsMissing(ctx, q)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WriteCellsCSV(w, cells) })
}
