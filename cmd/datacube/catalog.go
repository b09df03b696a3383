package main

import (
	"fmt"
	"os"
	"time"

	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/catalog"

	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the tile catalogue",
	}
	cmd.AddCommand(newMigrateCmd(a), newAddTileCmd(a))
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Migrate the catalogue schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			db, err := catalog.Open(a.v.GetString("database"))
			if err != nil {
				return err
			}
			defer db.Close()
			switch action {
			case "up":
				err = db.MigrateUp()
			case "down":
				err = db.MigrateDown()
			}
			if err != nil {
				return err
			}
			version, dirty, err := db.MigrateVersion()
			if err != nil {
				return err
			}
			if dirty {
				a.printWarning("catalogue %s at version %d (dirty)", db.Path(), version)
				return nil
			}
			a.printInfo("catalogue %s at version %d", db.Path(), version)
			return nil
		},
	}
}

func parseDatetime(arg, s string) (t time.Time, err error) {
	if t, err = time.Parse(dc.DATETIME_FORMAT, s); err == nil {
		return
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return
	}
	return t, &dc.ArgumentError{Arg: arg, Value: s, Reason: "is not a valid date time"}
}

func newAddTileCmd(a *app) *cobra.Command {
	var (
		satellite   string
		start, end  string
		x, y        int
		datasetType string
		path        string
		class       int
	)
	cmd := &cobra.Command{
		Use:   "add-tile",
		Short: "Record a tile file of an acquisition in the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			sat, err := dc.ParseSatellite(satellite)
			if err != nil {
				return dc.WithArg(err, "--satellite")
			}
			startTime, err := parseDatetime("--start", start)
			if err != nil {
				return err
			}
			endTime := startTime
			if end != "" {
				if endTime, err = parseDatetime("--end", end); err != nil {
					return err
				}
			}
			if err = checkRange("--x", x, dc.X_MIN, dc.X_MAX); err != nil {
				return err
			}
			if err = checkRange("--y", y, dc.Y_MIN, dc.Y_MAX); err != nil {
				return err
			}
			dt, err := dc.ParseDatasetType(datasetType, dc.DatabaseDatasetTypes)
			if err != nil {
				return dc.WithArg(err, "--dataset-type")
			}
			if err = dc.WithArg(dc.ReadableFile(path), "--path"); err != nil {
				return err
			}
			switch class {
			case catalog.TileClassSingle, catalog.TileClassOverlapSource, catalog.TileClassMosaic:
			default:
				return &dc.ArgumentError{Arg: "--class", Value: fmt.Sprint(class), Reason: "is not a supported tile class"}
			}
			var sizeMB float64
			if fi, err := os.Stat(path); err == nil {
				sizeMB = float64(fi.Size()) / (1 << 20)
			}

			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			acq, err := db.AddAcquisition(cmd.Context(), sat, startTime, endTime)
			if err != nil {
				return err
			}
			id, err := db.AddTile(cmd.Context(), &catalog.TileRecord{
				AcquisitionID: acq, X: x, Y: y, DatasetType: dt, Path: path, Class: class, SizeMB: sizeMB,
			})
			if err != nil {
				return err
			}
			a.printSuccess("tile %d added to acquisition %d", id, acq)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&satellite, "satellite", "", "the satellite of the acquisition")
	fs.StringVar(&start, "start", "", "acquisition start (2006-01-02 15:04:05 or RFC 3339)")
	fs.StringVar(&end, "end", "", "acquisition end (default: start)")
	fs.IntVar(&x, "x", 0, "X grid reference")
	fs.IntVar(&y, "y", 0, "Y grid reference")
	fs.StringVar(&datasetType, "dataset-type", string(dc.ARG25), "the type of the tile dataset")
	fs.StringVar(&path, "path", "", "the tile file")
	fs.IntVar(&class, "class", catalog.TileClassSingle, "tile class (1 single, 2 overlap source, 3 mosaic)")
	for _, name := range []string{"satellite", "start", "x", "y", "path"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}
