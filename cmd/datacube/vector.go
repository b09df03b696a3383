package main

import (
	"fmt"
	"strconv"
	"strings"

	dc "github.com/wgdzlh/datacube"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVectorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vector",
		Short: "Inspect vector files used as masks",
	}
	var layer int
	features := &cobra.Command{
		Use:   "features FILE",
		Short: "List the features of a vector layer with their attributes and bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dc.WithArg(dc.ReadableFile(args[0]), "FILE"); err != nil {
				return err
			}
			g := a.toolbox()
			defer g.Close()
			fs, err := g.ListVectorFeatures(args[0], layer)
			if err != nil {
				return err
			}
			for _, f := range fs {
				b := f.Bounds
				fmt.Fprintf(a.out, "%s [%.6f %.6f %.6f %.6f]\n", color.CyanString("feature %d", f.Index), b[0], b[1], b[2], b[3])
				cells := f.Cells()
				ids := make([]string, len(cells))
				for i, c := range cells {
					ids[i] = fmt.Sprintf("%03d_%04d", c.X, c.Y)
				}
				fmt.Fprintf(a.out, "    cells: %s\n", strings.Join(ids, " "))
				for _, name := range f.FieldNames() {
					fmt.Fprintf(a.out, "    %s: %s\n", name, f.Fields[name])
				}
			}
			return nil
		},
	}
	features.Flags().IntVar(&layer, "layer", 0, "the (index of) the layer")
	cmd.AddCommand(features)
	return cmd
}

func newTileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tile",
		Short: "Check tile files",
	}
	var (
		nodata []string
		pqa    bool
	)
	hasData := &cobra.Command{
		Use:   "has-data FILE",
		Short: "Report whether a tile file holds any valid data",
		Long: `Report whether a tile file holds any valid data. Each band is checked
against its no-data value (from --nodata, "none" to use the file's own);
bands without one have data, except PQA bands which need a contiguous pixel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := dc.WithArg(dc.ReadableFile(path), "FILE"); err != nil {
				return err
			}
			g := a.toolbox()
			defer g.Close()
			bands, err := parseTileBands(nodata, pqa)
			if err != nil {
				return err
			}
			if bands == nil {
				md, err := g.ReadDatasetMetadata(path)
				if err != nil {
					return err
				}
				bands = make([]dc.TileBand, md.BandCount)
				for i := range bands {
					bands[i].IsPqa = pqa
				}
			}
			ok, err := g.HasData(path, bands)
			if err != nil {
				return err
			}
			if ok {
				a.printSuccess("%s has data", path)
			} else {
				a.printWarning("%s is empty", path)
			}
			return nil
		},
	}
	hasData.Flags().StringSliceVar(&nodata, "nodata", nil, "per band no-data value, one per band")
	hasData.Flags().BoolVar(&pqa, "pqa", false, "the tile is a PQA tile")
	cmd.AddCommand(hasData)
	return cmd
}

func parseTileBands(nodata []string, pqa bool) (bands []dc.TileBand, err error) {
	for _, s := range nodata {
		b := dc.TileBand{IsPqa: pqa}
		if s != "" && !strings.EqualFold(s, "none") {
			v, e := strconv.ParseFloat(s, 64)
			if e != nil {
				return nil, &dc.ArgumentError{Arg: "--nodata", Value: s, Reason: "is not a number"}
			}
			b.NoData = &v
		}
		bands = append(bands, b)
	}
	return
}
