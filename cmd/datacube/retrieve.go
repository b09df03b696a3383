package main

import (
	dc "github.com/wgdzlh/datacube"

	"github.com/spf13/cobra"
)

func newRetrieveDatasetCmd(a *app) *cobra.Command {
	var (
		f     cellFlags
		types []string
	)
	cmd := &cobra.Command{
		Use:   "retrieve-dataset",
		Short: "Retrieve the datasets of a cell, one raster per tile",
		Long: `Retrieve the datasets of one cell over the acquisition window, optionally
masked by pixel quality, water observations and a vector feature, writing one
GeoTIFF or ENVI raster per tile and dataset type.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, format, err := f.parse()
			if err != nil {
				return err
			}
			dts, err := parseDatasetTypes(types, dc.RetrievalDatasetTypes)
			if err != nil {
				return err
			}
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			g := a.toolbox()
			defer g.Close()

			t := dc.NewRetrieveDatasetTool(g, db)
			t.CellArgs = cell
			t.DatasetTypes = dts
			t.OutputDirectory = f.outputDirectory
			t.Overwrite = f.overwrite
			t.ListOnly = f.listOnly
			t.OutputFormat = format
			t.LogArguments()
			written, err := t.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !f.listOnly {
				a.printSuccess("%d dataset(s) written to %s", len(written), f.outputDirectory)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&types, "dataset-type", []string{string(dc.ARG25)}, "the type(s) of dataset to retrieve")
	return cmd
}

func newRetrieveDatasetStackCmd(a *app) *cobra.Command {
	var (
		f           cellFlags
		datasetType string
		bandsAll    bool
		bandsCommon bool
		bands       []string
	)
	cmd := &cobra.Command{
		Use:   "retrieve-dataset-stack",
		Short: "Stack the time series of a cell, one raster per band",
		Long: `Retrieve the datasets of one cell over the acquisition window and stack
them per band: band i of the output is the i-th tile in acquisition order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, format, err := f.parse()
			if err != nil {
				return err
			}
			dt, err := dc.ParseDatasetType(datasetType, dc.RetrievalDatasetTypes)
			if err != nil {
				return dc.WithArg(err, "--dataset-type")
			}
			blt := dc.BandsAll
			switch {
			case len(bands) > 0:
				blt = dc.BandsExplicit
			case bandsCommon:
				blt = dc.BandsCommon
			}
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			g := a.toolbox()
			defer g.Close()

			t := dc.NewRetrieveDatasetStackTool(g, db)
			t.CellArgs = cell
			t.DatasetType = dt
			t.BandList = blt
			t.Bands = bands
			t.OutputDirectory = f.outputDirectory
			t.Overwrite = f.overwrite
			t.ListOnly = f.listOnly
			t.OutputFormat = format
			t.LogArguments()
			written, err := t.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !f.listOnly {
				a.printSuccess("%d stack(s) written to %s", len(written), f.outputDirectory)
			}
			return nil
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&datasetType, "dataset-type", string(dc.ARG25), "the type of dataset to stack")
	fs.BoolVar(&bandsAll, "bands-all", true, "retrieve all bands with null values where the band is not available")
	fs.BoolVar(&bandsCommon, "bands-common", false, "retrieve only bands in common across all satellites")
	fs.StringSliceVar(&bands, "band", nil, "the band(s) to stack")
	cmd.MarkFlagsMutuallyExclusive("bands-all", "bands-common", "band")
	return cmd
}
