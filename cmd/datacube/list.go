package main

import (
	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/catalog"

	"github.com/spf13/cobra"
)

func newListTilesCmd(a *app) *cobra.Command {
	var (
		f          queryFlags
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "list-tiles",
		Short: "List the tiles carrying every requested dataset type",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.parse(dc.RetrievalDatasetTypes)
			if err != nil {
				return err
			}
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			if outputFile != "" {
				if err = db.ListTilesToFile(cmd.Context(), q, outputFile); err != nil {
					return err
				}
				a.printSuccess("tiles written to %s", outputFile)
				return nil
			}
			tiles, err := db.ListTiles(cmd.Context(), q)
			if err != nil {
				return err
			}
			return catalog.WriteTilesCSV(a.out, tiles)
		},
	}
	f.register(cmd, dc.ARG25)
	cmd.Flags().StringVar(&outputFile, "output-file", "", "write the tiles to this csv file instead of stdout")
	return cmd
}

func newListCellsCmd(a *app) *cobra.Command {
	var (
		f          queryFlags
		outputFile string
		missing    bool
	)
	cmd := &cobra.Command{
		Use:   "list-cells",
		Short: "List the cells with tiles, or without them with --missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.parse(dc.RetrievalDatasetTypes)
			if err != nil {
				return err
			}
			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			if outputFile != "" {
				if missing {
					err = db.ListCellsMissingToFile(cmd.Context(), q, outputFile)
				} else {
					err = db.ListCellsToFile(cmd.Context(), q, outputFile)
				}
				if err != nil {
					return err
				}
				a.printSuccess("cells written to %s", outputFile)
				return nil
			}
			var cells []dc.Cell
			if missing {
				cells, err = db.ListCellsMissing(cmd.Context(), q)
			} else {
				cells, err = db.ListCells(cmd.Context(), q)
			}
			if err != nil {
				return err
			}
			return catalog.WriteCellsCSV(a.out, cells)
		},
	}
	f.register(cmd, dc.ARG25)
	fs := cmd.Flags()
	fs.StringVar(&outputFile, "output-file", "", "write the cells to this csv file instead of stdout")
	fs.BoolVar(&missing, "missing", false, "list the requested cells that have no tiles")
	return cmd
}
