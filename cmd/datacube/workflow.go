package main

import (
	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/workflow"

	"github.com/spf13/cobra"
)

func newWorkflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run batch workflows over ranges of cells",
	}
	cmd.AddCommand(newSummaryCmd(a))
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		f               acqFlags
		xMin, xMax      int
		yMin, yMax      int
		outputDirectory string
		dummy           bool
		pqaApply        bool
		pqaMasks        []string
		datasetType     string
		bands           []string
		chunkSizeX      int
		chunkSizeY      int
		statistic       string
		workers         int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Compute a per-pixel statistic over time for every cell and band",
		Long: `Compute a per-pixel statistic (COUNT MIN MAX MEAN MEDIAN STANDARD_DEVIATION)
of every requested band over the acquisition window, cell by cell. Cells are
processed in chunks; outputs that already exist are not recomputed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range []struct {
				arg    string
				v      int
				lo, hi int
			}{
				{"--x-min", xMin, dc.X_MIN, dc.X_MAX},
				{"--x-max", xMax, xMin, dc.X_MAX},
				{"--y-min", yMin, dc.Y_MIN, dc.Y_MAX},
				{"--y-max", yMax, yMin, dc.Y_MAX},
				{"--chunk-size-x", chunkSizeX, dc.CHUNK_SIZE_MIN, dc.CHUNK_SIZE_MAX},
				{"--chunk-size-y", chunkSizeY, dc.CHUNK_SIZE_MIN, dc.CHUNK_SIZE_MAX},
			} {
				if err := checkRange(r.arg, r.v, r.lo, r.hi); err != nil {
					return err
				}
			}
			acqMin, acqMax, sats, err := f.parse()
			if err != nil {
				return err
			}
			masks, err := parsePqaMasks(pqaMasks)
			if err != nil {
				return err
			}
			dt, err := dc.ParseDatasetType(datasetType, dc.SummaryDatasetTypes)
			if err != nil {
				return dc.WithArg(err, "--dataset-type")
			}
			stat, err := dc.ParseStatistic(statistic)
			if err != nil {
				return dc.WithArg(err, "--statistic")
			}
			if err = dc.WithArg(dc.WriteableDir(outputDirectory), "--output-directory"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.v.GetInt("workers")
			}

			db, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer db.Close()
			g := a.toolbox()
			defer g.Close()

			w := workflow.NewSummaryWorkflow(g, db)
			w.XMin, w.XMax, w.YMin, w.YMax = xMin, xMax, yMin, yMax
			w.AcqMin, w.AcqMax, w.Satellites = acqMin, acqMax, sats
			w.OutputDirectory = outputDirectory
			w.Dummy = dummy
			w.PqaApply, w.PqaMasks = pqaApply, masks
			w.DatasetType = dt
			w.Bands = bands
			w.ChunkSizeX, w.ChunkSizeY = chunkSizeX, chunkSizeY
			w.Statistic = stat
			w.LogArguments()

			root, err := w.Root(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := (&workflow.Runner{Workers: workers}).Run(cmd.Context(), root)
			if err != nil {
				return err
			}
			a.printSuccess("summary run %s: %d task(s) ran, %d already complete", stats.RunID, stats.Ran, stats.Skipped)
			return nil
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&xMin, "x-min", dc.X_MIN, "X grid reference min")
	fs.IntVar(&xMax, "x-max", dc.X_MAX, "X grid reference max")
	fs.IntVar(&yMin, "y-min", dc.Y_MIN, "Y grid reference min")
	fs.IntVar(&yMax, "y-max", dc.Y_MAX, "Y grid reference max")
	fs.StringVar(&outputDirectory, "output-directory", "", "output directory")
	fs.BoolVar(&dummy, "dummy", false, "write empty outputs without reading any data")
	fs.BoolVar(&pqaApply, "mask-pqa-apply", false, "apply PQA mask")
	fs.StringSliceVar(&pqaMasks, "mask-pqa-mask", []string{dc.PQ_MASK_CLEAR.String()}, "the PQA mask(s) to apply")
	fs.StringVar(&datasetType, "dataset-type", string(dc.ARG25), "the type of dataset to summarise")
	fs.StringSliceVar(&bands, "band", nil, "the band(s) to summarise")
	fs.IntVar(&chunkSizeX, "chunk-size-x", dc.CELL_SIZE_PIXELS, "X chunk size")
	fs.IntVar(&chunkSizeY, "chunk-size-y", dc.CELL_SIZE_PIXELS, "Y chunk size")
	fs.StringVar(&statistic, "statistic", string(dc.MEAN), "the statistic to compute")
	fs.IntVar(&workers, "workers", 4, "number of tasks run concurrently (default from config)")
	cmd.MarkFlagRequired("output-directory")
	cmd.MarkFlagRequired("band")
	return cmd
}
