package main

import (
	"strconv"
	"time"

	dc "github.com/wgdzlh/datacube"

	"github.com/spf13/cobra"
)

// acquisition window and satellites, shared by every catalogue query
type acqFlags struct {
	acqMin     string
	acqMax     string
	satellites []string
}

func (f *acqFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.acqMin, "acq-min", dc.ACQ_MIN_DEFAULT, "acquisition date min (YYYY, YYYY-MM or YYYY-MM-DD)")
	fs.StringVar(&f.acqMax, "acq-max", dc.ACQ_MAX_DEFAULT, "acquisition date max (YYYY, YYYY-MM or YYYY-MM-DD)")
	fs.StringSliceVar(&f.satellites, "satellite", []string{string(dc.LS5), string(dc.LS7)}, "the satellite(s) to include")
}

func (f *acqFlags) parse() (acqMin, acqMax time.Time, sats []dc.Satellite, err error) {
	if acqMin, err = dc.ParseDateMin(f.acqMin); err != nil {
		err = dc.WithArg(err, "--acq-min")
		return
	}
	if acqMax, err = dc.ParseDateMax(f.acqMax); err != nil {
		err = dc.WithArg(err, "--acq-max")
		return
	}
	sats, err = parseSatellites(f.satellites)
	return
}

func parseSatellites(vs []string) (sats []dc.Satellite, err error) {
	for _, v := range vs {
		var sat dc.Satellite
		if sat, err = dc.ParseSatellite(v); err != nil {
			return nil, dc.WithArg(err, "--satellite")
		}
		sats = append(sats, sat)
	}
	return
}

func parsePqaMasks(vs []string) (masks []dc.PqaMask, err error) {
	for _, v := range vs {
		var m dc.PqaMask
		if m, err = dc.ParsePqaMask(v); err != nil {
			return nil, dc.WithArg(err, "--mask-pqa-mask")
		}
		masks = append(masks, m)
	}
	return
}

func parseWofsMasks(vs []string) (masks []dc.WofsMask, err error) {
	for _, v := range vs {
		var m dc.WofsMask
		if m, err = dc.ParseWofsMask(v); err != nil {
			return nil, dc.WithArg(err, "--mask-wofs-mask")
		}
		masks = append(masks, m)
	}
	return
}

func parseDatasetTypes(vs []string, supported []dc.DatasetType) (types []dc.DatasetType, err error) {
	for _, v := range vs {
		var dt dc.DatasetType
		if dt, err = dc.ParseDatasetType(v, supported); err != nil {
			return nil, dc.WithArg(err, "--dataset-type")
		}
		types = append(types, dt)
	}
	return
}

func checkRange(arg string, v, lo, hi int) error {
	return dc.WithArg(dc.CheckRange(v, lo, hi), arg)
}

// the single cell tools: retrieve-dataset and retrieve-dataset-stack
type cellFlags struct {
	acqFlags
	x, y int

	pqaApply      bool
	pqaMasks      []string
	wofsApply     bool
	wofsMasks     []string
	vectorApply   bool
	vectorFile    string
	vectorLayer   int
	vectorFeature int

	outputDirectory string
	overwrite       bool
	listOnly        bool
	outputFormat    string
}

func (f *cellFlags) register(cmd *cobra.Command) {
	f.acqFlags.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&f.x, "x", 0, "X grid reference ["+strconv.Itoa(dc.X_MIN)+" - "+strconv.Itoa(dc.X_MAX)+"]")
	fs.IntVar(&f.y, "y", 0, "Y grid reference ["+strconv.Itoa(dc.Y_MIN)+" - "+strconv.Itoa(dc.Y_MAX)+"]")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")

	fs.BoolVar(&f.pqaApply, "mask-pqa-apply", false, "apply PQA mask")
	fs.StringSliceVar(&f.pqaMasks, "mask-pqa-mask", []string{dc.PQ_MASK_CLEAR.String()}, "the PQA mask(s) to apply")
	fs.BoolVar(&f.wofsApply, "mask-wofs-apply", false, "apply WOFS mask")
	fs.StringSliceVar(&f.wofsMasks, "mask-wofs-mask", []string{dc.WOFS_WET.String()}, "the WOFS mask(s) to apply")
	fs.BoolVar(&f.vectorApply, "mask-vector-apply", false, "apply mask from feature in vector file")
	fs.StringVar(&f.vectorFile, "mask-vector-file", "", "the vector file containing the mask")
	fs.IntVar(&f.vectorLayer, "mask-vector-layer", 0, "the (index of) the layer containing the mask")
	fs.IntVar(&f.vectorFeature, "mask-vector-feature", 0, "the (index of) the feature containing the mask")

	fs.StringVar(&f.outputDirectory, "output-directory", "", "output directory")
	fs.BoolVar(&f.overwrite, "overwrite", false, "overwrite existing output file")
	fs.BoolVar(&f.listOnly, "list-only", false, "list the datasets that would be retrieved")
	fs.StringVar(&f.outputFormat, "output-format", string(dc.GEOTIFF), "the format of the output dataset (GEOTIFF or ENVI)")
	cmd.MarkFlagRequired("output-directory")
}

func (f *cellFlags) parse() (args dc.CellArgs, format dc.OutputFormat, err error) {
	if err = checkRange("--x", f.x, dc.X_MIN, dc.X_MAX); err != nil {
		return
	}
	if err = checkRange("--y", f.y, dc.Y_MIN, dc.Y_MAX); err != nil {
		return
	}
	args.X, args.Y = f.x, f.y
	if args.AcqMin, args.AcqMax, args.Satellites, err = f.acqFlags.parse(); err != nil {
		return
	}
	mo := &args.Mask
	mo.PqaApply, mo.WofsApply, mo.VectorApply = f.pqaApply, f.wofsApply, f.vectorApply
	if mo.PqaMasks, err = parsePqaMasks(f.pqaMasks); err != nil {
		return
	}
	if mo.WofsMasks, err = parseWofsMasks(f.wofsMasks); err != nil {
		return
	}
	if f.vectorApply {
		if err = dc.WithArg(dc.ReadableFile(f.vectorFile), "--mask-vector-file"); err != nil {
			return
		}
		mo.VectorFile, mo.VectorLayer, mo.VectorFeat = f.vectorFile, f.vectorLayer, f.vectorFeature
	}
	if err = dc.WithArg(dc.WriteableDir(f.outputDirectory), "--output-directory"); err != nil {
		return
	}
	if format, err = dc.ParseOutputFormat(f.outputFormat); err != nil {
		err = dc.WithArg(err, "--output-format")
	}
	return
}

// the catalogue listing commands
type queryFlags struct {
	acqFlags
	xMin, xMax   int
	yMin, yMax   int
	datasetTypes []string
	months       []string
	season       string
	exclude      []string
	sort         string
}

func (f *queryFlags) register(cmd *cobra.Command, defaultTypes ...dc.DatasetType) {
	f.acqFlags.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&f.xMin, "x-min", dc.X_MIN, "X grid reference min")
	fs.IntVar(&f.xMax, "x-max", dc.X_MAX, "X grid reference max")
	fs.IntVar(&f.yMin, "y-min", dc.Y_MIN, "Y grid reference min")
	fs.IntVar(&f.yMax, "y-max", dc.Y_MAX, "Y grid reference max")
	types := make([]string, len(defaultTypes))
	for i, dt := range defaultTypes {
		types[i] = string(dt)
	}
	fs.StringSliceVar(&f.datasetTypes, "dataset-type", types, "the type(s) of dataset to include")
	fs.StringSliceVar(&f.months, "month", nil, "the month(s) to include (JANUARY or JAN ...)")
	fs.StringVar(&f.season, "season", "", "the season to include (SUMMER AUTUMN WINTER SPRING CALENDAR_YEAR)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "exclusions (LS7_SLC_OFF LS8_PRE_WRS_2)")
	fs.StringVar(&f.sort, "sort", string(dc.ASC), "acquisition order (ASC or DESC)")
	cmd.MarkFlagsMutuallyExclusive("month", "season")
}

func span(lo, hi int) (ret []int) {
	for v := lo; v <= hi; v++ {
		ret = append(ret, v)
	}
	return
}

func (f *queryFlags) parse(supported []dc.DatasetType) (q *dc.TileQuery, err error) {
	for _, r := range []struct {
		arg    string
		v      int
		lo, hi int
	}{
		{"--x-min", f.xMin, dc.X_MIN, dc.X_MAX},
		{"--x-max", f.xMax, f.xMin, dc.X_MAX},
		{"--y-min", f.yMin, dc.Y_MIN, dc.Y_MAX},
		{"--y-max", f.yMax, f.yMin, dc.Y_MAX},
	} {
		if err = checkRange(r.arg, r.v, r.lo, r.hi); err != nil {
			return
		}
	}
	q = &dc.TileQuery{X: span(f.xMin, f.xMax), Y: span(f.yMin, f.yMax)}
	if q.AcqMin, q.AcqMax, q.Satellites, err = f.acqFlags.parse(); err != nil {
		return
	}
	if q.DatasetTypes, err = parseDatasetTypes(f.datasetTypes, supported); err != nil {
		return
	}
	for _, m := range f.months {
		var month time.Month
		if month, err = dc.ParseMonth(m); err != nil {
			return nil, dc.WithArg(err, "--month")
		}
		q.Months = append(q.Months, month)
	}
	if f.season != "" {
		var season dc.Season
		if season, err = dc.ParseSeason(f.season); err != nil {
			return nil, dc.WithArg(err, "--season")
		}
		q.Months = season.Months()
	}
	for _, e := range f.exclude {
		switch ex := dc.Exclusion(e); ex {
		case dc.LS7_SLC_OFF, dc.LS8_PRE_WRS_2:
			q.Exclude = append(q.Exclude, ex)
		default:
			return nil, &dc.ArgumentError{Arg: "--exclude", Value: e, Reason: "is not a supported exclusion"}
		}
	}
	switch so := dc.SortOrder(f.sort); so {
	case dc.ASC, dc.DESC:
		q.Sort = so
	default:
		return nil, &dc.ArgumentError{Arg: "--sort", Value: f.sort, Reason: "is not a supported sort order"}
	}
	return
}
