package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	dc "github.com/wgdzlh/datacube"
	"github.com/wgdzlh/datacube/catalog"
	"github.com/wgdzlh/datacube/log"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "DATACUBE"

// app carries the configuration shared by every sub-command.
type app struct {
	v       *viper.Viper
	cfgFile string
	quiet   bool
	verbose bool
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), out: os.Stdout}
	cmd := &cobra.Command{
		Use:   "datacube",
		Short: "Retrieve and summarise Landsat cell datasets from the tile catalogue",
		Long: `datacube retrieves tiled Landsat surface reflectance, pixel quality,
fractional cover and water datasets from the tile catalogue, masks them and
writes GeoTIFF or ENVI rasters, time series stacks and per-pixel summaries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./datacube.yaml)")
	pf.String("database", "datacube.db", "tile catalogue database")
	pf.BoolVar(&a.quiet, "quiet", false, "less output")
	pf.BoolVar(&a.verbose, "verbose", false, "more output")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	a.v.BindPFlag("database", pf.Lookup("database"))

	a.v.SetDefault("database", "datacube.db")
	a.v.SetDefault("log_level", "info")
	a.v.SetDefault("workers", 4)
	a.v.SetDefault("testdb.dir", "./testdb")
	a.v.SetDefault("gdal.cachemax", 500)

	cmd.AddCommand(
		newRetrieveDatasetCmd(a),
		newRetrieveDatasetStackCmd(a),
		newListTilesCmd(a),
		newListCellsCmd(a),
		newWorkflowCmd(a),
		newCatalogCmd(a),
		newVectorCmd(a),
		newTileCmd(a),
		newTestDBCmd(a),
		newDBCleanupCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("datacube")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level := a.v.GetString("log_level")
	switch {
	case a.quiet:
		level = "warn"
	case a.verbose:
		level = "debug"
	}
	if err := log.SetLevel(level); err != nil {
		return err
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		log.Debug("Config:using config file", zap.String("path", used))
	}
	return nil
}

func (a *app) openCatalog() (*catalog.DB, error) {
	return catalog.OpenMigrated(a.v.GetString("database"))
}

func (a *app) toolbox() *dc.Toolbox {
	return dc.NewToolbox(dc.WithCacheMax(a.v.GetInt("gdal.cachemax")))
}

func (a *app) printSuccess(format string, args ...any) {
	fmt.Fprintf(a.out, "%s %s\n", color.GreenString("[datacube]"), fmt.Sprintf(format, args...))
}

func (a *app) printInfo(format string, args ...any) {
	fmt.Fprintf(a.out, "%s %s\n", color.CyanString("[datacube]"), fmt.Sprintf(format, args...))
}

func (a *app) printWarning(format string, args ...any) {
	fmt.Fprintf(a.out, "%s %s\n", color.YellowString("[datacube]"), fmt.Sprintf(format, args...))
}
