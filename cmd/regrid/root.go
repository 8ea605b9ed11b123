/*
Copyright © 2024 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spatialmodel/regrid"
	"github.com/spatialmodel/regrid/engine"
)

var (
	// cfg holds the configuration. Values come, in order of precedence,
	// from command-line flags, REGRID_* environment variables and the
	// file given by --config.
	cfg = viper.New()

	log = logrus.New()
)

// Root is the main command.
var Root = &cobra.Command{
	Use:   "regrid",
	Short: "Compute and apply regridding weights between longitude-latitude grids.",
	Long: `regrid computes sparse weight matrices that map fields between curvilinear
longitude-latitude grids on the sphere and applies them to netCDF data.

Grid files are netCDF files holding cell-center coordinates (and, for
conservative regridding, cell-corner coordinates). Variables may be 2-D with
dimensions (y, x) or, for rectilinear grids, 1-D. Field variables have the
grid dimensions last, e.g. (time, lev, y, x).

Every flag can also be set through an environment variable named after it,
e.g. REGRID_METHOD or REGRID_LON_VAR, or in the file given by --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Bind the flags of the command being run, so commands can share
		// flag names.
		if err := cfg.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if f := cfg.GetString("config"); f != "" {
			cfg.SetConfigFile(f)
			if err := cfg.ReadInConfig(); err != nil {
				return fmt.Errorf("regrid: reading configuration file: %w", err)
			}
		}
		log.SetLevel(logrus.InfoLevel)
		if cfg.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

func init() {
	cfg.SetEnvPrefix("REGRID")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	log.SetOutput(os.Stderr)

	pf := Root.PersistentFlags()
	pf.String("config", "", "configuration file (TOML, YAML or JSON) holding flag values")
	pf.BoolP("verbose", "v", false, "log debugging information")
	pf.String("lon-var", "lon", "name of the cell-center longitude variable in grid files")
	pf.String("lat-var", "lat", "name of the cell-center latitude variable in grid files")
	pf.String("lon-b-var", "lon_b", "name of the cell-corner longitude variable in grid files")
	pf.String("lat-b-var", "lat_b", "name of the cell-corner latitude variable in grid files")
	// The grid variable names are needed outside of command execution, so
	// the defaults are bound now rather than in PersistentPreRunE.
	if err := cfg.BindPFlags(pf); err != nil {
		panic(err)
	}

	Root.AddCommand(weightsCmd, applyCmd, batchCmd)
}

// names returns the configured grid variable names.
func names() gridVars {
	return gridVars{
		Lon:  cfg.GetString("lon-var"),
		Lat:  cfg.GetString("lat-var"),
		LonB: cfg.GetString("lon-b-var"),
		LatB: cfg.GetString("lat-b-var"),
	}
}

// gridFlags adds the flags shared by the weights and apply commands.
func gridFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("src", "", "source grid file")
	f.String("dst", "", "destination grid file")
	f.String("method", "bilinear", "regridding method: "+strings.Join(engine.MethodNames(), ", "))
	f.String("weights", "", "weight file; read if it exists, otherwise written")
}

// jobFromConfig assembles a job from flags and the environment.
func jobFromConfig() (*job, error) {
	m, err := regrid.ParseMethod(cfg.GetString("method"))
	if err != nil {
		return nil, err
	}
	fill := cfg.GetFloat64("fill")
	return &job{
		Name:    "command line",
		Fill:    &fill,
		Src:     cfg.GetString("src"),
		Dst:     cfg.GetString("dst"),
		Method:  m,
		Weights: cfg.GetString("weights"),
		Input:   cfg.GetString("input"),
		Vars:    cfg.GetStringSlice("vars"),
		Output:  cfg.GetString("output"),
	}, nil
}
