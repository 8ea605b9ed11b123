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
	"context"
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/regrid"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Compute regridding weights and write them to a weight file.",
	Long: `weights computes the weights mapping fields on the --src grid onto the
--dst grid and writes them to the --weights file, which must not exist.
With --shp, the cell outlines of both grids are also written as shapefiles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := jobFromConfig()
		if err != nil {
			return err
		}
		if err := j.check(false); err != nil {
			return err
		}
		if j.Weights == "" {
			return fmt.Errorf("regrid: --weights is required")
		}
		src, dst, err := j.grids(names(), log)
		if err != nil {
			return err
		}
		if dir := cfg.GetString("shp"); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			for name, g := range map[string]*regrid.Grid{"src": src, "dst": dst} {
				if err := g.WriteToShp(dir, name); err != nil {
					return fmt.Errorf("regrid: writing %s grid shapefile: %w", name, err)
				}
			}
		}
		op, err := regrid.Build(src, dst, j.Method, regrid.WithWeightFile(j.Weights), regrid.WithLogger(log))
		if err != nil {
			return err
		}
		return op.Finalize()
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Regrid variables of a netCDF file.",
	Long: `apply regrids the --vars variables of the --input file from the --src
grid to the --dst grid and writes them to the new file --output. If the
--weights file exists its weights are used; otherwise the weights are
computed and, if --weights is set, saved there.

Destination cells that no source cell maps to are written as --fill.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := jobFromConfig()
		if err != nil {
			return err
		}
		if err := j.check(true); err != nil {
			return err
		}
		src, dst, err := j.grids(names(), log)
		if err != nil {
			return err
		}
		return j.run(src, dst, regrid.NewWeightCache(1), log)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch jobs.toml",
	Short: "Run the regridding jobs listed in a TOML file.",
	Long: `batch runs every [[job]] in the given TOML file. Each job has the keys
name, src, dst, method, weights, input, vars, output and fill, with the meanings
of the corresponding apply flags; method defaults to bilinear. The weights
of all jobs are computed concurrently before any data is regridded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := readJobs(args[0])
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), jobs)
	},
}

func init() {
	gridFlags(weightsCmd)
	weightsCmd.Flags().String("shp", "", "directory to write grid cell shapefiles to")

	gridFlags(applyCmd)
	applyCmd.Flags().String("input", "", "netCDF file holding the variables to regrid")
	applyCmd.Flags().StringSlice("vars", nil, "variables to regrid")
	applyCmd.Flags().String("output", "", "netCDF file to write, which must not exist")
	applyCmd.Flags().Float64("fill", math.NaN(), "value of destination cells that no source cell maps to")
}

// jobFile is the layout of a batch file.
type jobFile struct {
	Jobs []*job `toml:"job"`
}

func readJobs(path string) ([]*job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var jf jobFile
	if _, err := toml.DecodeReader(f, &jf); err != nil {
		return nil, fmt.Errorf("regrid: reading %s: %w", path, err)
	}
	for i, j := range jf.Jobs {
		if j.Name == "" {
			j.Name = fmt.Sprintf("job %d", i+1)
		}
		if err := j.check(true); err != nil {
			return nil, err
		}
	}
	return jf.Jobs, nil
}

// runBatch computes the weights for all jobs concurrently and then
// regrids their data one job at a time.
func runBatch(ctx context.Context, jobs []*job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	type grids struct{ src, dst *regrid.Grid }
	gs := make([]grids, len(jobs))
	var pairs []regrid.Pair
	cache := regrid.NewWeightCache(len(jobs) + 1)
	for i, j := range jobs {
		src, dst, err := j.grids(names(), log)
		if err != nil {
			return err
		}
		gs[i] = grids{src: src, dst: dst}
		load, err := j.haveWeights()
		if err != nil {
			return err
		}
		if load {
			continue
		}
		opts := []regrid.BuildOption{regrid.WithCache(cache)}
		if j.Weights != "" {
			opts = append(opts, regrid.WithWeightFile(j.Weights))
		}
		pairs = append(pairs, regrid.Pair{Src: src, Dst: dst, Method: j.Method, Options: opts})
	}
	ops, err := regrid.BuildAll(ctx, pairs, regrid.WithLogger(log))
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := op.Finalize(); err != nil {
			return err
		}
	}
	for i, j := range jobs {
		if err := j.run(gs[i].src, gs[i].dst, cache, log); err != nil {
			return fmt.Errorf("regrid: %s: %w", j.Name, err)
		}
	}
	return nil
}
