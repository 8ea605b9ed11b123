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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/regrid"
)

// job regrids variables of one input file from one grid to another.
type job struct {
	Name    string        `toml:"name"`
	Src     string        `toml:"src"`
	Dst     string        `toml:"dst"`
	Method  regrid.Method `toml:"method"`
	Weights string        `toml:"weights"`
	Input   string        `toml:"input"`
	Vars    []string      `toml:"vars"`
	Output  string        `toml:"output"`
	// Fill is the value of unmapped destination cells, NaN if unset.
	Fill *float64 `toml:"fill"`
}

func (j *job) check(needData bool) error {
	if j.Src == "" || j.Dst == "" {
		return fmt.Errorf("job %q: source and destination grid files are required", j.Name)
	}
	if needData && (j.Input == "" || j.Output == "" || len(j.Vars) == 0) {
		return fmt.Errorf("job %q: input file, output file and variables are required", j.Name)
	}
	return nil
}

// haveWeights reports whether the job's weight file already exists, in
// which case the weights are read from it rather than computed.
func (j *job) haveWeights() (bool, error) {
	if j.Weights == "" {
		return false, nil
	}
	_, err := os.Stat(j.Weights)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// grids reads the job's source and destination grids.
func (j *job) grids(names gridVars, log logrus.FieldLogger) (src, dst *regrid.Grid, err error) {
	src, err = readGrid(j.Src, names, regrid.WithGridLogger(log))
	if err != nil {
		return nil, nil, err
	}
	dst, err = readGrid(j.Dst, names, regrid.WithGridLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

// run regrids the job's variables and writes them to its output file.
// Operators for variables with different batch dimensions share the
// weights through cache.
func (j *job) run(src, dst *regrid.Grid, cache *regrid.WeightCache, log logrus.FieldLogger) error {
	log = log.WithField("job", j.Name)
	load, err := j.haveWeights()
	if err != nil {
		return err
	}
	r, f, err := openCDF(j.Input)
	if err != nil {
		return err
	}
	defer r.Close()

	var wrote bool
	out := make([]field, 0, len(j.Vars))
	for _, v := range j.Vars {
		in, err := readField(f, v)
		if err != nil {
			return fmt.Errorf("%s: %v", j.Input, err)
		}
		opts := []regrid.BuildOption{
			regrid.WithExtraDims(in.data.Shape[2:]...),
			regrid.WithLogger(log),
			regrid.WithCache(cache),
		}
		if j.Fill != nil {
			opts = append(opts, regrid.WithUnmappedFill(*j.Fill))
		}
		var op *regrid.Operator
		if load {
			op, err = regrid.LoadWeights(j.Weights, src, dst, opts...)
		} else {
			if j.Weights != "" && !wrote {
				opts = append(opts, regrid.WithWeightFile(j.Weights))
				wrote = true
			}
			op, err = regrid.Build(src, dst, j.Method, opts...)
		}
		if err != nil {
			return fmt.Errorf("variable %s: %w", v, err)
		}
		result, err := op.Apply(in.data)
		if ferr := op.Finalize(); err == nil {
			err = ferr
		}
		if err != nil {
			return fmt.Errorf("variable %s: %w", v, err)
		}
		out = append(out, field{name: v, dims: in.dims, data: result})
		log.WithField("variable", v).Debug("regridded variable")
	}
	if err := writeFields(j.Output, dst, out); err != nil {
		return fmt.Errorf("writing %s: %w", j.Output, err)
	}
	log.WithField("output", j.Output).Info("wrote regridded data")
	return nil
}
