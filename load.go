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

package regrid

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/regrid/weights"
)

// LoadWeights creates an operator from a weight file written by Build.
// The file's grid sizes must match src and dst. Of opts, only
// WithExtraDims, WithLogger and WithUnmappedFill have an effect.
func LoadWeights(path string, src, dst *Grid, opts ...BuildOption) (*Operator, error) {
	c := newBuildConfig(opts)
	for _, d := range c.extra {
		if d <= 0 {
			return nil, &ShapeError{What: "extra dimensions", Got: c.extra, Reason: "sizes must be positive"}
		}
	}
	w, meta, err := weights.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regrid: reading weight file: %w", err)
	}
	if got, want := meta.SrcShape, [2]int{src.nx, src.ny}; got != want {
		return nil, &ShapeError{What: "weight file source grid", Got: got[:], Want: want[:]}
	}
	if got, want := meta.DstShape, [2]int{dst.nx, dst.ny}; got != want {
		return nil, &ShapeError{What: "weight file destination grid", Got: got[:], Want: want[:]}
	}
	method, err := ParseMethod(meta.Method)
	if err != nil {
		return nil, err
	}
	op, err := newOperator(method, src, dst, c.extra, w, c.fill, c.log)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"path":   path,
		"method": method.String(),
		"nnz":    w.NNZ(),
	}).Info("regrid: loaded weights")
	return op, nil
}
