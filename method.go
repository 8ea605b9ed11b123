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

import "github.com/spatialmodel/regrid/engine"

// Method selects how regridding weights are computed.
type Method = engine.Method

// Regridding methods.
const (
	Bilinear     = engine.Bilinear
	Conservative = engine.Conservative
	Patch        = engine.Patch
	NearestS2D   = engine.NearestS2D
	NearestD2S   = engine.NearestD2S
)

// ParseMethod returns the method with the given key: one of "bilinear",
// "conservative", "patch", "nearest_s2d" or "nearest_d2s". Keys are
// case-sensitive; any other key returns an *InvalidMethodError.
func ParseMethod(s string) (Method, error) { return engine.ParseMethod(s) }
