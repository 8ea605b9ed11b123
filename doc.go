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

/*
Package regrid computes and applies regridding operators between
curvilinear longitude-latitude grids on the sphere.

A typical session builds two grids, derives an operator between them, and
applies it to as many fields as needed:

	src, err := regrid.NewGrid(lon, lat)
	...
	dst, err := regrid.NewGrid(lonOut, latOut)
	...
	op, err := regrid.Build(src, dst, regrid.Bilinear, regrid.WithExtraDims(nTime))
	...
	defer op.Finalize()
	out, err := op.Apply(field) // field has shape (nx, ny, nTime)

Coordinates and fields are expected in column-major (Fortran) order, with
any batch dimensions after the two spatial ones. Row-major input is
accepted, but it is re-laid out on every call and a warning is logged.

Destination cells that receive no source contribution are "unmapped".
Apply leaves them at the operator's fill value, which is NaN unless set
with WithUnmappedFill; they are never silently set to zero.

Grids may be shared by concurrent Build calls once they are fully
constructed. An Operator may be used from several goroutines: Apply and
Finalize are serialized by an internal lock, so concurrent Apply calls run
one at a time rather than in parallel. After Finalize every call that needs the
operator's buffers fails with a UseAfterFinalizeError.
*/
package regrid
