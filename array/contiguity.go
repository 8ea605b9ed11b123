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

package array

import "github.com/sirupsen/logrus"

// ContiguityWarning is the message logged for arrays that are not in
// column-major order.
const ContiguityWarning = "input array is not F_CONTIGUOUS; will affect performance"

// WarnNotContiguous logs a warning if a is not column-major contiguous.
// It never fails; the return value reports whether a warning was emitted.
func WarnNotContiguous(log logrus.FieldLogger, name string, a *Array) bool {
	if a == nil || a.IsFortranContiguous() {
		return false
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"array": name,
		"shape": a.Shape,
		"order": a.Order.String(),
	}).Warn(ContiguityWarning)
	return true
}
