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

package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Method selects how regridding weights are computed.
type Method int

const (
	// Bilinear interpolates between the four source centers surrounding
	// each destination center.
	Bilinear Method = iota
	// Conservative weights by cell overlap area and needs cell corners.
	Conservative
	// Patch fits a local polynomial to the source centers around each
	// destination center.
	Patch
	// NearestS2D maps each destination center to the closest source center.
	NearestS2D
	// NearestD2S maps each source center to the closest destination center.
	NearestD2S
)

var methodNames = [...]string{
	Bilinear:     "bilinear",
	Conservative: "conservative",
	Patch:        "patch",
	NearestS2D:   "nearest_s2d",
	NearestD2S:   "nearest_d2s",
}

// Methods returns every valid method.
func Methods() []Method {
	return []Method{Bilinear, Conservative, Patch, NearestS2D, NearestD2S}
}

// MethodNames returns the string keys of every valid method.
func MethodNames() []string { return append([]string(nil), methodNames[:]...) }

func (m Method) String() string {
	if m.Valid() {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool { return m >= 0 && int(m) < len(methodNames) }

// NeedsCorners reports whether m requires cell corners on both grids.
func (m Method) NeedsCorners() bool { return m == Conservative }

// ErrInvalidMethod is the sentinel wrapped by InvalidMethodError.
var ErrInvalidMethod = errors.New("regrid: invalid regridding method")

// InvalidMethodError reports an unrecognized regridding method.
type InvalidMethodError struct {
	Method string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("regrid: method %q should be chosen from [%s]",
		e.Method, strings.Join(methodNames[:], ", "))
}

// Unwrap returns ErrInvalidMethod.
func (e *InvalidMethodError) Unwrap() error { return ErrInvalidMethod }

// Valid returns the accepted method names.
func (e *InvalidMethodError) Valid() []string { return MethodNames() }

// ParseMethod returns the method with the given case-sensitive key.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return Method(m), nil
		}
	}
	return 0, &InvalidMethodError{Method: s}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, &InvalidMethodError{Method: m.String()}
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so methods can be read
// directly from configuration files.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
