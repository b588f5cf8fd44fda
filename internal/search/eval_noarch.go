// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// +build !amd64

package search

import "github.com/mlnoga/kbsearch/internal/psiphi"

// evaluatePixelVelocities evaluates every velocity in vels for one
// start pixel using the portable reference path.
func evaluatePixelVelocities(arr *psiphi.PsiPhiArray, x, y int, times []float64, vels []Velocity, params SearchParameters) []Trajectory {
	return evaluatePixelVelocitiesPureGo(arr, x, y, times, vels, params)
}
