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

package search

import "math"

// Velocity is one (vx,vy) candidate from the grid.
type Velocity struct {
	VX, VY float32
}

// CreateGridSearchList enumerates AngleSteps x VelocitySteps velocity
// vectors uniformly spaced on each axis, half-open on the upper bound
// (step = (max-min)/steps). The grid is dense and independent of start
// pixel.
func CreateGridSearchList(g GridParams) []Velocity {
	out := make([]Velocity, 0, g.AngleSteps*g.VelocitySteps)
	angStep := (g.MaxAngle - g.MinAngle) / float64(g.AngleSteps)
	velStep := (g.MaxVelocity - g.MinVelocity) / float64(g.VelocitySteps)
	for a := 0; a < g.AngleSteps; a++ {
		theta := g.ReferenceAngle + g.MinAngle + float64(a)*angStep
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		for v := 0; v < g.VelocitySteps; v++ {
			vel := g.MinVelocity + float64(v)*velStep
			out = append(out, Velocity{
				VX: float32(vel * cosT),
				VY: float32(vel * sinT),
			})
		}
	}
	return out
}
