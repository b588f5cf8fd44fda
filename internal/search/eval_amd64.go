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

// +build amd64

package search

import (
	"github.com/klauspost/cpuid"
	"github.com/mlnoga/kbsearch/internal/psiphi"
)

const velocityBatch = 8

// evaluatePixelVelocities dispatches to the AVX2-width batched
// evaluator when the host CPU supports it, via a cpuid.CPU.AVX2()
// check. The batched path processes velocities velocityBatch at a time
// purely to improve cache locality of the per-image psi/phi lookups; it
// calls the same evaluateCandidate as the portable path per pixel, so
// results are bitwise identical for unquantized psi/phi.
func evaluatePixelVelocities(arr *psiphi.PsiPhiArray, x, y int, times []float64, vels []Velocity, params SearchParameters) []Trajectory {
	if cpuid.CPU.AVX2() {
		return evaluatePixelVelocitiesAVX2(arr, x, y, times, vels, params)
	}
	return evaluatePixelVelocitiesPureGo(arr, x, y, times, vels, params)
}

func evaluatePixelVelocitiesAVX2(arr *psiphi.PsiPhiArray, x, y int, times []float64, vels []Velocity, params SearchParameters) []Trajectory {
	out := make([]Trajectory, 0, len(vels))
	for base := 0; base < len(vels); base += velocityBatch {
		end := base + velocityBatch
		if end > len(vels) {
			end = len(vels)
		}
		for _, vel := range vels[base:end] {
			if t, ok := evaluateCandidate(arr, x, y, vel, times, params); ok {
				out = append(out, t)
			}
		}
	}
	return out
}
