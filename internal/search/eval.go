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

import (
	"math"

	"github.com/mlnoga/kbsearch/internal/psiphi"
)

// observation is one time-slice's contribution to a candidate
// trajectory's likelihood, gathered before the sigma-G filter runs.
type observation struct {
	psi, phi float32
	l        float32
}

// gatherObservations predicts each image's sub-pixel position, rounds
// to nearest integer, looks up psi/phi, and forms the per-observation
// likelihood contribution. Out-of-bounds or NoData observations are
// dropped entirely, excluding them from every downstream sum.
func gatherObservations(arr *psiphi.PsiPhiArray, x, y int, vel Velocity, times []float64) []observation {
	obs := make([]observation, 0, arr.NumImages)
	for i, t := range times {
		px := int(math.Round(float64(x) + float64(vel.VX)*t))
		py := int(math.Round(float64(y) + float64(vel.VY)*t))
		psi, phi, ok := arr.Get(i, px, py)
		if !ok || phi <= 0 {
			continue
		}
		l := psi / float32(math.Sqrt(float64(phi)))
		obs = append(obs, observation{psi: psi, phi: phi, l: l})
	}
	return obs
}

// sanitize clamps a reported statistic away from NaN/Inf: reported
// likelihoods are never NaN or +/-Inf.
func sanitize(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

// evaluateCandidate scores one (x,y,vx,vy) candidate: gather
// observations, sigma-G filter, sum psi/phi, derive likelihood and
// flux. The returned bool reports whether the candidate survives
// min_observations/min_lh filtering.
func evaluateCandidate(arr *psiphi.PsiPhiArray, x, y int, vel Velocity, times []float64, params SearchParameters) (Trajectory, bool) {
	obs := gatherObservations(arr, x, y, vel, times)

	survivors := obs
	if params.DoSigmaGFilter && len(obs) > 0 {
		ls := make([]float32, len(obs))
		for i, o := range obs {
			ls[i] = o.l
		}
		keep, ok := SigmaGFilter(ls, params.SglL, params.SglH, params.SigmaGCoeff)
		if ok {
			survivors = survivors[:0]
			for i, o := range obs {
				if keep[i] {
					survivors = append(survivors, o)
				}
			}
		}
	}

	var psiSum, phiSum float64
	for _, o := range survivors {
		psiSum += float64(o.psi)
		phiSum += float64(o.phi)
	}

	var l, flux float32
	if phiSum > 0 {
		l = float32(psiSum / math.Sqrt(phiSum))
		flux = float32(psiSum / phiSum)
	}
	l, flux = sanitize(l), sanitize(flux)

	obsCount := len(survivors)
	if obsCount < params.MinObservations || l < params.MinLH {
		return Trajectory{}, false
	}

	return Trajectory{
		X: int16(x), Y: int16(y), VX: vel.VX, VY: vel.VY,
		Flux: flux, Likelihood: l, ObsCount: int16(obsCount),
	}, true
}

// evaluatePixelVelocitiesPureGo evaluates every velocity in vels for
// one start pixel, returning the survivors. This is the portable
// reference path; batched dispatch implementations (see eval_amd64.go)
// must call the exact same evaluateCandidate so results stay
// bitwise-identical for unquantized inputs.
func evaluatePixelVelocitiesPureGo(arr *psiphi.PsiPhiArray, x, y int, times []float64, vels []Velocity, params SearchParameters) []Trajectory {
	out := make([]Trajectory, 0, len(vels))
	for _, vel := range vels {
		if t, ok := evaluateCandidate(arr, x, y, vel, times, params); ok {
			out = append(out, t)
		}
	}
	return out
}
