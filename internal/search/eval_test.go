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
	"testing"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/psiphi"
	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// stationaryArray builds a PsiPhiArray with a bright, stationary point
// source at (x0,y0) of constant psi/phi across every image, so a
// zero-velocity candidate at that pixel has a known, high likelihood.
func stationaryArray(t *testing.T, w, h, n, x0, y0 int) (*psiphi.PsiPhiArray, []float64) {
	t.Helper()
	images := make([]*imagestack.LayeredImage, n)
	for i := 0; i < n; i++ {
		sci := rawimage.NewRawImage(w, h)
		varc := rawimage.NewRawImage(w, h)
		mask := rawimage.NewRawImage(w, h)
		for j := range sci.Data {
			sci.Data[j] = 0
			varc.Data[j] = 1
			mask.Data[j] = 0
		}
		sci.Set(x0, y0, 10)
		li, err := imagestack.NewLayeredImage(sci, varc, mask, float64(i), rawimage.NewDeltaPSF())
		if err != nil {
			t.Fatal(err)
		}
		images[i] = li
	}
	stack, err := imagestack.NewImageStack(images)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := psiphi.Generate(stack, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	return arr, stack.ZeroedTimes()
}

func TestEvaluateCandidateStationarySource(t *testing.T) {
	arr, times := stationaryArray(t, 9, 9, 8, 4, 4)
	params := DefaultSearchParameters()
	params.DoSigmaGFilter = false
	traj, ok := evaluateCandidate(arr, 4, 4, Velocity{}, times, params)
	if !ok {
		t.Fatalf("expected the stationary source candidate to survive")
	}
	if traj.ObsCount != 8 {
		t.Errorf("ObsCount = %d, want 8", traj.ObsCount)
	}
	if traj.Likelihood <= 0 {
		t.Errorf("Likelihood = %f, want positive", traj.Likelihood)
	}
}

func TestEvaluateCandidateRejectsBelowMinObservations(t *testing.T) {
	arr, times := stationaryArray(t, 9, 9, 8, 4, 4)
	params := DefaultSearchParameters()
	params.DoSigmaGFilter = false
	params.MinObservations = 100
	if _, ok := evaluateCandidate(arr, 4, 4, Velocity{}, times, params); ok {
		t.Errorf("candidate should be rejected when MinObservations is unreachable")
	}
}

func TestEvaluateCandidateWrongVelocityMisses(t *testing.T) {
	arr, times := stationaryArray(t, 9, 9, 8, 4, 4)
	params := DefaultSearchParameters()
	params.DoSigmaGFilter = false
	// a large velocity at a stationary source walks off the flux entirely
	if _, ok := evaluateCandidate(arr, 4, 4, Velocity{VX: 3, VY: 3}, times, params); ok {
		t.Errorf("candidate following the wrong trajectory should not survive")
	}
}

func TestEvaluatePixelVelocitiesMatchesPureGo(t *testing.T) {
	arr, times := stationaryArray(t, 9, 9, 8, 4, 4)
	params := DefaultSearchParameters()
	params.DoSigmaGFilter = false
	vels := CreateGridSearchList(GridParams{AngleSteps: 4, VelocitySteps: 5, MinAngle: 0, MaxAngle: 6.28, MinVelocity: 0, MaxVelocity: 3})

	dispatched := evaluatePixelVelocities(arr, 4, 4, times, vels, params)
	reference := evaluatePixelVelocitiesPureGo(arr, 4, 4, times, vels, params)

	if len(dispatched) != len(reference) {
		t.Fatalf("dispatched path returned %d trajectories, reference returned %d", len(dispatched), len(reference))
	}
	for i := range reference {
		if dispatched[i] != reference[i] {
			t.Fatalf("trajectory %d differs between dispatch paths: %+v vs %+v", i, dispatched[i], reference[i])
		}
	}
}

func TestSanitizeClampsNonFinite(t *testing.T) {
	if v := sanitize(float32(0)); v != 0 {
		t.Errorf("sanitize(0) = %f, want 0", v)
	}
	if v := sanitize(float32(math.NaN())); v != 0 {
		t.Errorf("sanitize(NaN) = %f, want 0", v)
	}
	if v := sanitize(float32(math.Inf(1))); v != 0 {
		t.Errorf("sanitize(+Inf) = %f, want 0", v)
	}
}
