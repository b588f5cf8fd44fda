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
	"bytes"
	"testing"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/rawimage"
)

func smallStack(t *testing.T, w, h, n int) *imagestack.ImageStack {
	t.Helper()
	images := make([]*imagestack.LayeredImage, n)
	for i := 0; i < n; i++ {
		sci := rawimage.NewRawImage(w, h)
		varc := rawimage.NewRawImage(w, h)
		mask := rawimage.NewRawImage(w, h)
		for j := range sci.Data {
			sci.Data[j] = 0
			varc.Data[j] = 1
		}
		li, err := imagestack.NewLayeredImage(sci, varc, mask, float64(i), rawimage.NewGaussianPSF(1))
		if err != nil {
			t.Fatal(err)
		}
		images[i] = li
	}
	stack, err := imagestack.NewImageStack(images)
	if err != nil {
		t.Fatal(err)
	}
	return stack
}

func TestStackSearchStateMachine(t *testing.T) {
	stack := smallStack(t, 8, 8, 4)
	ss := NewStackSearch(stack, &bytes.Buffer{})
	if ss.State() != StateFresh {
		t.Fatalf("new search should start FRESH, got %v", ss.State())
	}
	if err := ss.PreparePsiPhi(); err != nil {
		t.Fatal(err)
	}
	if ss.State() != StateReady {
		t.Fatalf("after PreparePsiPhi search should be READY, got %v", ss.State())
	}
	// idempotence: a second call must not error or change the cached array
	arrBefore := ss.PsiPhiArray()
	if err := ss.PreparePsiPhi(); err != nil {
		t.Fatal(err)
	}
	if ss.PsiPhiArray() != arrBefore {
		t.Errorf("repeated PreparePsiPhi should not rebuild the cached array")
	}

	grid := GridParams{AngleSteps: 2, VelocitySteps: 2, MinAngle: 0, MaxAngle: 1, MinVelocity: 0, MaxVelocity: 1}
	if _, err := ss.Search(grid); err != nil {
		t.Fatal(err)
	}
	if ss.State() != StateHasResults {
		t.Fatalf("after Search state should be HAS_RESULTS, got %v", ss.State())
	}

	ss.ClearResults()
	if ss.State() != StateReady {
		t.Fatalf("after ClearResults state should be READY, got %v", ss.State())
	}

	ss.SetSearchParameters(DefaultSearchParameters())
	if ss.State() != StateReady {
		t.Fatalf("SetSearchParameters from READY should remain READY, got %v", ss.State())
	}
}

func TestStackSearchFromFreshRunsPreparePsiPhiImplicitly(t *testing.T) {
	stack := smallStack(t, 6, 6, 3)
	ss := NewStackSearch(stack, &bytes.Buffer{})
	grid := DefaultGridParams()
	if _, err := ss.Search(grid); err != nil {
		t.Fatal(err)
	}
	if ss.State() != StateHasResults {
		t.Fatalf("Search from FRESH should end HAS_RESULTS, got %v", ss.State())
	}
}

func TestStackSearchEmptyRectangleYieldsNoResultsNoError(t *testing.T) {
	stack := smallStack(t, 6, 6, 3)
	ss := NewStackSearch(stack, &bytes.Buffer{})
	p := ss.params
	p.XStartMin, p.XStartMax = 3, 3 // empty
	ss.SetSearchParameters(p)
	results, err := ss.Search(DefaultGridParams())
	if err != nil {
		t.Fatalf("empty search rectangle should not error, got %v", err)
	}
	if len(results.Items) != 0 {
		t.Fatalf("empty search rectangle should yield zero results, got %d", len(results.Items))
	}
}

// TestStackSearchFindsInjectedMovingSource checks that a point source
// moving at a known constant velocity is recovered by a grid search
// whose velocity range brackets the true velocity.
func TestStackSearchFindsInjectedMovingSource(t *testing.T) {
	w, h, n := 32, 32, 10
	vx, vy := 2.0, 0.0
	x0, y0 := 8.0, 16.0

	images := make([]*imagestack.LayeredImage, n)
	for i := 0; i < n; i++ {
		sci := rawimage.NewRawImage(w, h)
		varc := rawimage.NewRawImage(w, h)
		mask := rawimage.NewRawImage(w, h)
		for j := range sci.Data {
			sci.Data[j] = 0
			varc.Data[j] = 1
		}
		ix := int(x0) + i*int(vx)
		iy := int(y0) + i*int(vy)
		sci.Set(ix, iy, 5000)
		li, err := imagestack.NewLayeredImage(sci, varc, mask, float64(i), rawimage.NewGaussianPSF(1))
		if err != nil {
			t.Fatal(err)
		}
		images[i] = li
	}
	stack, err := imagestack.NewImageStack(images)
	if err != nil {
		t.Fatal(err)
	}

	ss := NewStackSearch(stack, &bytes.Buffer{})
	p := ss.params
	p.MinObservations = n
	p.DoSigmaGFilter = false
	ss.SetSearchParameters(p)

	grid := GridParams{AngleSteps: 3, VelocitySteps: 5, MinAngle: -0.1, MaxAngle: 0.1, MinVelocity: 0, MaxVelocity: 2.5}
	results, err := ss.Search(grid)
	if err != nil {
		t.Fatal(err)
	}
	if len(results.Items) == 0 {
		t.Fatalf("expected the injected moving source to be recovered")
	}
	best := results.Items[0]
	if int(best.X) != int(x0) || int(best.Y) != int(y0) {
		t.Errorf("best trajectory start (%d,%d), want approx (%d,%d)", best.X, best.Y, int(x0), int(y0))
	}
}

func TestEvaluateTrajectoryRescoresIndependentlyOfGrid(t *testing.T) {
	stack := smallStack(t, 10, 10, 5)
	stack.Images[0].Science.Set(5, 5, 100)
	ss := NewStackSearch(stack, &bytes.Buffer{})
	if err := ss.PreparePsiPhi(); err != nil {
		t.Fatal(err)
	}
	scored, err := ss.EvaluateTrajectory(Trajectory{X: 5, Y: 5, VX: 0, VY: 0})
	if err != nil {
		t.Fatal(err)
	}
	if scored.ObsCount == 0 {
		t.Errorf("EvaluateTrajectory should find at least one valid observation")
	}
}

func TestCurvesLengthMatchesStack(t *testing.T) {
	stack := smallStack(t, 8, 8, 6)
	ss := NewStackSearch(stack, &bytes.Buffer{})
	if err := ss.PreparePsiPhi(); err != nil {
		t.Fatal(err)
	}
	traj := Trajectory{X: 4, Y: 4}
	if len(ss.PsiCurve(traj)) != 6 || len(ss.PhiCurve(traj)) != 6 || len(ss.LikelihoodCurve(traj)) != 6 {
		t.Errorf("curves should have one entry per image (6)")
	}
}
