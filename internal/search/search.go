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
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/psiphi"
)

// State is one of StackSearch's three lifecycle states: FRESH ->
// (prepare_psi_phi) -> READY -> (search) -> HAS_RESULTS ->
// (clear_results or new search parameters) -> READY.
type State int

const (
	StateFresh State = iota
	StateReady
	StateHasResults
)

// StackSearch borrows a non-owning reference to an ImageStack (the
// caller retains ownership) and owns the derived PsiPhiArray and
// result list.
type StackSearch struct {
	stack   *imagestack.ImageStack
	arr     *psiphi.PsiPhiArray
	params  SearchParameters
	state   State
	results ResultList
	ctx     *Context
}

// NewStackSearch wraps stack for searching. The search starts in state
// FRESH with default search parameters.
func NewStackSearch(stack *imagestack.ImageStack, log io.Writer) *StackSearch {
	return &StackSearch{
		stack:  stack,
		params: resolvedDefaults(stack),
		state:  StateFresh,
		ctx:    NewContext(log),
	}
}

func resolvedDefaults(stack *imagestack.ImageStack) SearchParameters {
	p := DefaultSearchParameters()
	p.XStartMin, p.XStartMax = 0, stack.Width()
	p.YStartMin, p.YStartMax = 0, stack.Height()
	return p
}

// State reports the current lifecycle state.
func (s *StackSearch) State() State { return s.state }

// SetSearchParameters installs new search parameters, returning the
// search to READY if it currently has results, without discarding the
// cached PsiPhiArray.
func (s *StackSearch) SetSearchParameters(p SearchParameters) {
	s.params = p
	if s.state == StateHasResults {
		s.state = StateReady
	}
}

// PreparePsiPhi generates and caches the PsiPhiArray for the current
// stack and quantization settings. Idempotent: once the array exists,
// later calls are no-ops, even if PsiNumBytes/PhiNumBytes have been
// changed through SetSearchParameters since.
func (s *StackSearch) PreparePsiPhi() error {
	if s.state != StateFresh {
		return nil
	}
	arr, err := psiphi.Generate(s.stack, s.params.PsiNumBytes, s.params.PhiNumBytes)
	if err != nil {
		return err
	}
	s.arr = arr
	s.state = StateReady
	return nil
}

// ClearResults discards the cached result list, returning to READY.
func (s *StackSearch) ClearResults() {
	s.results = ResultList{}
	if s.state == StateHasResults {
		s.state = StateReady
	}
}

// Results returns the most recently computed result list.
func (s *StackSearch) Results() ResultList { return s.results }

// Search runs the trajectory grid search over the configured start
// pixel rectangle and the given velocity grid. Calling Search from
// FRESH implicitly runs PreparePsiPhi first.
func (s *StackSearch) Search(grid GridParams) (ResultList, error) {
	if s.state == StateFresh {
		if err := s.PreparePsiPhi(); err != nil {
			return ResultList{}, err
		}
	}

	vels := CreateGridSearchList(grid)
	times := s.arr.Times

	xMin, xMax := s.params.XStartMin, s.params.XStartMax
	yMin, yMax := s.params.YStartMin, s.params.YStartMax
	if xMin >= xMax || yMin >= yMax {
		// Empty search rectangle: zero results, no error.
		s.results = ResultList{}
		s.state = StateHasResults
		return s.results, nil
	}

	k := s.params.ResultsPerPixel
	if k <= 0 {
		k = 1
	}

	numRows := yMax - yMin
	batchSize := s.ctx.RowBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	numBatches := (numRows + batchSize - 1) / batchSize

	sem := make(chan bool, s.ctx.MaxThreads)
	batchResults := make([][]Trajectory, numBatches)
	done := make(chan int, numBatches)

	for b := 0; b < numBatches; b++ {
		sem <- true
		go func(b int) {
			defer func() { <-sem }()
			rowStart := b * batchSize
			rowEnd := rowStart + batchSize
			if rowEnd > numRows {
				rowEnd = numRows
			}
			var batchOut []Trajectory
			for row := rowStart; row < rowEnd; row++ {
				y := yMin + row
				for x := xMin; x < xMax; x++ {
					candidates := evaluatePixelVelocities(s.arr, x, y, times, vels, s.params)
					if len(candidates) == 0 {
						continue
					}
					topK := newTopKList(k)
					for _, c := range candidates {
						topK.Insert(c)
					}
					batchOut = append(batchOut, topK.Items()...)
				}
			}
			batchResults[b] = batchOut
			done <- b
		}(b)
	}
	for i := 0; i < numBatches; i++ {
		<-done
	}

	var all []Trajectory
	for _, r := range batchResults {
		all = append(all, r...)
	}

	s.results = ResultList{Items: all}
	s.results.Sort()
	s.state = StateHasResults

	if s.ctx.Log != nil {
		fmt.Fprintf(s.ctx.Log, "search: %d start pixels x %d velocities -> %d results (%d row batches of up to %d rows, host memory %d MB)\n",
			numRows*(xMax-xMin), len(vels), len(all), numBatches, batchSize, s.ctx.MemoryMB)
	}

	return s.results, nil
}

// EvaluateTrajectory re-scores a single caller-supplied trajectory
// outside the grid search, ported from KBMOSearch::evaluate_single_trajectory
// in original_source (useful for scoring a trajectory produced by an
// external linker). It ignores t's Flux/Likelihood/ObsCount and
// recomputes them. The min_observations/min_lh reporting thresholds
// are not applied, so the statistics are returned even when they fall
// below them.
func (s *StackSearch) EvaluateTrajectory(t Trajectory) (Trajectory, error) {
	if s.state == StateFresh {
		if err := s.PreparePsiPhi(); err != nil {
			return Trajectory{}, err
		}
	}
	vel := Velocity{VX: t.VX, VY: t.VY}
	params := s.params
	params.MinObservations = 0
	params.MinLH = float32(math.Inf(-1))
	scored, ok := evaluateCandidate(s.arr, int(t.X), int(t.Y), vel, s.arr.Times, params)
	if !ok {
		return Trajectory{X: t.X, Y: t.Y, VX: t.VX, VY: t.VY}, nil
	}
	return scored, nil
}

// PsiCurve returns the per-image psi values along t, with NaN standing
// in for an invalid observation.
func (s *StackSearch) PsiCurve(t Trajectory) []float32 {
	return s.curve(t, true)
}

// PhiCurve returns the per-image phi values along t.
func (s *StackSearch) PhiCurve(t Trajectory) []float32 {
	return s.curve(t, false)
}

func (s *StackSearch) curve(t Trajectory, wantPsi bool) []float32 {
	out := make([]float32, s.arr.NumImages)
	for i, time := range s.arr.Times {
		px := int(math.Round(float64(t.X) + float64(t.VX)*time))
		py := int(math.Round(float64(t.Y) + float64(t.VY)*time))
		psi, phi, ok := s.arr.Get(i, px, py)
		if !ok {
			out[i] = float32(math.NaN())
			continue
		}
		if wantPsi {
			out[i] = psi
		} else {
			out[i] = phi
		}
	}
	return out
}

// LikelihoodCurve returns the per-image likelihood contribution
// psi_i/sqrt(phi_i) along t, NaN for invalid observations.
func (s *StackSearch) LikelihoodCurve(t Trajectory) []float32 {
	psis, phis := s.PsiCurve(t), s.PhiCurve(t)
	out := make([]float32, len(psis))
	for i := range out {
		if math.IsNaN(float64(psis[i])) || math.IsNaN(float64(phis[i])) || phis[i] <= 0 {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = psis[i] / float32(math.Sqrt(float64(phis[i])))
	}
	return out
}

// PsiPhiArray exposes the cached array for callers that need to build
// stamps or run diagnostics against the same statistics the search used.
func (s *StackSearch) PsiPhiArray() *psiphi.PsiPhiArray { return s.arr }

// ImageStack returns the borrowed, non-owned stack.
func (s *StackSearch) ImageStack() *imagestack.ImageStack { return s.stack }
