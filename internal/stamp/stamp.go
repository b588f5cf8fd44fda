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

package stamp

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/rawimage"
	"github.com/mlnoga/kbsearch/internal/search"
)

// BuildStamps cuts a (2r+1)x(2r+1) stamp from each image's science
// plane, centered on the trajectory's predicted position at that
// image's time. useIndex selects which times contribute; an empty
// useIndex means all times contribute.
func BuildStamps(stack *imagestack.ImageStack, t search.Trajectory, radius int, useIndex []bool) ([]*rawimage.RawImage, error) {
	if radius < 0 || radius > MaxStampEdge {
		return nil, fmt.Errorf("stamp: invalid radius %d (must be 0..%d)", radius, MaxStampEdge)
	}
	if len(useIndex) != 0 && len(useIndex) != stack.Count() {
		return nil, fmt.Errorf("stamp: use_index has %d entries, expected %d", len(useIndex), stack.Count())
	}

	times := stack.ZeroedTimes()
	out := make([]*rawimage.RawImage, 0, stack.Count())
	for i, img := range stack.Images {
		if len(useIndex) != 0 && !useIndex[i] {
			continue
		}
		cx := float64(t.X) + float64(t.VX)*times[i]
		cy := float64(t.Y) + float64(t.VY)*times[i]
		out = append(out, img.Science.StampAt(cx, cy, radius))
	}
	return out, nil
}

// Coadd reduces stamps to a single image via the tagged Type.
func Coadd(stamps []*rawimage.RawImage, t Type) *rawimage.RawImage {
	switch t {
	case Mean:
		return rawimage.CreateMeanImage(stamps)
	case Median:
		return rawimage.CreateMedianImage(stamps)
	default:
		return rawimage.CreateSummedImage(stamps)
	}
}

// BuildCoadd cuts and co-adds the stamps for one trajectory, applying
// the coadd quality filters if params.DoFiltering is set. Rejected
// trajectories get a 1x1 NoData stamp back and passed=false; the
// caller may drop them.
func BuildCoadd(stack *imagestack.ImageStack, t search.Trajectory, params Parameters, useIndex []bool) (coadd *rawimage.RawImage, passed bool, err error) {
	stamps, err := BuildStamps(stack, t, params.Radius, useIndex)
	if err != nil {
		return nil, false, err
	}
	coadd = Coadd(stamps, params.StampType)
	if !params.DoFiltering {
		return coadd, true, nil
	}
	if passesQualityFilters(coadd, params) {
		return coadd, true, nil
	}
	return rawimage.NewNoDataImage(), false, nil
}

// passesQualityFilters implements the coadd quality gate: peak offset
// from center, fraction of flux in the brightest pixel, and central
// moment limits.
func passesQualityFilters(coadd *rawimage.RawImage, params Parameters) bool {
	r := (coadd.Width - 1) / 2
	px, py := coadd.PeakIndex()
	if px < 0 {
		return false // fully masked coadd
	}
	if absf(float32(px-r)) > params.PeakOffsetX || absf(float32(py-r)) > params.PeakOffsetY {
		return false
	}

	peakVal := coadd.Get(px, py)
	sum, _ := coadd.Sum()
	if sum == 0 || peakVal/sum < params.CenterThresh {
		return false
	}

	if absf(coadd.CentralMoment(0, 1)) > params.M01Limit {
		return false
	}
	if absf(coadd.CentralMoment(1, 0)) > params.M10Limit {
		return false
	}
	if absf(coadd.CentralMoment(1, 1)) > params.M11Limit {
		return false
	}
	if coadd.CentralMoment(0, 2) > params.M02Limit {
		return false
	}
	if coadd.CentralMoment(2, 0) > params.M20Limit {
		return false
	}
	return true
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// BuildCoaddsBatch computes coadds for many trajectories in parallel,
// batching across a semaphore-bounded goroutine pool. This is the
// CPU-side analogue of a GPU coadd path for large trajectory batches.
func BuildCoaddsBatch(stack *imagestack.ImageStack, trajectories []search.Trajectory, params Parameters, useIndex []bool) ([]*rawimage.RawImage, []bool, error) {
	n := len(trajectories)
	coadds := make([]*rawimage.RawImage, n)
	passed := make([]bool, n)
	errs := make([]error, n)

	sem := make(chan bool, runtime.NumCPU())
	done := make(chan int, n)
	for i, t := range trajectories {
		sem <- true
		go func(i int, t search.Trajectory) {
			defer func() { <-sem }()
			c, p, err := BuildCoadd(stack, t, params, useIndex)
			coadds[i], passed[i], errs[i] = c, p, err
			done <- i
		}(i, t)
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for _, e := range errs {
		if e != nil {
			return coadds, passed, e
		}
	}
	return coadds, passed, nil
}

// BuildCoaddsGPU is the device coadd path for large trajectory
// batches. This build carries no GPU backend, so it always errors
// rather than silently falling back to the CPU path.
func BuildCoaddsGPU(stack *imagestack.ImageStack, trajectories []search.Trajectory, params Parameters, useIndex []bool) ([]*rawimage.RawImage, []bool, error) {
	return nil, nil, errors.New("stamp: GPU coadd path is not available in this build")
}
