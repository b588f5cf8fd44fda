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

// Package fakedata generates synthetic image stacks with an injected
// moving point source, ported from original_source's
// fake_data_creator.py. It exists purely for tests and the CLI's demo
// mode: FITS ingestion of real data stays out of the core's scope.
package fakedata

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// MovingSourceParams describes one synthetic stack.
type MovingSourceParams struct {
	Width, Height int
	NumImages     int
	MJD0          float64 // timestamp of image 0
	CadenceDays   float64 // spacing between successive images

	X0, Y0 float64 // source position at t=0
	VX, VY float64 // source velocity, pixels/day

	Flux         float32 // peak amplitude of the injected source
	NoiseSigma   float32 // stddev of the per-pixel Gaussian background
	PSFSigma     float32
	MaskedImages map[int]bool // images to entirely mask out the source pixel, for testing
}

// DefaultStationarySourceParams returns parameters for a stationary
// delta source: 10 images, a spike of flux 1000 at (32,32), sigma=1
// Gaussian PSF, unit noise sigma and unit variance.
func DefaultStationarySourceParams() MovingSourceParams {
	return MovingSourceParams{
		Width: 64, Height: 64, NumImages: 10,
		MJD0: 59000.0, CadenceDays: 0.1,
		X0: 32, Y0: 32, VX: 0, VY: 0,
		Flux: 1000, NoiseSigma: 1, PSFSigma: 1,
	}
}

// DefaultMovingSourceParams returns parameters for a moving source:
// the same stack, but the spike moves at (10,0) px/day.
func DefaultMovingSourceParams() MovingSourceParams {
	p := DefaultStationarySourceParams()
	p.VX = 10
	return p
}

// NewMovingSourceStack builds an ImageStack with a point source at
// (X0+VX*t, Y0+VY*t) in every time-slice, Gaussian background noise of
// NoiseSigma, variance planes of NoiseSigma^2 and a Gaussian PSF.
func NewMovingSourceStack(p MovingSourceParams) (*imagestack.ImageStack, error) {
	rng := fastrand.RNG{}

	images := make([]*imagestack.LayeredImage, p.NumImages)
	for i := 0; i < p.NumImages; i++ {
		t := float64(i) * p.CadenceDays
		sx, sy := p.X0+p.VX*t, p.Y0+p.VY*t

		science := rawimage.NewRawImage(p.Width, p.Height)
		variance := rawimage.NewRawImage(p.Width, p.Height)
		mask := rawimage.NewRawImage(p.Width, p.Height)
		for j := range science.Data {
			science.Data[j] = float32(p.NoiseSigma) * gaussian(&rng)
			variance.Data[j] = p.NoiseSigma * p.NoiseSigma
			mask.Data[j] = 0
		}
		ix, iy := int(math.Round(sx)), int(math.Round(sy))
		if ix >= 0 && ix < p.Width && iy >= 0 && iy < p.Height {
			idx := iy*p.Width + ix
			science.Data[idx] += p.Flux
			if p.MaskedImages[i] {
				mask.Data[idx] = 1
				science.Data[idx] = rawimage.NoData
				variance.Data[idx] = rawimage.NoData
			}
		}

		psf := rawimage.NewGaussianPSF(p.PSFSigma)
		li, err := imagestack.NewLayeredImage(science, variance, mask, p.MJD0+t, psf)
		if err != nil {
			return nil, err
		}
		images[i] = li
	}
	return imagestack.NewImageStack(images)
}

// gaussian draws a standard-normal sample via Box-Muller from two
// fastrand uniform draws, matching the fastrand usage already
// established for test randomness in internal/qsort.
func gaussian(rng *fastrand.RNG) float32 {
	const maxU32 = float64(^uint32(0)) + 1
	u1 := (float64(rng.Uint32()) + 1) / (maxU32 + 1) // avoid log(0)
	u2 := float64(rng.Uint32()) / maxU32
	return float32(math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2))
}
