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

package rawimage

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// minEffectiveWeight is the renormalization floor below which a
// convolution output pixel is declared NoData rather than divided by a
// near-zero weight.
const minEffectiveWeight = 1e-12

// PSF is a square, odd-sized kernel of non-negative weights summing to
// 1, parameterized by a Gaussian sigma in pixels.
type PSF struct {
	Sigma  float32
	Radius int
	Kernel []float32 // (2*Radius+1)^2 weights, row-major
}

// NewGaussianPSF builds a normalized Gaussian kernel of the given sigma.
// The radius is chosen as ceil(4*sigma), minimum 1, so the tails are
// negligible.
func NewGaussianPSF(sigma float32) *PSF {
	r := int(math.Ceil(float64(sigma) * 4))
	if r < 1 {
		r = 1
	}
	return newGaussianPSFWithRadius(sigma, r)
}

func newGaussianPSFWithRadius(sigma float32, r int) *PSF {
	size := 2*r + 1
	kernel := make([]float32, size*size)
	s2 := float64(sigma) * float64(sigma)
	if s2 <= 0 {
		s2 = 1e-6
	}
	raw := make([]float64, size*size)
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			v := math.Exp(-float64(i*i+j*j) / (2 * s2))
			raw[(j+r)*size+(i+r)] = v
		}
	}
	sum := floats.Sum(raw)
	for i, v := range raw {
		kernel[i] = float32(v / sum)
	}
	return &PSF{Sigma: sigma, Radius: r, Kernel: kernel}
}

// NewDeltaPSF returns a 1x1 identity kernel: a delta at the center. Used
// by property tests exercising the fact that convolving with an
// identity-equivalent PSF returns the input unchanged.
func NewDeltaPSF() *PSF {
	return &PSF{Sigma: 0, Radius: 0, Kernel: []float32{1}}
}

// Squared returns a new PSF whose kernel is the elementwise square of
// this one's, renormalized to sum to 1. Used to build phi's convolution
// kernel (PSF^2).
func (p *PSF) Squared() *PSF {
	size := 2*p.Radius + 1
	sq := make([]float64, size*size)
	for i, w := range p.Kernel {
		sq[i] = float64(w) * float64(w)
	}
	kernel := make([]float32, size*size)
	if sum := floats.Sum(sq); sum > 0 {
		for i, v := range sq {
			kernel[i] = float32(v / sum)
		}
	}
	return &PSF{Sigma: p.Sigma, Radius: p.Radius, Kernel: kernel}
}

// Convolve applies the PSF to img, producing an output of the same
// shape. Each output pixel is a weighted sum over the kernel
// neighborhood, skipping NoData inputs and renormalizing by the sum of
// weights that touched unmasked pixels; if that weight falls below
// minEffectiveWeight the output pixel is NoData. Pixels near the border,
// where the kernel partially leaves the image, are treated the same way
// as masked interior pixels: missing samples simply don't contribute.
func (p *PSF) Convolve(img *RawImage) *RawImage {
	out := NewRawImage(img.Width, img.Height)
	size := 2*p.Radius + 1
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			var acc float64
			var wsum float64
			for ky := 0; ky < size; ky++ {
				sy := y + ky - p.Radius
				if sy < 0 || sy >= img.Height {
					continue
				}
				rowBase := sy * img.Width
				kernRowBase := ky * size
				for kx := 0; kx < size; kx++ {
					sx := x + kx - p.Radius
					if sx < 0 || sx >= img.Width {
						continue
					}
					v := img.Data[rowBase+sx]
					if IsNoData(v) {
						continue
					}
					w := float64(p.Kernel[kernRowBase+kx])
					acc += w * float64(v)
					wsum += w
				}
			}
			if wsum < minEffectiveWeight {
				out.Data[y*img.Width+x] = NoData
			} else {
				out.Data[y*img.Width+x] = float32(acc / wsum)
			}
		}
	}
	return out
}
