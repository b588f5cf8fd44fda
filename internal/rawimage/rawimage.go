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

// Package rawimage implements the dense 2D float image primitive shared
// by every layer of the search: masked-pixel sentinel handling, PSF
// convolution, stamp extraction, peak finding, central moments and the
// cross-stamp reductions used by the coadd path.
package rawimage

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NoData marks a masked / invalid pixel. It is never a legitimate
// science value, so IEEE NaN is used: every float32 comparison
// involving it is false, which keeps stray propagation from silently
// participating in sums the way a sentinel float like -9999 would.
var NoData = float32(math.NaN())

// IsNoData reports whether v is the masked-pixel sentinel.
func IsNoData(v float32) bool {
	return math.IsNaN(float64(v))
}

// RawImage is a dense (H,W) array of float32 pixel values, row-major,
// most quickly varying dimension (x) first.
type RawImage struct {
	Width  int
	Height int
	Data   []float32
}

// NewRawImage allocates a width x height image with all pixels set to
// NoData.
func NewRawImage(width, height int) *RawImage {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = NoData
	}
	return &RawImage{Width: width, Height: height, Data: data}
}

// NewRawImageFromData wraps an existing row-major buffer. The buffer is
// not copied.
func NewRawImageFromData(width, height int, data []float32) *RawImage {
	return &RawImage{Width: width, Height: height, Data: data}
}

// NewNoDataImage returns a 1x1 image whose only pixel is NoData, the
// canonical "no result" sentinel image returned by the reductions in
// this package when given no usable input.
func NewNoDataImage() *RawImage {
	return NewRawImage(1, 1)
}

func (img *RawImage) inBounds(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}

// Get returns the pixel at (x,y), or NoData if out of bounds.
func (img *RawImage) Get(x, y int) float32 {
	if !img.inBounds(x, y) {
		return NoData
	}
	return img.Data[y*img.Width+x]
}

// Set writes the pixel at (x,y). Out-of-bounds writes are ignored.
func (img *RawImage) Set(x, y int, v float32) {
	if !img.inBounds(x, y) {
		return
	}
	img.Data[y*img.Width+x] = v
}

// Clone returns a deep copy.
func (img *RawImage) Clone() *RawImage {
	data := make([]float32, len(img.Data))
	copy(data, img.Data)
	return &RawImage{Width: img.Width, Height: img.Height, Data: data}
}

// Sum returns the sum of all unmasked pixels and the count of pixels
// that contributed.
func (img *RawImage) Sum() (sum float32, count int) {
	for _, v := range img.Data {
		if !IsNoData(v) {
			sum += v
			count++
		}
	}
	return sum, count
}

// Mean returns the mean of all unmasked pixels, or NoData if none.
func (img *RawImage) Mean() float32 {
	sum, count := img.Sum()
	if count == 0 {
		return NoData
	}
	return sum / float32(count)
}

// Median returns the median of all unmasked pixels, or NoData if none.
// Uses the quickselect from internal/qsort so this stays consistent
// with the coadd median path.
func (img *RawImage) Median() float32 {
	gathered := make([]float32, 0, len(img.Data))
	for _, v := range img.Data {
		if !IsNoData(v) {
			gathered = append(gathered, v)
		}
	}
	return medianOf(gathered)
}

// StampAt extracts a (2r+1)x(2r+1) stamp centered on the sub-pixel
// position (cx,cy). Pixel [i,j] of the result corresponds to input
// pixel nearest (cx-r+j, cy-r+i). Samples outside the source image are
// NoData. No sub-pixel interpolation is performed.
func (img *RawImage) StampAt(cx, cy float64, r int) *RawImage {
	size := 2*r + 1
	out := NewRawImage(size, size)
	baseX := int(math.Round(cx)) - r
	baseY := int(math.Round(cy)) - r
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			out.Data[j*size+i] = img.Get(baseX+i, baseY+j)
		}
	}
	return out
}

// VizStamp is like StampAt, but replaces NoData pixels with zero. It is
// intended purely for human-facing display (PNG/TIFF export), never
// for the coadd path.
func (img *RawImage) VizStamp(cx, cy float64, r int) *RawImage {
	s := img.StampAt(cx, cy, r)
	for i, v := range s.Data {
		if IsNoData(v) {
			s.Data[i] = 0
		}
	}
	return s
}

// PeakIndex returns the (x,y) of the maximum unmasked pixel. Ties are
// broken by lowest row then lowest column. Returns (-1,-1) if every
// pixel is masked.
func (img *RawImage) PeakIndex() (x, y int) {
	best := float32(math.Inf(-1))
	x, y = -1, -1
	for j := 0; j < img.Height; j++ {
		for i := 0; i < img.Width; i++ {
			v := img.Data[j*img.Width+i]
			if IsNoData(v) {
				continue
			}
			if v > best {
				best, x, y = v, i, j
			}
		}
	}
	return x, y
}

// FluxWeightedPeak returns the intensity-weighted centroid of all
// unmasked pixels, rounded to the nearest pixel. Returns (-1,-1) if
// there is no positive flux to weight by.
func (img *RawImage) FluxWeightedPeak() (x, y int) {
	var sumW, sumX, sumY float64
	for j := 0; j < img.Height; j++ {
		for i := 0; i < img.Width; i++ {
			v := img.Data[j*img.Width+i]
			if IsNoData(v) || v <= 0 {
				continue
			}
			w := float64(v)
			sumW += w
			sumX += w * float64(i)
			sumY += w * float64(j)
		}
	}
	if sumW <= 0 {
		return -1, -1
	}
	return int(math.Round(sumX / sumW)), int(math.Round(sumY / sumW))
}

// CentralMoment computes the normalized central moment m_pq over a
// square stamp of side 2r+1, where r = (Width-1)/2, ignoring NoData
// pixels. Only orders {00,01,10,11,02,20} are used by the quality
// filters that call it. Offsets from the center are kept as integers
// and the 1/r^(p+q) normalization is applied once to the sum, so the
// terms of a symmetric stamp cancel exactly.
func (img *RawImage) CentralMoment(p, q int) float32 {
	r := (img.Width - 1) / 2
	if r <= 0 {
		return 0
	}
	terms := make([]float64, 0, img.Width*img.Height)
	for j := 0; j < img.Height; j++ {
		dy := float64(j - r)
		for i := 0; i < img.Width; i++ {
			v := img.Data[j*img.Width+i]
			if IsNoData(v) {
				continue
			}
			dx := float64(i - r)
			terms = append(terms, float64(v)*ipow(dx, p)*ipow(dy, q))
		}
	}
	return float32(floats.Sum(terms) / ipow(float64(r), p+q))
}

func ipow(base float64, exp int) float64 {
	result := 1.0
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}
