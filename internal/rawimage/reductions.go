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

import "gonum.org/v1/gonum/floats"

// CreateSummedImage sums the given stamps pixel-by-pixel, treating
// NoData as zero (a sum is a filter by construction: dropped
// observations simply don't add anything). Returns a 1x1 NoData image
// for an empty input.
func CreateSummedImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoDataImage()
	}
	w, h := stamps[0].Width, stamps[0].Height
	out := NewRawImage(w, h)
	gathered := make([]float64, 0, len(stamps))
	for i := 0; i < w*h; i++ {
		gathered = gathered[:0]
		for _, s := range stamps {
			v := s.Data[i]
			if !IsNoData(v) {
				gathered = append(gathered, float64(v))
			}
		}
		out.Data[i] = float32(floats.Sum(gathered))
	}
	return out
}

// CreateMeanImage averages the given stamps pixel-by-pixel over the
// unmasked contributions only; a pixel masked in every stamp stays
// NoData. Returns a 1x1 NoData image for an empty input.
func CreateMeanImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoDataImage()
	}
	w, h := stamps[0].Width, stamps[0].Height
	out := NewRawImage(w, h)
	gathered := make([]float64, 0, len(stamps))
	for i := 0; i < w*h; i++ {
		gathered = gathered[:0]
		for _, s := range stamps {
			v := s.Data[i]
			if !IsNoData(v) {
				gathered = append(gathered, float64(v))
			}
		}
		if len(gathered) == 0 {
			out.Data[i] = NoData
		} else {
			out.Data[i] = float32(floats.Sum(gathered) / float64(len(gathered)))
		}
	}
	return out
}

// CreateMedianImage takes the per-pixel median across the given stamps,
// ignoring NoData; a pixel masked in every stamp stays NoData. Even
// counts average the two middle unmasked values. Returns a 1x1 NoData
// image for an empty input.
func CreateMedianImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoDataImage()
	}
	w, h := stamps[0].Width, stamps[0].Height
	out := NewRawImage(w, h)
	gathered := make([]float32, 0, len(stamps))
	for i := 0; i < w*h; i++ {
		gathered = gathered[:0]
		for _, s := range stamps {
			v := s.Data[i]
			if !IsNoData(v) {
				gathered = append(gathered, v)
			}
		}
		out.Data[i] = medianOf(gathered)
	}
	return out
}
