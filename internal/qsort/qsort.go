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

// Package qsort provides in-place quickselect/quicksort helpers for
// float32 slices, used by the median coadd path, plus a percentile
// helper used by the search package's sigma-G percentile diagnostics.
package qsort

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SortFloat32 sorts a in ascending order. Array must not contain NaN.
func SortFloat32(a []float32) {
	if len(a) > 1 {
		index := PartitionFloat32(a)
		SortFloat32(a[:index+1])
		SortFloat32(a[index+1:])
	}
}

// PartitionFloat32 partitions a with the middle pivot element, and
// returns the pivot index. Values less than the pivot are moved left of
// the pivot, those greater are moved right. Array must not contain NaN.
func PartitionFloat32(a []float32) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// SelectMedianFloat32 selects the median of a, partially reordering it.
// Array must not contain NaN. For an even-length array this returns
// the average of the two middle elements, matching the median coadd's
// even-count tie-break.
func SelectMedianFloat32(a []float32) float32 {
	n := len(a)
	if n == 0 {
		return 0
	}
	lo := SelectFloat32(a, (n+1)/2)
	if n%2 == 1 {
		return lo
	}
	hi := SelectFloat32(a, n/2+1)
	return 0.5 * (lo + hi)
}

// SelectFirstQuartileFloat32 selects the first quartile of a, partially
// reordering it. Array must not contain NaN.
func SelectFirstQuartileFloat32(a []float32) float32 {
	return SelectFloat32(a, (len(a)>>2)+1)
}

// SelectFloat32 selects the k-th lowest (1-indexed) element of a,
// partially reordering it. Array must not contain NaN.
func SelectFloat32(a []float32, k int) float32 {
	left, right := 0, len(a)-1
	for left < right {
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break
			}
			a[l], a[r] = a[r], a[l]
		}
		index := r
		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k -= offset
		}
	}
	return a[left]
}

// Percentiles computes the pctLow-th and pctHigh-th percentiles (each in
// [0,100]) of xs using gonum's empirical CDF quantile estimator. The
// values are copied before sorting, so xs is not modified. Returns
// (0,0) for an empty input.
func Percentiles(xs []float32, pctLow, pctHigh float64) (lo, hi float32) {
	if len(xs) == 0 {
		return 0, 0
	}
	f64 := make([]float64, len(xs))
	for i, v := range xs {
		f64[i] = float64(v)
	}
	sort.Float64s(f64)
	lo = float32(stat.Quantile(pctLow/100.0, stat.Empirical, f64, nil))
	hi = float32(stat.Quantile(pctHigh/100.0, stat.Empirical, f64, nil))
	return lo, hi
}
