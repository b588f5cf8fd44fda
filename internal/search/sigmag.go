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
	"sort"

	"github.com/mlnoga/kbsearch/internal/qsort"
	"gonum.org/v1/gonum/stat"
)

// SigmaGFilter implements robust outlier rejection: compute the
// sglL/sglH percentiles of values, reject any entry lying more than
// 1/sigmaGCoeff interquartile widths from the median. Returns a
// per-entry keep mask, which a caller can pass on as the stamp
// builder's use_index parameter, following basic_filters.py's approach
// in original_source. The search core applies the mask inside
// evaluateCandidate and does not return it with its results.
//
// An empty input disables the filter for that candidate (ok=false,
// keep left nil).
func SigmaGFilter(values []float32, sglL, sglH float64, sigmaGCoeff float32) (keep []bool, ok bool) {
	n := len(values)
	if n == 0 || sigmaGCoeff <= 0 {
		return nil, false
	}
	sorted := make([]float64, n)
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	lo := stat.Quantile(sglL/100.0, stat.Empirical, sorted, nil)
	hi := stat.Quantile(sglH/100.0, stat.Empirical, sorted, nil)
	iqr := hi - lo
	threshold := iqr / float64(sigmaGCoeff)

	keep = make([]bool, n)
	for i, v := range values {
		diff := float64(v) - median
		if diff < 0 {
			diff = -diff
		}
		keep[i] = diff <= threshold
	}
	return keep, true
}

// percentilesOf is a thin wrapper kept for callers that only need the
// interquartile bounds without a keep-mask (e.g. diagnostics), reusing
// qsort's percentile helper so both paths agree on the estimator.
func percentilesOf(values []float32, sglL, sglH float64) (lo, hi float32) {
	cp := make([]float32, len(values))
	copy(cp, values)
	return qsort.Percentiles(cp, sglL, sglH)
}
