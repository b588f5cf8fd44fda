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

import "sort"

// ResultList is the flat, sortable vector of trajectories a search
// produces, decoupled from the search call itself so post-processing
// (filtering, re-sorting) can run independently, following
// trajectory_list.h in original_source's KBMOD reference.
type ResultList struct {
	Items []Trajectory
}

// Sort orders Items by strictly descending likelihood, then higher
// obs_count, then lower (x,y), then lower (vx,vy).
func (r *ResultList) Sort() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		return lessTrajectory(r.Items[i], r.Items[j])
	})
}

// Filter drops every trajectory with likelihood below minLH in place,
// mirroring trajectory_list.h's Filter.
func (r *ResultList) Filter(minLH float32) {
	out := r.Items[:0]
	for _, t := range r.Items {
		if t.Likelihood >= minLH {
			out = append(out, t)
		}
	}
	r.Items = out
}

// Truncate caps the list at maxCount entries. Truncation to a caller
// limit is the caller's responsibility; this is the helper that
// implements it.
func (r *ResultList) Truncate(maxCount int) {
	if maxCount >= 0 && len(r.Items) > maxCount {
		r.Items = r.Items[:maxCount]
	}
}
