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

// lessTrajectory implements the tie-break order: higher likelihood
// first, then higher obs_count, then lower (x,y) lexicographically,
// then lower (vx,vy) lexicographically. Returns true if a strictly
// outranks b (a should sort before b).
func lessTrajectory(a, b Trajectory) bool {
	if a.Likelihood != b.Likelihood {
		return a.Likelihood > b.Likelihood
	}
	if a.ObsCount != b.ObsCount {
		return a.ObsCount > b.ObsCount
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.VX != b.VX {
		return a.VX < b.VX
	}
	return a.VY < b.VY
}

// topKList retains the K best trajectories seen so far for one start
// pixel, ordered by lessTrajectory. K is small (default 8), so a
// simple insertion-sorted slice outperforms a heap in practice and
// keeps the tie-break logic in one place.
type topKList struct {
	k     int
	items []Trajectory
}

func newTopKList(k int) *topKList {
	return &topKList{k: k, items: make([]Trajectory, 0, k)}
}

// Insert adds t if it ranks within the top K, evicting the worst entry
// if the list is already full.
func (l *topKList) Insert(t Trajectory) {
	// find insertion point
	pos := len(l.items)
	for pos > 0 && lessTrajectory(t, l.items[pos-1]) {
		pos--
	}
	if pos == len(l.items) {
		if len(l.items) < l.k {
			l.items = append(l.items, t)
		}
		return
	}
	if len(l.items) < l.k {
		l.items = append(l.items, Trajectory{})
	} else {
		// list already at capacity; the trailing element gets dropped below
	}
	copy(l.items[pos+1:], l.items[pos:len(l.items)-1])
	l.items[pos] = t
}

// Items returns the retained trajectories, best first.
func (l *topKList) Items() []Trajectory { return l.items }
