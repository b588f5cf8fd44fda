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

import "testing"

func TestResultListSort(t *testing.T) {
	r := ResultList{Items: []Trajectory{
		{Likelihood: 3, ObsCount: 5},
		{Likelihood: 9, ObsCount: 1},
		{Likelihood: 9, ObsCount: 8},
	}}
	r.Sort()
	if r.Items[0].ObsCount != 8 || r.Items[1].ObsCount != 1 || r.Items[2].Likelihood != 3 {
		t.Fatalf("unexpected sort order: %+v", r.Items)
	}
}

func TestResultListFilter(t *testing.T) {
	r := ResultList{Items: []Trajectory{
		{Likelihood: 5}, {Likelihood: 15}, {Likelihood: 9},
	}}
	r.Filter(10)
	if len(r.Items) != 1 || r.Items[0].Likelihood != 15 {
		t.Fatalf("Filter(10) left %+v, want only the likelihood-15 entry", r.Items)
	}
}

func TestResultListTruncate(t *testing.T) {
	r := ResultList{Items: []Trajectory{{Likelihood: 1}, {Likelihood: 2}, {Likelihood: 3}}}
	r.Truncate(2)
	if len(r.Items) != 2 {
		t.Fatalf("Truncate(2) left %d items, want 2", len(r.Items))
	}
	r.Truncate(10) // no-op, list shorter than the cap
	if len(r.Items) != 2 {
		t.Fatalf("Truncate(10) on a shorter list should be a no-op, got %d items", len(r.Items))
	}
}
