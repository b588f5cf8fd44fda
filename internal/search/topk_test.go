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
	"testing"

	"github.com/valyala/fastrand"
)

func TestTopKListKeepsKBest(t *testing.T) {
	l := newTopKList(3)
	for _, lh := range []float32{5, 9, 1, 7, 3, 8} {
		l.Insert(Trajectory{Likelihood: lh})
	}
	items := l.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 retained items, got %d", len(items))
	}
	want := []float32{9, 8, 7}
	for i, w := range want {
		if items[i].Likelihood != w {
			t.Errorf("items[%d].Likelihood = %f, want %f", i, items[i].Likelihood, w)
		}
	}
}

func TestTopKListStableUnderPermutation(t *testing.T) {
	rng := fastrand.RNG{}
	base := make([]float32, 50)
	for i := range base {
		base[i] = float32(i)
	}
	for j := range base {
		k := rng.Uint32n(uint32(len(base)))
		base[j], base[k] = base[k], base[j]
	}

	l := newTopKList(8)
	for _, lh := range base {
		l.Insert(Trajectory{Likelihood: lh})
	}
	items := l.Items()
	if len(items) != 8 {
		t.Fatalf("expected 8 retained items, got %d", len(items))
	}
	for i, want := 0, float32(49); i < 8; i, want = i+1, want-1 {
		if items[i].Likelihood != want {
			t.Errorf("items[%d].Likelihood = %f, want %f", i, items[i].Likelihood, want)
		}
	}
}

func TestTopKListTieBreakOrder(t *testing.T) {
	l := newTopKList(4)
	l.Insert(Trajectory{Likelihood: 5, ObsCount: 3, X: 2, Y: 2})
	l.Insert(Trajectory{Likelihood: 5, ObsCount: 5, X: 1, Y: 1})
	l.Insert(Trajectory{Likelihood: 5, ObsCount: 5, X: 0, Y: 9})
	items := l.Items()
	if items[0].ObsCount != 5 || items[0].X != 0 {
		t.Errorf("highest obs_count then lowest x should sort first, got %+v", items[0])
	}
	if items[1].ObsCount != 5 || items[1].X != 1 {
		t.Errorf("second place should be the other obs_count-5 entry, got %+v", items[1])
	}
	if items[2].ObsCount != 3 {
		t.Errorf("lowest obs_count should sort last among equal likelihoods, got %+v", items[2])
	}
}

func TestTopKListFewerThanKItems(t *testing.T) {
	l := newTopKList(8)
	l.Insert(Trajectory{Likelihood: 1})
	l.Insert(Trajectory{Likelihood: 2})
	if len(l.Items()) != 2 {
		t.Errorf("with fewer than K inserts, Items() should return exactly what was inserted, got %d", len(l.Items()))
	}
}
