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
	"encoding/json"
	"testing"
)

func TestSearchParametersUnmarshalFillsDefaults(t *testing.T) {
	var p SearchParameters
	if err := json.Unmarshal([]byte(`{"minObservations": 3}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.MinObservations != 3 {
		t.Errorf("MinObservations = %d, want the explicit override 3", p.MinObservations)
	}
	want := DefaultSearchParameters()
	if p.MinLH != want.MinLH || p.SglL != want.SglL || p.PsiNumBytes != want.PsiNumBytes {
		t.Errorf("unset fields should fall back to defaults, got %+v", p)
	}
}

func TestGridParamsUnmarshalFillsDefaults(t *testing.T) {
	var g GridParams
	if err := json.Unmarshal([]byte(`{"velocitySteps": 3}`), &g); err != nil {
		t.Fatal(err)
	}
	if g.VelocitySteps != 3 {
		t.Errorf("VelocitySteps = %d, want the explicit override 3", g.VelocitySteps)
	}
	want := DefaultGridParams()
	if g.AngleSteps != want.AngleSteps || g.MaxVelocity != want.MaxVelocity {
		t.Errorf("unset fields should fall back to defaults, got %+v", g)
	}
}
