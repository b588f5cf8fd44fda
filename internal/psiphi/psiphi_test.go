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

package psiphi

import (
	"math"
	"testing"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/rawimage"
)

func testStack(t *testing.T) *imagestack.ImageStack {
	t.Helper()
	images := make([]*imagestack.LayeredImage, 4)
	for i := range images {
		sci := rawimage.NewRawImage(6, 6)
		varc := rawimage.NewRawImage(6, 6)
		mask := rawimage.NewRawImage(6, 6)
		for j := range sci.Data {
			sci.Data[j] = float32(j%7) - 3 + float32(i)
			varc.Data[j] = 1
			mask.Data[j] = 0
		}
		li, err := imagestack.NewLayeredImage(sci, varc, mask, float64(i), rawimage.NewDeltaPSF())
		if err != nil {
			t.Fatal(err)
		}
		images[i] = li
	}
	stack, err := imagestack.NewImageStack(images)
	if err != nil {
		t.Fatal(err)
	}
	return stack
}

func TestGenerateRejectsInvalidNumBytes(t *testing.T) {
	stack := testStack(t)
	if _, err := Generate(stack, 3, 4); err == nil {
		t.Fatalf("expected an error for an invalid psiNumBytes")
	}
	if _, err := Generate(stack, 4, 5); err == nil {
		t.Fatalf("expected an error for an invalid phiNumBytes")
	}
}

func TestFloat32ModeIsExact(t *testing.T) {
	stack := testStack(t)
	arr, err := Generate(stack, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	wantPsis, wantPhis, _ := stack.GeneratePsiPhi()
	for i := 0; i < stack.Count(); i++ {
		for y := 0; y < stack.Height(); y++ {
			for x := 0; x < stack.Width(); x++ {
				psi, phi, ok := arr.Get(i, x, y)
				wantOk := !rawimage.IsNoData(wantPsis[i].Get(x, y)) && !rawimage.IsNoData(wantPhis[i].Get(x, y))
				if ok != wantOk {
					t.Fatalf("Get(%d,%d,%d) ok=%v, want %v", i, x, y, ok, wantOk)
				}
				if ok && (psi != wantPsis[i].Get(x, y) || phi != wantPhis[i].Get(x, y)) {
					t.Fatalf("Get(%d,%d,%d) = (%f,%f), want (%f,%f)", i, x, y, psi, phi, wantPsis[i].Get(x, y), wantPhis[i].Get(x, y))
				}
			}
		}
	}
}

func testQuantizationRoundTrip(t *testing.T, numBytes int, tolerance float32) {
	t.Helper()
	stack := testStack(t)
	arr, err := Generate(stack, numBytes, numBytes)
	if err != nil {
		t.Fatal(err)
	}
	wantPsis, wantPhis, _ := stack.GeneratePsiPhi()
	for i := 0; i < stack.Count(); i++ {
		for y := 0; y < stack.Height(); y++ {
			for x := 0; x < stack.Width(); x++ {
				psi, phi, ok := arr.Get(i, x, y)
				if !ok {
					t.Fatalf("Get(%d,%d,%d) unexpectedly not ok", i, x, y)
				}
				wantPsi, wantPhi := wantPsis[i].Get(x, y), wantPhis[i].Get(x, y)
				if math.Abs(float64(psi-wantPsi)) > float64(tolerance) {
					t.Errorf("psi(%d,%d,%d) = %f, want approx %f", i, x, y, psi, wantPsi)
				}
				if math.Abs(float64(phi-wantPhi)) > float64(tolerance) {
					t.Errorf("phi(%d,%d,%d) = %f, want approx %f", i, x, y, phi, wantPhi)
				}
			}
		}
	}
}

func TestQuantization8BitRoundTrip(t *testing.T) {
	testQuantizationRoundTrip(t, 1, 0.1)
}

func TestQuantization16BitRoundTrip(t *testing.T) {
	testQuantizationRoundTrip(t, 2, 1e-3)
}

func TestQuantizationReservesCodeForNoData(t *testing.T) {
	src := []float32{1, 2, rawimage.NoData, 4}
	dst8 := make([]uint8, len(src))
	p := quantizeInto8(src, dst8)
	if dst8[2] != 255 {
		t.Errorf("NoData input should encode to reserved code 255, got %d", dst8[2])
	}
	if _, ok := decode8(dst8[2], p); ok {
		t.Errorf("decode8 of the reserved code should report ok=false")
	}
	if _, ok := decode8(dst8[0], p); !ok {
		t.Errorf("decode8 of a real value should report ok=true")
	}

	dst16 := make([]uint16, len(src))
	p16 := quantizeInto16(src, dst16)
	if dst16[2] != 65535 {
		t.Errorf("NoData input should encode to reserved code 65535, got %d", dst16[2])
	}
	if _, ok := decode16(dst16[2], p16); ok {
		t.Errorf("decode16 of the reserved code should report ok=false")
	}
}

func TestQuantizeAllNoData(t *testing.T) {
	src := []float32{rawimage.NoData, rawimage.NoData}
	dst8 := make([]uint8, len(src))
	quantizeInto8(src, dst8)
	for i, c := range dst8 {
		if c != 255 {
			t.Errorf("all-NoData input pixel %d should encode to 255, got %d", i, c)
		}
	}
}

func TestGetOutOfBoundsIsNotOk(t *testing.T) {
	stack := testStack(t)
	arr, err := Generate(stack, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := arr.Get(-1, 0, 0); ok {
		t.Errorf("negative image index should not be ok")
	}
	if _, _, ok := arr.Get(0, arr.Width, 0); ok {
		t.Errorf("out-of-bounds x should not be ok")
	}
}

func TestDeviceSyncFlags(t *testing.T) {
	stack := testStack(t)
	arr, err := Generate(stack, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if arr.OnDevice() {
		t.Errorf("fresh array should not be marked on-device")
	}
	arr.MarkDeviceSynced()
	if !arr.OnDevice() {
		t.Errorf("MarkDeviceSynced should set OnDevice")
	}
	arr.Invalidate()
	if arr.OnDevice() {
		t.Errorf("Invalidate should clear OnDevice")
	}
}
