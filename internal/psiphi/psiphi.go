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

// Package psiphi packs the per-image psi/phi sufficient statistics into
// a single buffer laid out for coalesced, cache-friendly access by the
// trajectory search core, with optional per-image linear quantization
// to 1 or 2 bytes.
package psiphi

import (
	"errors"
	"math"

	"github.com/mlnoga/kbsearch/internal/imagestack"
	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// scaleParams is the (min_val, scale) affine decode pair for one
// image/channel's quantized encoding.
type scaleParams struct {
	minVal float32
	scale  float32
}

// PsiPhiArray is the packed representation of all psi and phi values
// across a stack. The logical address of psi at (i,x,y) is
// i*H*W + y*W + x, and likewise for phi; here they are stored as
// separate parallel planes rather than interleaved.
type PsiPhiArray struct {
	Width, Height, NumImages int
	Times                    []float64 // zeroed times, one per image

	psiNumBytes int // 1, 2 or 4 (4 = unquantized float32)
	phiNumBytes int

	psiFloat []float32 // present iff psiNumBytes == 4
	phiFloat []float32
	psiQ8    []uint8 // present iff numBytes == 1
	phiQ8    []uint8
	psiQ16   []uint16 // present iff numBytes == 2
	phiQ16   []uint16

	psiScale []scaleParams // one per image, present iff quantized
	phiScale []scaleParams

	onDevice bool // whether a device-resident copy is believed current; host copy is always authoritative
}

// Generate packs psi/phi images from stack into a PsiPhiArray, applying
// quantization of psiNumBytes/phiNumBytes bytes per pixel (1, 2 or 4).
// The array is lazily derived from the stack and cached by callers that
// need to reuse it across a search.
func Generate(stack *imagestack.ImageStack, psiNumBytes, phiNumBytes int) (*PsiPhiArray, error) {
	if err := validateNumBytes(psiNumBytes); err != nil {
		return nil, err
	}
	if err := validateNumBytes(phiNumBytes); err != nil {
		return nil, err
	}
	psis, phis, err := stack.GeneratePsiPhi()
	if err != nil {
		return nil, err
	}
	arr := &PsiPhiArray{
		Width:       stack.Width(),
		Height:      stack.Height(),
		NumImages:   stack.Count(),
		Times:       stack.ZeroedTimes(),
		psiNumBytes: psiNumBytes,
		phiNumBytes: phiNumBytes,
	}
	if psiNumBytes == 4 {
		arr.packFloat(psis, &arr.psiFloat)
	} else {
		arr.psiScale = make([]scaleParams, arr.NumImages)
		if psiNumBytes == 1 {
			arr.psiQ8 = make([]uint8, arr.NumImages*arr.Width*arr.Height)
			for i, img := range psis {
				arr.psiScale[i] = quantizeInto8(img.Data, arr.psiQ8[i*arr.Width*arr.Height:(i+1)*arr.Width*arr.Height])
			}
		} else {
			arr.psiQ16 = make([]uint16, arr.NumImages*arr.Width*arr.Height)
			for i, img := range psis {
				arr.psiScale[i] = quantizeInto16(img.Data, arr.psiQ16[i*arr.Width*arr.Height:(i+1)*arr.Width*arr.Height])
			}
		}
	}
	if phiNumBytes == 4 {
		arr.packFloat(phis, &arr.phiFloat)
	} else {
		arr.phiScale = make([]scaleParams, arr.NumImages)
		if phiNumBytes == 1 {
			arr.phiQ8 = make([]uint8, arr.NumImages*arr.Width*arr.Height)
			for i, img := range phis {
				arr.phiScale[i] = quantizeInto8(img.Data, arr.phiQ8[i*arr.Width*arr.Height:(i+1)*arr.Width*arr.Height])
			}
		} else {
			arr.phiQ16 = make([]uint16, arr.NumImages*arr.Width*arr.Height)
			for i, img := range phis {
				arr.phiScale[i] = quantizeInto16(img.Data, arr.phiQ16[i*arr.Width*arr.Height:(i+1)*arr.Width*arr.Height])
			}
		}
	}
	return arr, nil
}

func validateNumBytes(n int) error {
	if n != 1 && n != 2 && n != 4 {
		return errors.New("psiphi: num_bytes must be 1, 2 or 4")
	}
	return nil
}

func (a *PsiPhiArray) packFloat(imgs []*rawimage.RawImage, dst *[]float32) {
	buf := make([]float32, a.NumImages*a.Width*a.Height)
	for i, img := range imgs {
		copy(buf[i*a.Width*a.Height:(i+1)*a.Width*a.Height], img.Data)
	}
	*dst = buf
}

// quantizeInto8 quantizes src into a pre-sized dst of the same length,
// returning the affine decode parameters. The all-ones code (255) is
// reserved for NoData.
func quantizeInto8(src []float32, dst []uint8) scaleParams {
	return quantizeIntoN(src, 8, dst, nil)
}

func quantizeInto16(src []float32, dst []uint16) scaleParams {
	return quantizeIntoN(src, 16, nil, dst)
}

// quantizeIntoN implements the shared quantization math for both bit
// widths: min/max over unmasked pixels, width floored at 1e-6,
// scale = width/(2^bits - 2), reserved all-ones code for NoData,
// round-and-clamp encode.
func quantizeIntoN(src []float32, bits int, dst8 []uint8, dst16 []uint16) scaleParams {
	minVal := float32(math.Inf(1))
	maxVal := float32(math.Inf(-1))
	any := false
	for _, v := range src {
		if rawimage.IsNoData(v) {
			continue
		}
		any = true
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if !any {
		minVal, maxVal = 0, 0
	}
	width := maxVal - minVal
	if width < 1e-6 {
		width = 1e-6
	}
	maxCode := uint32(1)<<uint(bits) - 2
	scale := width / float32(maxCode)
	reserved := maxCode + 1

	for i, v := range src {
		if rawimage.IsNoData(v) {
			writeCode(dst8, dst16, i, reserved)
			continue
		}
		q := int64(math.Round(float64((v - minVal) / scale)))
		if q < 0 {
			q = 0
		}
		if q > int64(maxCode) {
			q = int64(maxCode)
		}
		writeCode(dst8, dst16, i, uint32(q))
	}
	return scaleParams{minVal: minVal, scale: scale}
}

func writeCode(dst8 []uint8, dst16 []uint16, i int, code uint32) {
	if dst8 != nil {
		dst8[i] = uint8(code)
	} else {
		dst16[i] = uint16(code)
	}
}

// Get returns the decoded (psi, phi) pair at image index i, pixel
// (x,y), and whether both values are valid (in bounds and not NoData).
func (a *PsiPhiArray) Get(i, x, y int) (psi, phi float32, ok bool) {
	if x < 0 || x >= a.Width || y < 0 || y >= a.Height || i < 0 || i >= a.NumImages {
		return 0, 0, false
	}
	idx := i*a.Width*a.Height + y*a.Width + x
	psi, psiOK := a.decodePsi(i, idx)
	phi, phiOK := a.decodePhi(i, idx)
	return psi, phi, psiOK && phiOK
}

func (a *PsiPhiArray) decodePsi(i, idx int) (float32, bool) {
	switch a.psiNumBytes {
	case 4:
		v := a.psiFloat[idx]
		return v, !rawimage.IsNoData(v)
	case 1:
		return decode8(a.psiQ8[idx], a.psiScale[i])
	default:
		return decode16(a.psiQ16[idx], a.psiScale[i])
	}
}

func (a *PsiPhiArray) decodePhi(i, idx int) (float32, bool) {
	switch a.phiNumBytes {
	case 4:
		v := a.phiFloat[idx]
		return v, !rawimage.IsNoData(v)
	case 1:
		return decode8(a.phiQ8[idx], a.phiScale[i])
	default:
		return decode16(a.phiQ16[idx], a.phiScale[i])
	}
}

func decode8(code uint8, p scaleParams) (float32, bool) {
	if code == 255 {
		return 0, false
	}
	return p.minVal + float32(code)*p.scale, true
}

func decode16(code uint16, p scaleParams) (float32, bool) {
	if code == 65535 {
		return 0, false
	}
	return p.minVal + float32(code)*p.scale, true
}

// OnDevice reports whether a device-resident copy is currently believed
// valid. The host buffer is always authoritative; this flag exists
// purely so a caller managing GPU transfers can avoid redundant copies.
func (a *PsiPhiArray) OnDevice() bool { return a.onDevice }

// MarkDeviceSynced records that the device copy now matches the host
// buffer.
func (a *PsiPhiArray) MarkDeviceSynced() { a.onDevice = true }

// Invalidate marks the device copy stale, e.g. after the host buffer
// changes.
func (a *PsiPhiArray) Invalidate() { a.onDevice = false }
