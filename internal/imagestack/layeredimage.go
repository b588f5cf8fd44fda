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

// Package imagestack holds the time-ordered stack of calibrated,
// co-registered images the search runs against, plus the ψ/φ
// generation that turns each layered image into the sufficient
// statistics the trajectory search core consumes.
package imagestack

import (
	"errors"
	"fmt"

	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// LayeredImage is one time-slice: science, variance and mask planes of
// identical shape, an observation timestamp in MJD, and the PSF that
// applied at capture time.
type LayeredImage struct {
	Science  *rawimage.RawImage
	Variance *rawimage.RawImage
	Mask     *rawimage.RawImage // bitfield of mask reasons, stored as float32 bit patterns
	MJD      float64
	PSF      *rawimage.PSF
}

// NewLayeredImage validates that science, variance and mask share
// shape before constructing the triple.
func NewLayeredImage(science, variance, mask *rawimage.RawImage, mjd float64, psf *rawimage.PSF) (*LayeredImage, error) {
	if science.Width != variance.Width || science.Height != variance.Height ||
		science.Width != mask.Width || science.Height != mask.Height {
		return nil, errors.New("imagestack: science, variance and mask must share shape")
	}
	return &LayeredImage{Science: science, Variance: variance, Mask: mask, MJD: mjd, PSF: psf}, nil
}

// ApplyMask sets NoData in science and variance wherever the mask
// plane is non-zero under the configured flagMask.
func (li *LayeredImage) ApplyMask(flagMask uint32) {
	for i, m := range li.Mask.Data {
		if uint32(m)&flagMask != 0 {
			li.Science.Data[i] = rawimage.NoData
			li.Variance.Data[i] = rawimage.NoData
		}
	}
}

// Width and Height report the shared shape of the three planes.
func (li *LayeredImage) Width() int  { return li.Science.Width }
func (li *LayeredImage) Height() int { return li.Science.Height }

// PsiPhi computes psi = conv(science/variance, PSF) and
// phi = conv(1/variance, PSF^2) for this time-slice. Division by zero
// or masked variance produces NoData, which propagates through the
// convolution's renormalization.
func (li *LayeredImage) PsiPhi() (psi, phi *rawimage.RawImage) {
	w, h := li.Width(), li.Height()
	sciOverVar := rawimage.NewRawImage(w, h)
	invVar := rawimage.NewRawImage(w, h)
	for i := range sciOverVar.Data {
		s, v := li.Science.Data[i], li.Variance.Data[i]
		if rawimage.IsNoData(s) || rawimage.IsNoData(v) || v <= 0 {
			sciOverVar.Data[i] = rawimage.NoData
			invVar.Data[i] = rawimage.NoData
			continue
		}
		sciOverVar.Data[i] = s / v
		invVar.Data[i] = 1 / v
	}
	psi = li.PSF.Convolve(sciOverVar)
	phi = li.PSF.Squared().Convolve(invVar)
	return psi, phi
}

// Validate reports a data error if the image is unusable:
// zero-or-negative variance everywhere, or an all-masked science
// plane.
func (li *LayeredImage) Validate() error {
	anyValid := false
	for i := range li.Science.Data {
		if !rawimage.IsNoData(li.Science.Data[i]) && !rawimage.IsNoData(li.Variance.Data[i]) && li.Variance.Data[i] > 0 {
			anyValid = true
			break
		}
	}
	if !anyValid {
		return fmt.Errorf("imagestack: layered image at MJD %f has no usable pixels", li.MJD)
	}
	return nil
}
