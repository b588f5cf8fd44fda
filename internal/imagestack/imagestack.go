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

package imagestack

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// ImageStack is an ordered sequence of LayeredImages sharing shape.
// Index 0 defines the time origin; timestamps need not be sorted.
type ImageStack struct {
	Images []*LayeredImage
}

// NewImageStack validates that all images share shape and that the
// stack is non-empty (an empty stack is a data error at construction),
// then wraps them.
func NewImageStack(images []*LayeredImage) (*ImageStack, error) {
	if len(images) == 0 {
		return nil, errors.New("imagestack: cannot build a stack from zero images")
	}
	w, h := images[0].Width(), images[0].Height()
	for i, img := range images {
		if img.Width() != w || img.Height() != h {
			return nil, fmt.Errorf("imagestack: image %d has shape %dx%d, expected %dx%d", i, img.Width(), img.Height(), w, h)
		}
	}
	return &ImageStack{Images: images}, nil
}

// Width and Height report the shared image shape.
func (s *ImageStack) Width() int  { return s.Images[0].Width() }
func (s *ImageStack) Height() int { return s.Images[0].Height() }

// Count returns the number of time-slices.
func (s *ImageStack) Count() int { return len(s.Images) }

// ZeroedTimes returns tᵢ = MJDᵢ - MJD₀, where MJD₀ is the timestamp of
// index 0 (not the minimum).
func (s *ImageStack) ZeroedTimes() []float64 {
	t0 := s.Images[0].MJD
	out := make([]float64, len(s.Images))
	for i, img := range s.Images {
		out[i] = img.MJD - t0
	}
	return out
}

// GlobalMask synthesizes a binary image where pixel p is marked iff at
// least threshold images have p flagged under at least one of flags.
func (s *ImageStack) GlobalMask(flags uint32, threshold int) *rawimage.RawImage {
	w, h := s.Width(), s.Height()
	counts := make([]int, w*h)
	for _, img := range s.Images {
		for i, m := range img.Mask.Data {
			if uint32(m)&flags != 0 {
				counts[i]++
			}
		}
	}
	out := rawimage.NewRawImage(w, h)
	for i, c := range counts {
		if c >= threshold {
			out.Data[i] = 1
		} else {
			out.Data[i] = 0
		}
	}
	return out
}

// Validate checks every layered image and returns the first data error found.
func (s *ImageStack) Validate() error {
	for _, img := range s.Images {
		if err := img.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PsiPhiResult bundles one time-slice's psi/phi images with its index,
// used when generating psi/phi in parallel across the stack.
type PsiPhiResult struct {
	Index int
	Psi   *rawimage.RawImage
	Phi   *rawimage.RawImage
}

// GeneratePsiPhi computes psi/phi for every image in the stack. The
// convolutions are independent per image, so this splits work across a
// semaphore-bounded goroutine pool sized to NumCPU() workers.
func (s *ImageStack) GeneratePsiPhi() ([]*rawimage.RawImage, []*rawimage.RawImage, error) {
	n := len(s.Images)
	psis := make([]*rawimage.RawImage, n)
	phis := make([]*rawimage.RawImage, n)

	sem := make(chan bool, runtime.NumCPU())
	done := make(chan int, n)
	for i, img := range s.Images {
		sem <- true
		go func(i int, img *LayeredImage) {
			defer func() { <-sem }()
			psi, phi := img.PsiPhi()
			psis[i] = psi
			phis[i] = phi
			done <- i
		}(i, img)
	}
	for i := 0; i < n; i++ {
		<-done
	}
	return psis, phis, nil
}
