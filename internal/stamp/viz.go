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

package stamp

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"

	"github.com/mlnoga/kbsearch/internal/rawimage"
)

// WriteTIFF16 exports a coadded stamp as a 16-bit grayscale TIFF for
// external viewing, replacing NoData with zero so no NaN reaches the
// encoder. min/max set the linear stretch.
func WriteTIFF16(w io.Writer, coadd *rawimage.RawImage, min, max float32) error {
	scale := float32(1)
	if max > min {
		scale = 1 / (max - min)
	}
	img := image.NewGray16(image.Rect(0, 0, coadd.Width, coadd.Height))
	for y := 0; y < coadd.Height; y++ {
		for x := 0; x < coadd.Width; x++ {
			v := coadd.Get(x, y)
			if rawimage.IsNoData(v) {
				v = 0
			}
			v = (v - min) * scale
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(float64(v) * 65535))})
		}
	}
	return tiff.Encode(w, img, nil)
}

// WriteFalseColorPNG renders a coadded stamp through a perceptual
// deep-blue-to-warm-white heat map, using go-colorful's HCL interpolation to move
// through perceptual color space, so bright pixels stand out from
// background noise in a diagnostic dump. NoData pixels render as
// neutral gray rather than participating in the coadd math.
func WriteFalseColorPNG(w io.Writer, coadd *rawimage.RawImage, min, max float32) error {
	scale := float32(1)
	if max > min {
		scale = 1 / (max - min)
	}
	cold := colorful.Hcl(250, 0.9, 0.15) // deep blue, low luminance
	hot := colorful.Hcl(30, 0.9, 0.95)   // warm near-white

	img := image.NewRGBA(image.Rect(0, 0, coadd.Width, coadd.Height))
	for y := 0; y < coadd.Height; y++ {
		for x := 0; x < coadd.Width; x++ {
			v := coadd.Get(x, y)
			if rawimage.IsNoData(v) {
				img.Set(x, y, color.Gray{Y: 128})
				continue
			}
			t := float64((v - min) * scale)
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			img.Set(x, y, cold.BlendHcl(hot, t).Clamped())
		}
	}
	return png.Encode(w, img)
}
