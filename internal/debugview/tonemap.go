// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package debugview

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/surface"
)

// ToneMap maps HDR radiance to sRGB with an exposure scale and the
// Reinhard operator.
func ToneMap(c *surface.Color, exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for y := range c.Height {
		for x := range c.Width {
			v := c.Pix[y*c.Width+x].Mul(exposure)
			img.SetRGBA(x, y, color.RGBA{
				R: encodeSRGB(reinhard(v[0])),
				G: encodeSRGB(reinhard(v[1])),
				B: encodeSRGB(reinhard(v[2])),
				A: 0xff,
			})
		}
	}
	return img
}

// Difference shows |a - b| per pixel scaled by gain, for spotting where
// reflections were added. Planes of different sizes yield an empty image.
func Difference(a, b *surface.Color, gain float32) *image.RGBA {
	if a.Width != b.Width || a.Height != b.Height {
		return image.NewRGBA(image.Rectangle{})
	}
	d := surface.NewPlane[mgl32.Vec3](a.Width, a.Height)
	for i := range d.Pix {
		s := a.Pix[i].Sub(b.Pix[i])
		d.Pix[i] = mgl32.Vec3{abs(s[0]), abs(s[1]), abs(s[2])}
	}
	return ToneMap(d, gain)
}

func reinhard(v float32) float32 {
	v = max(v, 0)
	return v / (1 + v)
}

// encodeSRGB applies the sRGB transfer curve to a linear value in [0, 1].
func encodeSRGB(v float32) uint8 {
	v = mgl32.Clamp(v, 0, 1)
	var s float64
	if v <= 0.0031308 {
		s = float64(v) * 12.92
	} else {
		s = 1.055*math.Pow(float64(v), 1/2.4) - 0.055
	}
	return uint8(math.Round(s * 255))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
