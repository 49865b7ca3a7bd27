// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package debugview

import (
	"image"
	"image/color"
	"image/draw"
)

// Panel is one captioned image of a mosaic.
type Panel struct {
	Title string
	Image image.Image
}

// Mosaic lays panels out left to right in rows of columns, each under its
// caption. Cells take the size of the largest panel.
func Mosaic(panels []Panel, columns int) (*image.RGBA, error) {
	if len(panels) == 0 {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	columns = max(min(columns, len(panels)), 1)
	rows := (len(panels) + columns - 1) / columns

	var cw, ch int
	for _, p := range panels {
		b := p.Image.Bounds()
		cw = max(cw, b.Dx())
		ch = max(ch, b.Dy())
	}
	ch += labelHeight()

	out := image.NewRGBA(image.Rect(0, 0, columns*cw, rows*ch))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{0x18, 0x18, 0x18, 0xff}), image.Point{}, draw.Src)
	for i, p := range panels {
		x := (i % columns) * cw
		y := (i / columns) * ch
		b := p.Image.Bounds()
		dst := image.Rect(x, y+labelHeight(), x+b.Dx(), y+labelHeight()+b.Dy())
		draw.Draw(out, dst, p.Image, b.Min, draw.Src)
		if err := Label(out, x, y, p.Title); err != nil {
			return nil, err
		}
	}
	return out, nil
}
