// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package debugview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelSize is the label font size in pixels.
const LabelSize = 12

var labelFace = sync.OnceValues(func() (font.Face, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("debugview: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    LabelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("debugview: create face: %w", err)
	}
	return face, nil
})

// labelHeight is the height of the caption strip above each panel.
func labelHeight() int { return LabelSize + 6 }

// Label draws text with its top-left corner at (x, y) on a dark backdrop.
func Label(dst draw.Image, x, y int, text string) error {
	face, err := labelFace()
	if err != nil {
		return err
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.White), Face: face}
	width := d.MeasureString(text).Ceil()
	draw.Draw(dst, image.Rect(x, y, x+width+4, y+labelHeight()),
		image.NewUniform(color.RGBA{0, 0, 0, 0xc0}), image.Point{}, draw.Over)

	ascent := face.Metrics().Ascent
	d.Dot = fixed.Point26_6{X: fixed.I(x + 2), Y: fixed.I(y+3) + ascent}
	d.DrawString(text)
	return nil
}
