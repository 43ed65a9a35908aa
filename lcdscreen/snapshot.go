// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdscreen

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	cellW  = 12
	cellH  = 20
	gap    = 2
	margin = 16
)

var (
	bezel       = color.NRGBA{0x10, 0x10, 0x10, 0xff}
	panelLit    = color.NRGBA{0x20, 0x50, 0xe0, 0xff}
	panelUnlit  = color.NRGBA{0x10, 0x18, 0x30, 0xff}
	dotLit      = color.NRGBA{0x30, 0x60, 0xf0, 0xff}
	dotUnlit    = color.NRGBA{0x14, 0x1c, 0x38, 0xff}
	glyphLit    = color.NRGBA{0xf0, 0xf8, 0xff, 0xff}
	glyphUnlit  = color.NRGBA{0x70, 0x78, 0x90, 0xff}
	monoFace    = sync.OnceValues(loadFace)
	faceOptions = truetype.Options{Size: 16, DPI: 72, Hinting: font.HintingFull}
)

func loadFace() (font.Face, error) {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &faceOptions), nil
}

// Snapshot renders p as a picture of the physical module: a bezel, the panel
// in the backlight color, one dimmed cell per character position and the
// glyphs on top.
func Snapshot(p Panel) (image.Image, error) {
	face, err := monoFace()
	if err != nil {
		return nil, err
	}
	lines := p.Lines()
	cols := 0
	for _, l := range lines {
		cols = max(cols, len(l))
	}
	w := 2*margin + cols*(cellW+gap) - gap
	h := 2*margin + len(lines)*(cellH+gap) - gap
	dc := gg.NewContext(w, h)
	dc.SetColor(bezel)
	dc.Clear()

	panel, dot, fg := panelUnlit, dotUnlit, glyphUnlit
	if p.Backlight() {
		panel, dot, fg = panelLit, dotLit, glyphLit
	}
	dc.SetColor(panel)
	dc.DrawRoundedRectangle(margin/2, margin/2, float64(w-margin), float64(h-margin), 4)
	dc.Fill()

	dc.SetFontFace(face)
	for row, l := range lines {
		y := float64(margin + row*(cellH+gap))
		for col := 0; col < cols; col++ {
			x := float64(margin + col*(cellW+gap))
			dc.SetColor(dot)
			dc.DrawRectangle(x, y, cellW, cellH)
			dc.Fill()
			if col >= len(l) || l[col] == ' ' {
				continue
			}
			dc.SetColor(fg)
			dc.DrawStringAnchored(string(glyph(l[col])), x+cellW/2, y+cellH/2, 0.5, 0.35)
		}
	}
	return dc.Image(), nil
}

// SavePNG writes a Snapshot of p to path.
func SavePNG(path string, p Panel) error {
	img, err := Snapshot(p)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}
