// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdscreen renders the contents of a character LCD, either to the
// terminal (stdout) using ANSI color codes or to an image.
//
// Useful to see what the firmware would show while the display is still in the
// mail.
package lcdscreen

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Panel is a character display whose visible contents can be read back, such
// as hd44780test.LCD.
type Panel interface {
	Lines() []string
	Backlight() bool
}

// Opts represents the options available for the terminal renderer.
type Opts struct {
	Palette *ansi256.Palette
	// Lit and Unlit are the frame colors with the backlight on and off.
	Lit   color.NRGBA
	Unlit color.NRGBA

	_ struct{}
}

var (
	defaultLit   = color.NRGBA{0x40, 0x80, 0xff, 0xff}
	defaultUnlit = color.NRGBA{0x30, 0x30, 0x30, 0xff}
)

// Terminal draws a Panel at the console.
type Terminal struct {
	w       io.Writer
	palette ansi256.Palette
	color   bool
	lit     color.NRGBA
	unlit   color.NRGBA

	buf bytes.Buffer
}

// New returns a Terminal writing to stdout. Colors are only used when stdout
// is a terminal.
func New(opts *Opts) *Terminal {
	if opts == nil {
		opts = &Opts{}
	}
	fd := os.Stdout.Fd()
	t := newTerminal(colorable.NewColorableStdout(), opts)
	t.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return t
}

func newTerminal(w io.Writer, opts *Opts) *Terminal {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	t := &Terminal{w: w, palette: *p, lit: opts.Lit, unlit: opts.Unlit}
	if t.lit == (color.NRGBA{}) {
		t.lit = defaultLit
	}
	if t.unlit == (color.NRGBA{}) {
		t.unlit = defaultUnlit
	}
	return t
}

func (t *Terminal) String() string {
	return "LCDScreen"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes so the console is not left colored.
func (t *Terminal) Halt() error {
	if !t.color {
		return nil
	}
	_, err := t.w.Write([]byte("\033[0m"))
	return err
}

// Refresh draws the current contents of p, framed by a border in the backlight
// color.
func (t *Terminal) Refresh(p Panel) error {
	lines := p.Lines()
	cols := 0
	for _, l := range lines {
		cols = max(cols, len(l))
	}
	t.buf.Reset()
	if t.color {
		frame := t.unlit
		if p.Backlight() {
			frame = t.lit
		}
		block := t.palette.Block(frame)
		edge := strings.Repeat(block, cols+2)
		_, _ = fmt.Fprintf(&t.buf, "\033[0m%s\033[0m\n", edge)
		for _, l := range lines {
			_, _ = fmt.Fprintf(&t.buf, "%s\033[0m%s%s\033[0m\n", block, Printable(l, cols), block)
		}
		_, _ = fmt.Fprintf(&t.buf, "%s\033[0m\n", edge)
	} else {
		edge := "+" + strings.Repeat("-", cols) + "+\n"
		t.buf.WriteString(edge)
		for _, l := range lines {
			_, _ = fmt.Fprintf(&t.buf, "|%s|\n", Printable(l, cols))
		}
		t.buf.WriteString(edge)
	}
	_, err := t.buf.WriteTo(t.w)
	return err
}

// Printable maps DDRAM character codes to something a terminal can show, padded
// to cols. Codes outside printable ASCII become '?', except the degree sign
// of the A00 character ROM.
func Printable(s string, cols int) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteRune(glyph(s[i]))
	}
	for i := len(s); i < cols; i++ {
		b.WriteByte(' ')
	}
	return b.String()
}

func glyph(c byte) rune {
	switch {
	case c >= 0x20 && c < 0x7f:
		return rune(c)
	case c == 0xdf:
		return '°'
	}
	return '?'
}
