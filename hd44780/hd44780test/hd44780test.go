// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780test simulates an HD44780 character LCD wired behind a
// PCF8574 I²C backpack.
//
// The simulated expander port follows the common LCD2004 backpack wiring: P0
// RS, P1 RW, P2 E, P3 backlight and P4..P7 D4..D7. The controller latches on
// the falling edge of E. After power on it is in 8 bit mode, where D0..D3 are
// not connected and read as 0. A function set with DL=0 switches it to 4 bit
// mode, where two strobes form one byte, high nibble first.
package hd44780test

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	pinRS        byte = 0x01
	pinRW        byte = 0x02
	pinE         byte = 0x04
	pinBacklight byte = 0x08

	ddramSize = 0x80
)

// Op is one instruction or data byte executed by the simulated controller.
type Op struct {
	// Data is true for a data register write, false for an instruction.
	Data  bool
	Value byte
}

func (o Op) String() string {
	if o.Data {
		return fmt.Sprintf("D 0x%02x", o.Value)
	}
	return fmt.Sprintf("C 0x%02x", o.Value)
}

// LCD is a simulated 20x4 panel.
type LCD struct {
	// Addr is the 7 bit address the backpack answers to when used as an
	// i2c.Bus.
	Addr uint16

	mu       sync.Mutex
	port     byte
	writes   []byte
	pulses   int
	fourBit  bool
	half     bool
	high     byte
	ops      []Op
	ddram    [ddramSize]byte
	ac       byte
	inc      bool
	shift    bool
	twoLines bool
	on       bool
	cursor   bool
	blink    bool
}

// New returns a powered on panel answering at addr. The port latch starts
// high, as the PCF8574 does.
func New(addr uint16) *LCD {
	l := &LCD{Addr: addr, port: 0xff, inc: true}
	for i := range l.ddram {
		l.ddram[i] = ' '
	}
	return l
}

// WriteByte receives one byte written to the expander port.
func (l *LCD) WriteByte(c byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.port
	l.port = c
	l.writes = append(l.writes, c)
	if prev&pinE != 0 && c&pinE == 0 {
		l.strobe(c)
	}
	return nil
}

// ReadByte returns the port latch, as reading the PCF8574 does.
func (l *LCD) ReadByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port, nil
}

// Tx implements i2c.Bus, so the panel can be driven directly by code using
// periph.io drivers.
func (l *LCD) Tx(addr uint16, w, r []byte) error {
	if addr != l.Addr {
		return fmt.Errorf("hd44780test: no device at 0x%02x", addr)
	}
	for _, c := range w {
		if err := l.WriteByte(c); err != nil {
			return err
		}
	}
	for i := range r {
		r[i], _ = l.ReadByte()
	}
	return nil
}

// SetSpeed implements i2c.Bus.
func (l *LCD) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.New("hd44780test: invalid speed")
	}
	return nil
}

func (l *LCD) String() string {
	return fmt.Sprintf("hd44780test@%02x", l.Addr)
}

func (l *LCD) strobe(c byte) {
	l.pulses++
	if c&pinRW != 0 {
		// Reads are not modeled.
		return
	}
	nibble := c >> 4
	rs := c&pinRS != 0
	if !l.fourBit {
		l.execute(rs, nibble<<4)
		return
	}
	if !l.half {
		l.high = nibble
		l.half = true
		return
	}
	l.half = false
	l.execute(rs, l.high<<4|nibble)
}

func (l *LCD) execute(data bool, v byte) {
	l.ops = append(l.ops, Op{Data: data, Value: v})
	if data {
		l.ddram[l.ac] = v
		l.advance(l.inc)
		return
	}
	switch {
	case v&0x80 != 0:
		l.ac = v & 0x7f
	case v&0x40 != 0:
		// CGRAM address, custom glyphs are not modeled.
	case v&0x20 != 0:
		l.fourBit = v&0x10 == 0
		l.twoLines = v&0x08 != 0
		l.half = false
	case v&0x10 != 0:
		if v&0x08 == 0 {
			l.advance(v&0x04 != 0)
		}
	case v&0x08 != 0:
		l.on = v&0x04 != 0
		l.cursor = v&0x02 != 0
		l.blink = v&0x01 != 0
	case v&0x04 != 0:
		l.inc = v&0x02 != 0
		l.shift = v&0x01 != 0
	case v&0x02 != 0:
		l.ac = 0
	case v&0x01 != 0:
		for i := range l.ddram {
			l.ddram[i] = ' '
		}
		l.ac = 0
		l.inc = true
	}
}

// advance moves the address counter one position, wrapping the way the
// controller does in two line mode (0x00-0x27, 0x40-0x67).
func (l *LCD) advance(forward bool) {
	if !l.twoLines {
		if forward {
			l.ac = (l.ac + 1) % 0x50
		} else {
			l.ac = (l.ac + 0x50 - 1) % 0x50
		}
		return
	}
	switch {
	case forward && l.ac == 0x27:
		l.ac = 0x40
	case forward && l.ac >= 0x67:
		l.ac = 0
	case forward:
		l.ac++
	case l.ac == 0x40:
		l.ac = 0x27
	case l.ac == 0:
		l.ac = 0x67
	default:
		l.ac--
	}
}

// lineStart is the DDRAM address of the first column of each visible row of
// a 20x4 panel.
var lineStart = [...]byte{0x00, 0x40, 0x14, 0x54}

// Cols is the number of visible columns.
const Cols = 20

// Rows is the number of visible rows.
const Rows = len(lineStart)

// Line returns the visible text of row n, 0 based.
func (l *LCD) Line(n int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 || n >= Rows {
		return ""
	}
	s := lineStart[n]
	return string(l.ddram[s : s+Cols])
}

// Lines returns all visible rows.
func (l *LCD) Lines() []string {
	out := make([]string, Rows)
	for i := range out {
		out[i] = l.Line(i)
	}
	return out
}

// Text returns the visible rows joined by newlines.
func (l *LCD) Text() string {
	return strings.Join(l.Lines(), "\n")
}

// Ops returns the instructions and data executed so far.
func (l *LCD) Ops() []Op {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Op(nil), l.ops...)
}

// Writes returns every byte written to the expander port.
func (l *LCD) Writes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.writes...)
}

// Pulses returns the number of enable strobes seen.
func (l *LCD) Pulses() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pulses
}

// Address returns the DDRAM address counter.
func (l *LCD) Address() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ac
}

// FourBit reports whether the controller is in 4 bit interface mode.
func (l *LCD) FourBit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fourBit
}

// Backlight reports whether the backlight pin is high.
func (l *LCD) Backlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port&pinBacklight != 0
}

// DisplayOn reports the display, cursor and blink flags.
func (l *LCD) DisplayOn() (on, cursor, blink bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on, l.cursor, l.blink
}

var _ i2c.Bus = &LCD{}
