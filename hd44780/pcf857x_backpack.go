// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
)

// Bits of the PCF8574 port as wired on LCD2004/LCD1602 backpacks. D4..D7 are
// on P4..P7.
const (
	RSBit        byte = 0x01
	RWBit        byte = 0x02
	EnableBit    byte = 0x04
	BacklightBit byte = 0x08
)

const (
	// DefaultAddress is the usual address of PCF8574 backpacks.
	DefaultAddress uint16 = 0x27
	// AlternateAddress is used by backpacks built on the PCF8574A.
	AlternateAddress uint16 = 0x3f
)

// Transport is the set of two-wire bus primitives the display needs. The
// first byte written after Start is the address byte.
//
// *twi.Bus implements it.
type Transport interface {
	Start() error
	WriteByte(c byte) error
	Stop() error
}

// i2cTransport runs the primitives over a periph.io i2c.Bus. The bytes of a
// session are buffered and sent as one Tx on Stop, which puts the same frame
// on the wire.
type i2cTransport struct {
	bus  i2c.Bus
	buf  []byte
	open bool
}

var errNoSession = errors.New("write outside of a bus session")

func (t *i2cTransport) Start() error {
	t.buf = make([]byte, 0, 3)
	t.open = true
	return nil
}

func (t *i2cTransport) WriteByte(c byte) error {
	if !t.open {
		return errNoSession
	}
	t.buf = append(t.buf, c)
	return nil
}

func (t *i2cTransport) Stop() error {
	if !t.open {
		return nil
	}
	t.open = false
	if len(t.buf) == 0 {
		return nil
	}
	return t.bus.Tx(uint16(t.buf[0]>>1), t.buf[1:], nil)
}

// NewI2C returns a display reached through a periph.io I²C bus. The display is
// not initialized.
func NewI2C(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	return New(&i2cTransport{bus: bus}, address, opts)
}

// This function returns a display configured to use the pcf8574 i2c backpacks.
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// To use this, get an I2C bus, and call this function with the bus, i2c
// address, number of rows, and columns. The returned display is initialized
// with the backlight on.
func NewPCF857xBackpack(bus i2c.Bus, address uint16, rows, cols int) (*Dev, error) {
	dev, err := NewI2C(bus, address, &Opts{Rows: rows, Cols: cols, Backlight: true})
	if err != nil {
		return nil, err
	}
	if err = dev.InitializeDisplay(); err != nil {
		return nil, err
	}
	return dev, nil
}
