// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 through a
// PCF8574 I²C backpack, as found on the common LCD2004 modules.
//
// Every byte is sent as two nibbles, high nibble first. Each nibble is one bus
// session: start, the backpack address, the nibble with E set, the nibble with
// E cleared, stop. The backlight bit is carried on every write.
//
// Line addressing is fixed for 20x4 panels. The rows start at 0x80, 0xC0,
// 0x94 and 0xD4.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const packageName = "hd44780"

// Mode selects the controller register a byte is written to.
type Mode byte

const (
	// ModeCommand writes to the instruction register (RS low).
	ModeCommand Mode = 0
	// ModeData writes to the data register (RS high).
	ModeData Mode = Mode(RSBit)
)

type devState uint8

const (
	// Straight out of power on, the interface width is unknown.
	stateUnknown devState = iota
	stateReady
)

// Instructions.
const (
	cmdClear       byte = 0x01
	cmdHome        byte = 0x02
	cmdReset       byte = 0x03
	cmdFourBit     byte = 0x02
	cmdEntryMode   byte = 0x04
	cmdDisplay     byte = 0x08
	cmdShift       byte = 0x10
	cmdFunctionSet byte = 0x20
	cmdSetDDRAM    byte = 0x80

	entryIncrement byte = 0x02
	entryShift     byte = 0x01
	displayOn      byte = 0x04
	displayCursor  byte = 0x02
	displayBlink   byte = 0x01
	shiftRight     byte = 0x04
	functionTwoRow byte = 0x08
)

const (
	delayPowerOn     = 50 * time.Millisecond
	delayReset       = 5 * time.Millisecond
	delayClear       = 5 * time.Millisecond
	delayCommand     = 2 * time.Millisecond
	delayEnableWidth = time.Microsecond
	delayLatch       = 50 * time.Microsecond
)

// lineAddresses are the set DDRAM commands for column 0 of each row.
var lineAddresses = [...]byte{0x80, 0xc0, 0x94, 0xd4}

var (
	// ErrNotInitialized is returned by display operations issued before
	// InitializeDisplay.
	ErrNotInitialized = errors.New("hd44780: display not initialized")
	// ErrNotImplemented is returned for operations the controller can't do.
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
)

// Opts holds the display configuration.
type Opts struct {
	Rows int
	Cols int
	// Backlight is the initial backlight state.
	Backlight bool
	// Sleep is used for every controller delay. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOpts is a 20x4 panel with the backlight on.
var DefaultOpts = Opts{Rows: 4, Cols: 20, Backlight: true}

// Dev is an HD44780 display behind a PCF8574 backpack.
//
// Implements periph.io/conn/x/display/TextDisplay and display.DisplayBacklight
type Dev struct {
	mu        sync.Mutex
	t         Transport
	addr      uint16
	rows      int
	cols      int
	sleep     func(time.Duration)
	backlight byte
	state     devState
	on        bool
	cursor    bool
	blink     bool
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New returns a display using t to reach the backpack at addr. If opts is nil,
// DefaultOpts is used.
//
// Up to 4 rows of up to 20 columns are accepted. Lines are always addressed
// at the 20x4 DDRAM offsets 0x00, 0x40, 0x14 and 0x54, which also suit any
// one or two line panel. 16x4 panels, whose lower lines start at 0x10 and
// 0x50, are not laid out correctly.
//
// The display is not touched. InitializeDisplay must be called before any
// other display operation.
func New(t Transport, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Rows > len(lineAddresses) || opts.Cols < 1 || opts.Cols > 20 {
		return nil, fmt.Errorf("%s: unsupported geometry %dx%d", packageName, opts.Cols, opts.Rows)
	}
	if addr > 0x7f {
		return nil, fmt.Errorf("%s: invalid address 0x%x", packageName, addr)
	}
	dev := &Dev{
		t:     t,
		addr:  addr,
		rows:  opts.Rows,
		cols:  opts.Cols,
		sleep: opts.Sleep,
	}
	if dev.sleep == nil {
		dev.sleep = time.Sleep
	}
	if opts.Backlight {
		dev.backlight = BacklightBit
	}
	return dev, nil
}

// InitializeDisplay runs the power on handshake: three reset instructions to
// bring the controller to a known 8 bit state, a switch to 4 bit mode, then
// function set, display on with the cursor off, left to right entry and
// clear.
//
// It must complete before any other display operation. Calling it again once
// it succeeded does nothing.
func (dev *Dev) InitializeDisplay() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.state == stateReady {
		return nil
	}
	dev.sleep(delayPowerOn)
	for range 3 {
		if err := dev.send(cmdReset, ModeCommand); err != nil {
			return wrap(err)
		}
		dev.sleep(delayReset)
	}
	functionSet := cmdFunctionSet
	if dev.rows > 1 {
		functionSet |= functionTwoRow
	}
	for _, cmd := range []byte{
		cmdFourBit,
		functionSet,
		cmdDisplay | displayOn,
		cmdEntryMode | entryIncrement,
		cmdClear,
	} {
		if err := dev.send(cmd, ModeCommand); err != nil {
			return wrap(err)
		}
	}
	dev.sleep(delayClear)
	dev.state = stateReady
	dev.on = true
	dev.cursor = false
	dev.blink = false
	return nil
}

// SendCommand writes cmd to the instruction register.
func (dev *Dev) SendCommand(cmd byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	return wrap(dev.send(cmd, ModeCommand))
}

// SendCharacter writes c to the data register. The controller stores it at
// the cursor and advances the cursor.
func (dev *Dev) SendCharacter(c byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	return wrap(dev.send(c, ModeData))
}

// TransmitByte sends value as two nibbles, high nibble first, each combined
// with mode and the backlight bit. mode must be ModeCommand or ModeData.
func (dev *Dev) TransmitByte(value byte, mode Mode) error {
	if mode != ModeCommand && mode != ModeData {
		return fmt.Errorf("%s: invalid mode 0x%02x", packageName, byte(mode))
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.send(value, mode))
}

// EnablePulse performs one bus session presenting data to the controller with
// an enable strobe. data holds the nibble in bits 7..4 and the control bits
// in 3..0; the E bit is managed here.
func (dev *Dev) EnablePulse(data byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return wrap(dev.pulse(data))
}

// SetCursor moves the cursor to column col of line, both 0 based. A line
// outside 0..3 is ignored. col is not range checked.
func (dev *Dev) SetCursor(line, col int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	return wrap(dev.setCursor(line, col))
}

// WriteString writes text at the current cursor position, stopping at the
// first NUL byte. It returns the number of characters sent.
//
// It does not position the cursor; call SetCursor first, or use PrintAt.
func (dev *Dev) WriteString(text string) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return 0, err
	}
	n, err := dev.writeString(text)
	return n, wrap(err)
}

// PrintAt positions the cursor at line, col and writes text.
func (dev *Dev) PrintAt(line, col int, text string) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return 0, err
	}
	if err := dev.setCursor(line, col); err != nil {
		return 0, wrap(err)
	}
	n, err := dev.writeString(text)
	return n, wrap(err)
}

// Write a set of bytes to the display as characters. Unlike WriteString, NUL
// is written as character 0.
func (dev *Dev) Write(p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err = dev.ready(); err != nil {
		return
	}
	for _, c := range p {
		if err = dev.send(c, ModeData); err != nil {
			return n, wrap(err)
		}
		n++
	}
	return
}

// AutoScroll selects whether the display shifts instead of the cursor as
// characters are written.
func (dev *Dev) AutoScroll(enabled bool) error {
	val := cmdEntryMode | entryIncrement
	if enabled {
		val |= entryShift
	}
	return dev.SendCommand(val)
}

// Clears the screen and moves the cursor to the first position.
func (dev *Dev) Clear() error {
	return dev.slowCommand(cmdClear)
}

// Move the cursor home (MinRow(),MinCol())
func (dev *Dev) Home() error {
	return dev.slowCommand(cmdHome)
}

func (dev *Dev) slowCommand(cmd byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	if err := dev.send(cmd, ModeCommand); err != nil {
		return wrap(err)
	}
	dev.sleep(delayCommand)
	return nil
}

// Return the number of columns the display supports
func (dev *Dev) Cols() int {
	return dev.cols
}

// Return the number of rows the display supports.
func (dev *Dev) Rows() int {
	return dev.rows
}

// Return the min column position.
func (dev *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (dev *Dev) MinRow() int {
	return 1
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			dev.cursor = false
			dev.blink = false
		case display.CursorBlink, display.CursorBlock:
			dev.blink = true
		case display.CursorUnderline:
			dev.cursor = true
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	return wrap(dev.displayControl())
}

// Turn the display on / off
func (dev *Dev) Display(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	dev.on = on
	return wrap(dev.displayControl())
}

func (dev *Dev) displayControl() error {
	val := cmdDisplay
	if dev.on {
		val |= displayOn
	}
	if dev.cursor {
		val |= displayCursor
	}
	if dev.blink {
		val |= displayBlink
	}
	return dev.send(val, ModeCommand)
}

// Move the cursor forward or backward.
func (dev *Dev) Move(dir display.CursorDirection) error {
	val := cmdShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return ErrNotImplemented
	}
	return dev.SendCommand(val)
}

// Move the cursor to arbitrary position, 1 based.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.rows || col < dev.MinCol() || col > dev.cols {
		return fmt.Errorf("%s: MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	return dev.SetCursor(row-1, col-1)
}

// Return info about the display.
func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780::PCF8574_%x - Rows: %d, Cols: %d", dev.addr, dev.rows, dev.cols)
}

// Halt clears the display, turns the backlight off, and turns the display off.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	ready := dev.state == stateReady
	dev.mu.Unlock()
	if !ready {
		return nil
	}
	_ = dev.Clear()
	_ = dev.Backlight(0)
	return dev.Display(false)
}

func (dev *Dev) ready() error {
	if dev.state != stateReady {
		return ErrNotInitialized
	}
	return nil
}

func (dev *Dev) setCursor(line, col int) error {
	if line < 0 || line >= len(lineAddresses) {
		return nil
	}
	return dev.send(lineAddresses[line]+byte(col), ModeCommand)
}

func (dev *Dev) writeString(text string) (int, error) {
	n := 0
	for i := 0; i < len(text) && text[i] != 0; i++ {
		if err := dev.send(text[i], ModeData); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (dev *Dev) send(value byte, mode Mode) error {
	ctl := byte(mode)&RSBit | dev.backlight
	if err := dev.pulse(value&0xf0 | ctl); err != nil {
		return err
	}
	return dev.pulse(value<<4 | ctl)
}

func (dev *Dev) pulse(data byte) error {
	if err := dev.t.Start(); err != nil {
		return err
	}
	err := dev.t.WriteByte(byte(dev.addr << 1))
	if err == nil {
		err = dev.t.WriteByte(data | EnableBit)
	}
	if err == nil {
		dev.sleep(delayEnableWidth)
		err = dev.t.WriteByte(data &^ EnableBit)
	}
	if err == nil {
		dev.sleep(delayLatch)
	}
	if serr := dev.t.Stop(); err == nil {
		err = serr
	}
	return err
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
