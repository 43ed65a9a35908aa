// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780test

import (
	"reflect"
	"strings"
	"testing"
)

// strobe presents the high nibble of v with E high then low.
func strobe(t *testing.T, l *LCD, rs bool, nibble byte) {
	t.Helper()
	c := nibble<<4 | pinBacklight
	if rs {
		c |= pinRS
	}
	if err := l.WriteByte(c | pinE); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteByte(c); err != nil {
		t.Fatal(err)
	}
}

func send(t *testing.T, l *LCD, rs bool, v byte) {
	t.Helper()
	strobe(t, l, rs, v>>4)
	strobe(t, l, rs, v&0x0f)
}

// powerOn brings the panel to 4 bit, two line mode.
func powerOn(t *testing.T) *LCD {
	l := New(0x27)
	for range 3 {
		strobe(t, l, false, 0x3)
	}
	strobe(t, l, false, 0x2)
	send(t, l, false, 0x28)
	send(t, l, false, 0x0c)
	send(t, l, false, 0x06)
	send(t, l, false, 0x01)
	return l
}

func TestPowerOnIs8Bit(t *testing.T) {
	l := New(0x27)
	if l.FourBit() {
		t.Fatal("expected 8 bit mode at power on")
	}
	strobe(t, l, false, 0x2)
	if !l.FourBit() {
		t.Fatal("function set did not switch to 4 bit mode")
	}
	if ops := l.Ops(); !reflect.DeepEqual(ops, []Op{{Value: 0x20}}) {
		t.Errorf("ops %v", ops)
	}
}

func TestDDRAM(t *testing.T) {
	l := powerOn(t)
	send(t, l, false, 0x80+18)
	for _, c := range []byte("ABCD") {
		send(t, l, true, c)
	}
	// Row 0 continues into row 2 in DDRAM.
	if got := l.Line(0)[18:]; got != "AB" {
		t.Errorf("line 0 ends with %q", got)
	}
	if got := strings.TrimRight(l.Line(2), " "); got != "CD" {
		t.Errorf("line 2 = %q", got)
	}
	if a := l.Address(); a != 0x16 {
		t.Errorf("address counter 0x%02x", a)
	}

	send(t, l, false, 0x80+0x27)
	send(t, l, true, 'x')
	if a := l.Address(); a != 0x40 {
		t.Errorf("address counter after 0x27 is 0x%02x, expected 0x40", a)
	}

	send(t, l, false, 0x01)
	if txt := l.Text(); strings.TrimSpace(txt) != "" {
		t.Errorf("clear left %q", txt)
	}
	if a := l.Address(); a != 0 {
		t.Errorf("clear left address 0x%02x", a)
	}
}

func TestCursorShift(t *testing.T) {
	l := powerOn(t)
	send(t, l, false, 0xc0+3)
	send(t, l, false, 0x10)
	send(t, l, true, '<')
	send(t, l, false, 0x14)
	send(t, l, true, '>')
	if got := strings.TrimRight(l.Line(1), " "); got != "  < >" {
		t.Errorf("line 1 = %q", got)
	}
}

func TestDisplayFlags(t *testing.T) {
	l := powerOn(t)
	send(t, l, false, 0x0f)
	if on, cursor, blink := l.DisplayOn(); !on || !cursor || !blink {
		t.Errorf("flags %t %t %t", on, cursor, blink)
	}
	if !l.Backlight() {
		t.Error("backlight off")
	}
	if err := l.WriteByte(0x00); err != nil {
		t.Fatal(err)
	}
	if l.Backlight() {
		t.Error("backlight on")
	}
}

func TestTx(t *testing.T) {
	l := New(0x27)
	if err := l.Tx(0x3f, []byte{0x00}, nil); err == nil {
		t.Error("expected error for wrong address")
	}
	r := make([]byte, 1)
	if err := l.Tx(0x27, []byte{0x38 | pinE, 0x38}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x38 {
		t.Errorf("read 0x%02x", r[0])
	}
	if p := l.Pulses(); p != 1 {
		t.Errorf("pulses %d", p)
	}
	if w := l.Writes(); len(w) != 2 {
		t.Errorf("writes %#v", w)
	}
	if l.String() != "hd44780test@27" {
		t.Errorf("String() = %q", l.String())
	}
}
