// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/display"
)

// Turn the display's backlight on or off. The backpack has a single transistor
// on P3 so any non zero intensity is on.
//
// The new state is written to the port at once, without an enable strobe, and
// is then carried by every following write.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.ready(); err != nil {
		return err
	}
	if intensity == 0 {
		dev.backlight = 0
	} else {
		dev.backlight = BacklightBit
	}
	return wrap(dev.latch(dev.backlight))
}

// latch writes v to the expander port in its own bus session.
func (dev *Dev) latch(v byte) error {
	if err := dev.t.Start(); err != nil {
		return err
	}
	err := dev.t.WriteByte(byte(dev.addr << 1))
	if err == nil {
		err = dev.t.WriteByte(v)
	}
	if serr := dev.t.Stop(); err == nil {
		err = serr
	}
	return err
}
