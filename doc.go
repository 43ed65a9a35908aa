// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2clcd drives a character LCD through a PCF8574 I²C backpack.
//
// The module is split in layers:
//
//   - twi is a register level two-wire interface master, as found on AVR
//     microcontrollers. twi/twitest simulates the registers and the devices
//     on the bus.
//   - hd44780 is the display driver. It runs on top of twi or any
//     periph.io/x/conn/v3/i2c.Bus. hd44780/hd44780test simulates the backpack
//     and the controller's display memory.
//   - lcdscreen renders a simulated display to the terminal or to a PNG.
//   - cmd/i2clcd shows a layout of fixed texts, on hardware or simulated.
package i2clcd
