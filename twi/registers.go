// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

// Reg identifies one of the two-wire controller registers.
type Reg uint8

const (
	// TWBR is the bit rate register.
	TWBR Reg = iota
	// TWSR holds the status code in bits 7..3 and the prescaler select in bits
	// 1..0.
	TWSR
	// TWDR is the data register.
	TWDR
	// TWCR is the control register.
	TWCR
)

func (r Reg) String() string {
	switch r {
	case TWBR:
		return "TWBR"
	case TWSR:
		return "TWSR"
	case TWDR:
		return "TWDR"
	case TWCR:
		return "TWCR"
	}
	return "Reg(?)"
}

// Registers is the register file of a two-wire controller peripheral. It is the
// only handle a Bus has on the hardware.
//
// On a microcontroller this maps to the memory mapped peripheral. In tests it is
// provided by twitest.Controller.
type Registers interface {
	Read(r Reg) byte
	Write(r Reg, v byte)
}

// TWCR bits.
const (
	TWINT byte = 1 << 7 // Interrupt flag, set by hardware when an action completes.
	TWEA  byte = 1 << 6 // Enable acknowledge.
	TWSTA byte = 1 << 5 // Start condition.
	TWSTO byte = 1 << 4 // Stop condition.
	TWWC  byte = 1 << 3 // Write collision.
	TWEN  byte = 1 << 2 // Enable.
	TWIE  byte = 1 << 0 // Interrupt enable.
)

// Master mode status codes, as found in TWSR & StatusMask.
const (
	StatusStart     byte = 0x08
	StatusRepStart  byte = 0x10
	StatusAddrWACK  byte = 0x18
	StatusAddrWNACK byte = 0x20
	StatusDataWACK  byte = 0x28
	StatusDataWNACK byte = 0x30
	StatusArbLost   byte = 0x38
	StatusAddrRACK  byte = 0x40
	StatusAddrRNACK byte = 0x48
	StatusDataRACK  byte = 0x50
	StatusDataRNACK byte = 0x58
	StatusNoInfo    byte = 0xf8

	StatusMask    byte = 0xf8
	PrescalerMask byte = 0x03
)

// prescaler select values for TWSR bits 1..0, in increasing order.
var prescalers = []struct {
	div  int64
	bits byte
}{
	{1, 0},
	{4, 1},
	{16, 2},
	{64, 3},
}
