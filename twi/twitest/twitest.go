// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twitest simulates a two-wire controller peripheral for testing code
// written against twi.Registers.
package twitest

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GermanBionicSystems/i2clcd/twi"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// Kind is the type of a bus event.
type Kind uint8

const (
	Start Kind = iota + 1
	Write
	Read
	Stop
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "S"
	case Write:
		return "W"
	case Read:
		return "R"
	case Stop:
		return "P"
	}
	return "?"
}

// Event is one action observed on the simulated bus.
type Event struct {
	Kind Kind `cbor:"1,keyasint"`
	Data byte `cbor:"2,keyasint,omitempty"`
	ACK  bool `cbor:"3,keyasint,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case Write, Read:
		a := "N"
		if e.ACK {
			a = "A"
		}
		return fmt.Sprintf("%s 0x%02x %s", e.Kind, e.Data, a)
	}
	return e.Kind.String()
}

// Target is a simulated device on the bus. Each data byte addressed to it is
// passed to WriteByte; a returned error NACKs the byte. Targets that also
// implement io.ByteReader can be read from.
type Target interface {
	io.ByteWriter
}

// Controller implements twi.Registers.
//
// Writing TWCR with TWINT set performs the requested action at once and sets
// TWINT in the read back value, unless a stall is armed.
type Controller struct {
	// Targets maps 7 bit addresses to devices.
	Targets map[uint16]Target
	// StallAfter makes every action after the first StallAfter ones never
	// complete. 0 disables stalls.
	StallAfter int

	mu        sync.Mutex
	powered   bool
	regs      [4]byte
	events    []Event
	actions   int
	inSession bool
	addressed bool
	reading   bool
	target    Target
}

// Read implements twi.Registers.
func (c *Controller) Read(r twi.Reg) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initLocked()
	return c.regs[r]
}

// Write implements twi.Registers.
func (c *Controller) Write(r twi.Reg, v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initLocked()
	switch r {
	case twi.TWSR:
		c.regs[twi.TWSR] = c.regs[twi.TWSR]&twi.StatusMask | v&twi.PrescalerMask
	case twi.TWCR:
		c.control(v)
	default:
		c.regs[r] = v
	}
}

// Events returns a copy of the events seen so far.
func (c *Controller) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Reset forgets the recorded events and the action count.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.actions = 0
}

// Transactions groups the recorded events into i2ctest.IO records, one per
// start..stop session. A read phase after a repeated start is merged into the
// preceding write phase.
func (c *Controller) Transactions() []i2ctest.IO {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []i2ctest.IO
	var cur *i2ctest.IO
	wantAddr := false
	for _, e := range c.events {
		switch e.Kind {
		case Start:
			wantAddr = true
		case Write:
			if wantAddr {
				wantAddr = false
				addr := uint16(e.Data >> 1)
				if cur == nil || cur.Addr != addr || e.Data&1 == 0 {
					out = append(out, i2ctest.IO{Addr: addr})
					cur = &out[len(out)-1]
				}
				continue
			}
			if cur != nil {
				cur.W = append(cur.W, e.Data)
			}
		case Read:
			if cur != nil {
				cur.R = append(cur.R, e.Data)
			}
		case Stop:
			cur = nil
			wantAddr = false
		}
	}
	return out
}

func (c *Controller) initLocked() {
	if !c.powered {
		c.powered = true
		c.regs[twi.TWSR] = twi.StatusNoInfo
	}
}

func (c *Controller) setStatus(s byte) {
	c.regs[twi.TWSR] = s | c.regs[twi.TWSR]&twi.PrescalerMask
}

func (c *Controller) control(v byte) {
	if v&twi.TWEN == 0 || v&twi.TWINT == 0 {
		// Disabled, or no action requested.
		c.regs[twi.TWCR] = v &^ twi.TWINT
		if v&twi.TWEN == 0 {
			c.inSession = false
		}
		return
	}
	c.actions++
	if c.StallAfter > 0 && c.actions > c.StallAfter {
		c.regs[twi.TWCR] = v &^ twi.TWINT
		return
	}
	switch {
	case v&twi.TWSTA != 0:
		if c.inSession {
			c.setStatus(twi.StatusRepStart)
		} else {
			c.setStatus(twi.StatusStart)
		}
		c.inSession = true
		c.addressed = false
		c.target = nil
		c.events = append(c.events, Event{Kind: Start})
		c.regs[twi.TWCR] = v
	case v&twi.TWSTO != 0:
		c.inSession = false
		c.target = nil
		c.events = append(c.events, Event{Kind: Stop})
		c.setStatus(twi.StatusNoInfo)
		// The hardware clears TWSTO once the condition is on the wire and
		// does not raise TWINT.
		c.regs[twi.TWCR] = v &^ (twi.TWSTO | twi.TWINT)
	default:
		c.transfer(v)
		c.regs[twi.TWCR] = v
	}
}

func (c *Controller) transfer(v byte) {
	if !c.inSession {
		c.setStatus(twi.StatusNoInfo)
		return
	}
	if !c.addressed {
		sla := c.regs[twi.TWDR]
		c.addressed = true
		c.reading = sla&1 == 1
		c.target = c.Targets[uint16(sla>>1)]
		ack := c.target != nil
		c.events = append(c.events, Event{Kind: Write, Data: sla, ACK: ack})
		switch {
		case c.reading && ack:
			c.setStatus(twi.StatusAddrRACK)
		case c.reading:
			c.setStatus(twi.StatusAddrRNACK)
		case ack:
			c.setStatus(twi.StatusAddrWACK)
		default:
			c.setStatus(twi.StatusAddrWNACK)
		}
		return
	}
	if c.reading {
		d := byte(0xff)
		if br, ok := c.target.(io.ByteReader); ok {
			if b, err := br.ReadByte(); err == nil {
				d = b
			}
		}
		c.regs[twi.TWDR] = d
		ack := v&twi.TWEA != 0
		c.events = append(c.events, Event{Kind: Read, Data: d, ACK: ack})
		if ack {
			c.setStatus(twi.StatusDataRACK)
		} else {
			c.setStatus(twi.StatusDataRNACK)
		}
		return
	}
	d := c.regs[twi.TWDR]
	err := errNoTarget
	if c.target != nil {
		err = c.target.WriteByte(d)
	}
	c.events = append(c.events, Event{Kind: Write, Data: d, ACK: err == nil})
	if err == nil {
		c.setStatus(twi.StatusDataWACK)
	} else {
		c.setStatus(twi.StatusDataWNACK)
	}
}

var errNoTarget = errors.New("twitest: no target")

var _ twi.Registers = &Controller{}
