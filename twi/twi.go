// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twi drives a register level two-wire (I²C) bus controller of the
// kind found on AVR microcontrollers.
//
// The primitives Start, Stop and WriteByte map one to one onto the
// controller's register pokes. Start and WriteByte busy-wait on the TWINT
// flag. By default that wait is unbounded, the same as the bare metal loop
// `while (!(TWCR & (1<<TWINT)));`. Set Opts.MaxPolls to bound it, in which
// case a stalled bus returns an error wrapping ErrBusTimeout.
//
// Stop does not wait for the stop condition to complete unless Opts.WaitStop
// is set.
//
// Bus also implements i2c.BusCloser, so any periph.io device driver can be used
// on top of it. Tx checks the status codes and reports NACKs. The primitives
// do not.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/Atmel-7810-Automotive-Microcontrollers-ATmega328P_Datasheet.pdf
package twi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

const packageName = "twi"

var (
	// ErrBusTimeout is returned when the controller did not complete an
	// action within Opts.MaxPolls polls.
	ErrBusTimeout = errors.New("bus timeout")
	// ErrNACK is returned by Tx when the address or a data byte was not
	// acknowledged.
	ErrNACK = errors.New("not acknowledged")
	// ErrStatus is returned by Tx when the controller reports an unexpected
	// status, such as lost arbitration.
	ErrStatus = errors.New("unexpected status")
	// ErrSpeed is returned when the requested bus clock cannot be derived from
	// the CPU clock.
	ErrSpeed = errors.New("unsupported bus speed")
)

// Opts holds the bus configuration.
type Opts struct {
	// CPU is the system clock feeding the controller.
	CPU physic.Frequency
	// Speed is the requested SCL frequency.
	Speed physic.Frequency
	// MaxPolls bounds every busy-wait on the controller. 0 waits forever.
	MaxPolls int
	// WaitStop makes Stop wait until the controller has sent the stop
	// condition.
	WaitStop bool
}

// DefaultOpts is a 100kHz standard mode bus on a 16MHz part.
var DefaultOpts = Opts{
	CPU:   16 * physic.MegaHertz,
	Speed: 100 * physic.KiloHertz,
}

// Bus is a two-wire bus controller.
type Bus struct {
	mu    sync.Mutex
	regs  Registers
	opts  Opts
	speed physic.Frequency
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New returns an initialized Bus using regs. If opts is nil, DefaultOpts is
// used.
func New(regs Registers, opts *Opts) (*Bus, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.MaxPolls < 0 {
		return nil, fmt.Errorf("%s: invalid MaxPolls %d", packageName, opts.MaxPolls)
	}
	b := &Bus{regs: regs, opts: *opts}
	if b.opts.CPU == 0 {
		b.opts.CPU = DefaultOpts.CPU
	}
	if b.opts.Speed == 0 {
		b.opts.Speed = DefaultOpts.Speed
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// BitRate returns the TWBR value and prescaler select bits that produce speed
// from cpu, using f = cpu / (16 + 2·TWBR·prescaler). The smallest prescaler
// that fits is chosen.
func BitRate(cpu, speed physic.Frequency) (twbr, twps byte, err error) {
	if cpu <= 0 || speed <= 0 {
		return 0, 0, ErrSpeed
	}
	ratio := int64(cpu / speed)
	if ratio < 16 {
		return 0, 0, fmt.Errorf("%w: %s is above %s/16", ErrSpeed, speed, cpu)
	}
	for _, p := range prescalers {
		if br := (ratio - 16) / (2 * p.div); br <= 0xff {
			return byte(br), p.bits, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s is too slow for %s", ErrSpeed, speed, cpu)
}

// Init programs the prescaler and bit rate registers for Opts.Speed and
// enables the controller.
func (b *Bus) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return wrap(b.setSpeed(b.opts.Speed))
}

func (b *Bus) setSpeed(f physic.Frequency) error {
	br, ps, err := BitRate(b.opts.CPU, f)
	if err != nil {
		return err
	}
	b.regs.Write(TWSR, ps)
	b.regs.Write(TWBR, br)
	b.regs.Write(TWCR, TWEN)
	b.speed = b.opts.CPU / physic.Frequency(16+2*int64(br)*prescalers[ps].div)
	return nil
}

// Start sends a start condition and waits for the controller to report it.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return wrap(b.start())
}

// Stop sends a stop condition.
func (b *Bus) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return wrap(b.stop())
}

// WriteByte transmits c and waits for the controller to finish. The
// acknowledge bit is not checked; use Status for that.
func (b *Bus) WriteByte(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return wrap(b.writeByte(c))
}

// ReadByte receives one byte. ack selects whether the controller acknowledges
// it, which tells the target more bytes are wanted.
func (b *Bus) ReadByte(ack bool) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.readByte(ack)
	return v, wrap(err)
}

// Status returns the status code of the last action.
func (b *Bus) Status() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status()
}

func (b *Bus) status() byte {
	return b.regs.Read(TWSR) & StatusMask
}

func (b *Bus) start() error {
	b.regs.Write(TWCR, TWSTA|TWEN|TWINT)
	return b.wait("start", TWINT, TWINT)
}

func (b *Bus) stop() error {
	b.regs.Write(TWCR, TWSTO|TWEN|TWINT)
	if !b.opts.WaitStop {
		return nil
	}
	return b.wait("stop", TWSTO, 0)
}

func (b *Bus) writeByte(c byte) error {
	b.regs.Write(TWDR, c)
	b.regs.Write(TWCR, TWEN|TWINT)
	return b.wait("write", TWINT, TWINT)
}

func (b *Bus) readByte(ack bool) (byte, error) {
	cr := TWEN | TWINT
	if ack {
		cr |= TWEA
	}
	b.regs.Write(TWCR, cr)
	if err := b.wait("read", TWINT, TWINT); err != nil {
		return 0, err
	}
	return b.regs.Read(TWDR), nil
}

// wait polls TWCR until the bits in mask equal want.
func (b *Bus) wait(op string, mask, want byte) error {
	for n := 0; b.opts.MaxPolls == 0 || n < b.opts.MaxPolls; n++ {
		if b.regs.Read(TWCR)&mask == want {
			return nil
		}
	}
	return fmt.Errorf("%s: %w after %d polls", op, ErrBusTimeout, b.opts.MaxPolls)
}

// expect checks the status register against the accepted codes.
func (b *Bus) expect(ok ...byte) error {
	s := b.status()
	for _, v := range ok {
		if s == v {
			return nil
		}
	}
	switch s {
	case StatusAddrWNACK, StatusAddrRNACK:
		return fmt.Errorf("address: %w (status 0x%02x)", ErrNACK, s)
	case StatusDataWNACK:
		return fmt.Errorf("data: %w (status 0x%02x)", ErrNACK, s)
	}
	return fmt.Errorf("%w 0x%02x", ErrStatus, s)
}

// Tx implements i2c.Bus. It runs one whole session: start, the write phase,
// a repeated start and the read phase when r is not empty, then stop. Stop is
// sent even when an earlier step failed.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return wrap(fmt.Errorf("10 bit address 0x%x is not supported", addr))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.tx(byte(addr), w, r)
	if serr := b.stop(); err == nil {
		err = serr
	}
	return wrap(err)
}

func (b *Bus) tx(addr byte, w, r []byte) error {
	if len(w) != 0 || len(r) == 0 {
		if err := b.address(addr << 1); err != nil {
			return err
		}
		if err := b.expect(StatusAddrWACK); err != nil {
			return err
		}
		for _, c := range w {
			if err := b.writeByte(c); err != nil {
				return err
			}
			if err := b.expect(StatusDataWACK); err != nil {
				return err
			}
		}
	}
	if len(r) == 0 {
		return nil
	}
	if err := b.address(addr<<1 | 1); err != nil {
		return err
	}
	if err := b.expect(StatusAddrRACK); err != nil {
		return err
	}
	for i := range r {
		last := i == len(r)-1
		v, err := b.readByte(!last)
		if err != nil {
			return err
		}
		want := StatusDataRACK
		if last {
			want = StatusDataRNACK
		}
		if err := b.expect(want); err != nil {
			return err
		}
		r[i] = v
	}
	return nil
}

// address sends a (repeated) start followed by the address byte.
func (b *Bus) address(sla byte) error {
	if err := b.start(); err != nil {
		return err
	}
	if err := b.expect(StatusStart, StatusRepStart); err != nil {
		return err
	}
	return b.writeByte(sla)
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.setSpeed(f); err != nil {
		return wrap(err)
	}
	b.opts.Speed = f
	return nil
}

// Speed returns the SCL frequency actually produced by the bit rate
// registers.
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// ReadRegister reads len(buf) bytes starting at register reg of the device at
// addr, using the register pointer convention of most I²C peripherals.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg of the device at addr.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// Close disables the controller.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs.Write(TWCR, 0)
	return nil
}

func (b *Bus) String() string {
	return fmt.Sprintf("twi@%s", b.Speed())
}

var _ i2c.BusCloser = &Bus{}
var _ drivers.I2C = &Bus{}
