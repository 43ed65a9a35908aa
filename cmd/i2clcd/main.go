// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// i2clcd shows fixed text on a 20x4 HD44780 display behind a PCF8574 I²C
// backpack, then idles until interrupted.
//
// With -sim the display and the two-wire controller are simulated and the
// result is drawn on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/i2clcd/hd44780"
	"github.com/GermanBionicSystems/i2clcd/hd44780/hd44780test"
	"github.com/GermanBionicSystems/i2clcd/lcdscreen"
	"github.com/GermanBionicSystems/i2clcd/twi"
	"github.com/GermanBionicSystems/i2clcd/twi/twitest"
	"github.com/fxamacker/cbor/v2"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

var errUsage = errors.New("usage")

type simOpts struct {
	png      string
	trace    string
	maxPolls int
	tinygo   bool
}

// show places every text of l. WriteString writes at the current cursor, so
// the cursor is set before each one.
func show(dev *hd44780.Dev, l Layout) error {
	for _, t := range l.Texts {
		if err := dev.SetCursor(t.Line, t.Column); err != nil {
			return err
		}
		if _, err := dev.WriteString(t.Text); err != nil {
			return err
		}
	}
	return nil
}

// showTinyGo places every text of l using the TinyGo HD44780 driver. That
// driver sends each port value in its own transaction and ignores bus errors.
func showTinyGo(bus drivers.I2C, l Layout) *hd44780i2c.Device {
	dev := hd44780i2c.New(bus, uint8(l.Address))
	// Only fails on a zero size.
	_ = dev.Configure(hd44780i2c.Config{Width: 20, Height: 4})
	for _, t := range l.Texts {
		dev.SetCursor(uint8(t.Column), uint8(t.Line))
		dev.Print([]byte(t.Text))
	}
	return &dev
}

func runHostTinyGo(bus drivers.I2C, l Layout) {
	dev := showTinyGo(bus, l)
	log.Printf("tinygo hd44780i2c@%02x: showing %d texts, interrupt to stop", l.Address, len(l.Texts))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	dev.ClearDisplay()
	dev.BacklightOn(false)
	dev.DisplayOn(false)
}

func runHost(busName string, l Layout, tinygo bool) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if tinygo {
		runHostTinyGo(bus, l)
		return nil
	}
	dev, err := hd44780.NewPCF857xBackpack(bus, l.Address, 4, 20)
	if err != nil {
		return err
	}
	if err = show(dev, l); err != nil {
		return err
	}
	log.Printf("%s: showing %d texts, interrupt to stop", dev, len(l.Texts))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return dev.Halt()
}

func runSim(l Layout, o simOpts) (*hd44780test.LCD, error) {
	lcd := hd44780test.New(l.Address)
	ctrl := &twitest.Controller{Targets: map[uint16]twitest.Target{l.Address: lcd}}
	bus, err := twi.New(ctrl, &twi.Opts{MaxPolls: o.maxPolls})
	if err != nil {
		return nil, err
	}
	if o.tinygo {
		showTinyGo(bus, l)
	} else {
		opts := hd44780.DefaultOpts
		opts.Sleep = func(time.Duration) {}
		dev, err := hd44780.New(bus, l.Address, &opts)
		if err != nil {
			return nil, err
		}
		if err = dev.InitializeDisplay(); err != nil {
			return nil, err
		}
		if err = show(dev, l); err != nil {
			return nil, err
		}
	}

	term := lcdscreen.New(nil)
	defer term.Halt()
	if err = term.Refresh(lcd); err != nil {
		return nil, err
	}
	if o.png != "" {
		if err = lcdscreen.SavePNG(o.png, lcd); err != nil {
			return nil, err
		}
	}
	events := ctrl.Events()
	if o.trace != "" {
		if err = writeTrace(o.trace, events); err != nil {
			return nil, err
		}
	}
	log.Printf("%d bus events, %d enable strobes", len(events), lcd.Pulses())
	return lcd, nil
}

func writeTrace(path string, events []twitest.Event) error {
	b, err := cbor.Marshal(events)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use")
	addr := flag.Int("addr", -1, "backpack address, overrides the layout; usually 0x27 or 0x3f")
	layoutPath := flag.String("layout", "", "YAML file with the texts to show")
	sim := flag.Bool("sim", false, "drive a simulated display and draw it on the terminal")
	png := flag.String("png", "", "with -sim, write a picture of the display to this file")
	trace := flag.String("trace", "", "with -sim, write the bus events to this file as CBOR")
	maxPolls := flag.Int("max-polls", 0, "with -sim, bound the controller busy-waits; 0 waits forever")
	tinygo := flag.Bool("tinygo", false, "use the TinyGo hd44780i2c driver instead of this module's; bus errors are not reported")
	flag.Parse()
	if flag.NArg() != 0 || *maxPolls < 0 {
		return errUsage
	}

	l := defaultLayout
	if *layoutPath != "" {
		var err error
		if l, err = loadLayout(*layoutPath); err != nil {
			return err
		}
	}
	if *addr >= 0 {
		if *addr > 0x7f {
			return errUsage
		}
		l.Address = uint16(*addr)
	}
	if *sim {
		_, err := runSim(l, simOpts{png: *png, trace: *trace, maxPolls: *maxPolls, tinygo: *tinygo})
		return err
	}
	return runHost(*busName, l, *tinygo)
}

func main() {
	log.SetFlags(0)
	if err := mainImpl(); err != nil {
		if err == errUsage {
			flag.Usage()
			os.Exit(2)
		}
		log.Fatalf("i2clcd: %s.", err)
	}
}
