// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780_test

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/GermanBionicSystems/i2clcd/hd44780"
	"github.com/GermanBionicSystems/i2clcd/hd44780/hd44780test"
	"github.com/GermanBionicSystems/i2clcd/twi"
	"github.com/GermanBionicSystems/i2clcd/twi/twitest"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// This example drives a simulated panel through a simulated two-wire
// controller, the same way firmware drives the on-chip TWI peripheral.
func Example() {
	lcd := hd44780test.New(hd44780.DefaultAddress)
	ctrl := &twitest.Controller{Targets: map[uint16]twitest.Target{hd44780.DefaultAddress: lcd}}
	bus, err := twi.New(ctrl, nil)
	if err != nil {
		log.Fatal(err)
	}
	opts := hd44780.DefaultOpts
	opts.Sleep = func(time.Duration) {}
	dev, err := hd44780.New(bus, hd44780.DefaultAddress, &opts)
	if err != nil {
		log.Fatal(err)
	}
	if err = dev.InitializeDisplay(); err != nil {
		log.Fatal(err)
	}
	// WriteString doesn't position the cursor.
	_ = dev.SetCursor(0, 5)
	_, _ = dev.WriteString("HI, WORLD!")
	_ = dev.SetCursor(2, 7)
	_, _ = dev.WriteString("I AM")
	for _, line := range lcd.Lines() {
		fmt.Printf("|%s|\n", strings.TrimRight(line, " "))
	}
	// Output:
	// |     HI, WORLD!|
	// ||
	// |       I AM|
	// ||
}

func ExampleNewPCF857xBackpack() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Open default I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	dev, err := hd44780.NewPCF857xBackpack(bus, hd44780.DefaultAddress, 4, 20)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(dev.String())
	_, _ = dev.PrintAt(0, 5, "HI, WORLD!")
	time.Sleep(5 * time.Second)
	fmt.Println("calling test text display")
	_ = displaytest.TestTextDisplay(dev, true)
	_ = dev.Halt()
}

func ExampleDev_Backlight() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	dev, err := hd44780.NewPCF857xBackpack(bus, hd44780.AlternateAddress, 4, 20)
	if err != nil {
		log.Fatal(err)
	}
	for range 3 {
		_ = dev.Backlight(0)
		time.Sleep(500 * time.Millisecond)
		_ = dev.Backlight(255)
		time.Sleep(500 * time.Millisecond)
	}
}
