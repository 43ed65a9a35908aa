// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Text is one string placed at a fixed position.
type Text struct {
	Line   int    `yaml:"line"`
	Column int    `yaml:"column"`
	Text   string `yaml:"text"`
}

// Layout is what the display shows.
type Layout struct {
	Address uint16 `yaml:"address"`
	Texts   []Text `yaml:"texts"`
}

var defaultLayout = Layout{
	Address: 0x27,
	Texts: []Text{
		{Line: 0, Column: 5, Text: "HI, WORLD!"},
		{Line: 2, Column: 7, Text: "I AM"},
		{Line: 3, Column: 4, Text: "JORGE ADX :)"},
	},
}

// loadLayout reads a layout file. Fields missing from the file keep their
// default.
func loadLayout(path string) (Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, err
	}
	defer f.Close()
	return parseLayout(f)
}

func parseLayout(r io.Reader) (Layout, error) {
	l := Layout{Address: defaultLayout.Address}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil && err != io.EOF {
		return Layout{}, fmt.Errorf("layout: %w", err)
	}
	if l.Texts == nil {
		l.Texts = defaultLayout.Texts
	}
	if l.Address > 0x7f {
		return Layout{}, fmt.Errorf("layout: invalid address 0x%x", l.Address)
	}
	for i, t := range l.Texts {
		if t.Line < 0 || t.Line > 3 {
			return Layout{}, fmt.Errorf("layout: text %d: line %d out of range 0..3", i, t.Line)
		}
		if t.Column < 0 || t.Column+len(t.Text) > 20 {
			return Layout{}, fmt.Errorf("layout: text %d: %q at column %d does not fit 20 columns", i, t.Text, t.Column)
		}
	}
	return l, nil
}
