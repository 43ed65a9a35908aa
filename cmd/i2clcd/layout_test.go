// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseLayout(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected Layout
	}{
		{"empty", "", defaultLayout},
		{"address only", "address: 0x3f\n", Layout{Address: 0x3f, Texts: defaultLayout.Texts}},
		{
			"texts",
			"texts:\n  - line: 1\n    column: 2\n    text: hello\n",
			Layout{Address: 0x27, Texts: []Text{{Line: 1, Column: 2, Text: "hello"}}},
		},
		{"no texts", "texts: []\n", Layout{Address: 0x27, Texts: []Text{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := parseLayout(strings.NewReader(tc.in))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(l, tc.expected) {
				t.Fatalf("got %+v, expected %+v", l, tc.expected)
			}
		})
	}
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"address", "address: 0x80\n", "invalid address"},
		{"line", "texts:\n  - line: 4\n    text: x\n", "line 4 out of range"},
		{"negative line", "texts:\n  - line: -1\n    text: x\n", "line -1 out of range"},
		{"column", "texts:\n  - column: 15\n    text: too long!\n", "does not fit"},
		{"negative column", "texts:\n  - column: -1\n    text: x\n", "does not fit"},
		{"unknown field", "adress: 0x27\n", "adress"},
		{"syntax", "texts: [\n", "layout:"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseLayout(strings.NewReader(tc.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("address: 0x3f\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := loadLayout(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.Address != 0x3f {
		t.Fatalf("address 0x%x", l.Address)
	}
	if _, err = loadLayout(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
