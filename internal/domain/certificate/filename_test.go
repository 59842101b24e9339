package certificate

import (
	"errors"
	"testing"
	"time"
)

func TestParseFilename(t *testing.T) {
	facts, err := ParseFilename("20260224_10_52_38_8323918ARRJ3290_Calibration_EN.pdf", time.UTC)
	if err != nil {
		t.Fatalf("ParseFilename() error = %v", err)
	}

	want := time.Date(2026, 2, 24, 10, 52, 38, 0, time.UTC)
	if !facts.TestedAt.Equal(want) {
		t.Fatalf("ParseFilename() tested_at = %s, want %s", facts.TestedAt, want)
	}
	if facts.Serial != "ARRJ3290" {
		t.Fatalf("ParseFilename() serial = %q, want ARRJ3290", facts.Serial)
	}
}

func TestParseFilenameSerialVariants(t *testing.T) {
	cases := []struct {
		name   string
		serial string
	}{
		{name: "20250101_00_00_00_abcd1234_Calibration.pdf", serial: "ABCD1234"},
		{name: "20250101_00_00_00_ab12_calibration_report.pdf", serial: "AB12"},
		{name: "20250101_23_59_59_XX99887766LONGTOKEN_Calibration_DE.pdf", serial: "ONGTOKEN"},
	}

	for _, tc := range cases {
		facts, err := ParseFilename(tc.name, nil)
		if err != nil {
			t.Fatalf("ParseFilename(%q) error = %v", tc.name, err)
		}
		if facts.Serial != tc.serial {
			t.Fatalf("ParseFilename(%q) serial = %q, want %q", tc.name, facts.Serial, tc.serial)
		}
	}
}

func TestParseFilenameUsesLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	facts, err := ParseFilename("20260224_10_52_38_8323918ARRJ3290_Calibration_EN.pdf", loc)
	if err != nil {
		t.Fatalf("ParseFilename() error = %v", err)
	}
	if got := facts.TestedAt.UTC().Hour(); got != 9 {
		t.Fatalf("ParseFilename() utc hour = %d, want 9", got)
	}
}

func TestParseFilenameRejectsUnsupportedNames(t *testing.T) {
	names := []string{
		"invalid.pdf",
		"20260224_10_52_38_ARRJ3290.pdf",
		"2026022_10_52_38_ARRJ3290_Calibration.pdf",
		"20261324_10_52_38_ARRJ3290_Calibration.pdf",
		"x20260224_10_52_38_ARRJ3290_Calibration.pdf",
	}

	for _, name := range names {
		_, err := ParseFilename(name, time.UTC)
		if !errors.Is(err, ErrUnsupportedFilename) {
			t.Fatalf("ParseFilename(%q) error = %v, want ErrUnsupportedFilename", name, err)
		}
	}
}
