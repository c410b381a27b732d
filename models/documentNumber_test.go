package models

import (
	"testing"
	"time"
)

func TestNextSerial(t *testing.T) {
	cases := []struct {
		name   string
		last   string
		prefix string
		want   int
	}{
		{"no prior document", "", "TO-25-", 1},
		{"normal increment", "TO-25-000041", "TO-25-", 42},
		{"garbled suffix falls back", "TO-25-xyz", "TO-25-", 1},
		{"token series", "2501-000007", "2501-", 8},
		{"customer code", "CRT-000123", "CRT-", 124},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextSerial(tc.last, tc.prefix); got != tc.want {
				t.Fatalf("nextSerial(%q, %q) = %d; want %d", tc.last, tc.prefix, got, tc.want)
			}
		})
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	cases := []struct {
		prefix string
		serial int
		width  int
		want   string
	}{
		{"TO-25-", 1, 6, "TO-25-000001"},
		{"TO-25-", 123456, 6, "TO-25-123456"},
		{"B25-", 42, 5, "B25-00042"},
		{"CL-25-", 9, 6, "CL-25-000009"},
		{"CRT-", 7, 6, "CRT-000007"},
	}
	for _, tc := range cases {
		if got := formatDocumentNumber(tc.prefix, tc.serial, tc.width); got != tc.want {
			t.Fatalf("formatDocumentNumber(%q, %d, %d) = %q; want %q", tc.prefix, tc.serial, tc.width, got, tc.want)
		}
	}
}

func TestSeriesPrefixes(t *testing.T) {
	at := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		series NumberSeries
		want   string
	}{
		{"token", TokenSeries, "2501-"},
		{"booking", BookingSeries, "B25-"},
		{"transfer", TransferOrderSeries, "TO-25-"},
		{"challan", ChallanSeries, "CL-25-"},
		{"customer code", CustomerCodeSeries, "CRT-"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.series.Prefix(at); got != tc.want {
				t.Fatalf("%s prefix = %q; want %q", tc.name, got, tc.want)
			}
		})
	}

	// Year roll-over changes every dated prefix.
	next := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	if got := TokenSeries.Prefix(next); got != "2612-" {
		t.Fatalf("token prefix for Dec 2026 = %q; want %q", got, "2612-")
	}
	if got := TransferOrderSeries.Prefix(next); got != "TO-26-" {
		t.Fatalf("transfer prefix for 2026 = %q; want %q", got, "TO-26-")
	}
}
