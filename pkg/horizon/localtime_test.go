package horizon

import (
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
)

func TestFormatEventTime(t *testing.T) {
	gst, err := ParseUTCOffset("+04:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		t        time.Time
		expected string
	}{
		{"morning", time.Date(2024, 6, 1, 1, 42, 0, 0, time.UTC), "5:42 AM"},
		{"evening", time.Date(2024, 6, 1, 14, 53, 30, 0, time.UTC), "6:53 PM"},
		{"noon", time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), "12:00 PM"},
		{"midnight", time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC), "12:00 AM"},
		{"zero", time.Time{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatEventTime(tt.t, gst); got != tt.expected {
				t.Errorf("FormatEventTime = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in      string
		seconds int
		wantErr bool
	}{
		{"+04:00", 4 * 3600, false},
		{"-0330", -(3*3600 + 30*60), false},
		{"+5", 5 * 3600, false},
		{"UTC", 0, false},
		{"", 0, false},
		{"04:00", 0, true},
		{"+25:00", 0, true},
		{"+04:75", 0, true},
		{"+ab:00", 0, true},
	}

	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		loc, err := ParseUTCOffset(tt.in)
		if tt.wantErr {
			if !errors.Is(err, celestial.ErrInvalidInput) {
				t.Errorf("ParseUTCOffset(%q): expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUTCOffset(%q): unexpected error %v", tt.in, err)
			continue
		}
		if _, off := ref.In(loc).Zone(); off != tt.seconds {
			t.Errorf("ParseUTCOffset(%q) offset = %d, expected %d", tt.in, off, tt.seconds)
		}
	}
}

func TestLocalDay(t *testing.T) {
	gst, _ := ParseUTCOffset("+04:00")

	// 01:30 local on June 2nd is still June 1st in UTC
	instant := time.Date(2024, 6, 1, 21, 30, 0, 0, time.UTC)
	start, end := LocalDay(instant, gst)

	wantStart := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, expected %v", start, wantStart)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("window length = %v, expected 24h", end.Sub(start))
	}
	if start.Location() != time.UTC || end.Location() != time.UTC {
		t.Errorf("window should be expressed in UTC")
	}
	if instant.Before(start) || !instant.Before(end) {
		t.Errorf("instant %v outside its own day [%v, %v)", instant, start, end)
	}
}

func TestParseLocalInstant(t *testing.T) {
	gst, _ := ParseUTCOffset("+04:00")
	now := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC) // 14:15 local

	got, err := ParseLocalInstant("2024-12-21", "19:30", now, gst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 12, 21, 15, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, expected %v", got.UTC(), want)
	}

	got, err = ParseLocalInstant("", "", now, gst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("defaults: got %v, expected %v", got.UTC(), now)
	}

	got, err = ParseLocalInstant("2024-03-20", "", now, gst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 20, 10, 15, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("date only: got %v, expected %v", got.UTC(), want)
	}

	for _, bad := range [][2]string{{"2024-13-01", ""}, {"21/12/2024", ""}, {"", "25:00"}, {"", "7pm"}} {
		if _, err := ParseLocalInstant(bad[0], bad[1], now, gst); !errors.Is(err, celestial.ErrInvalidInput) {
			t.Errorf("ParseLocalInstant(%q, %q): expected ErrInvalidInput, got %v", bad[0], bad[1], err)
		}
	}
}
