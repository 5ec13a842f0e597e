/*
NAME
  timestamp_test.go

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import "testing"

func TestParseTimestamp(t *testing.T) {
	buf := []byte{
		0x01, 0x10,
		0x00, 0x01, // hours BCD -> 1
		0x00, 0x23, // minutes BCD -> 23
		0x00, 0x45, // seconds BCD -> 45
		0x00, 0x12, // frames BCD -> 12
		0x00, 0x64, // samples -> 100
		0x00, 0x09, // framerate=24(2), dropframe=1
		0x80, 0x00,
	}

	ts, err := ParseTimestamp(buf)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.Hours != 1 || ts.Minutes != 23 || ts.Seconds != 45 || ts.Frames != 12 {
		t.Errorf("ParseTimestamp time = %02d:%02d:%02d:%02d, want 01:23:45:12",
			ts.Hours, ts.Minutes, ts.Seconds, ts.Frames)
	}
	if ts.Samples != 100 {
		t.Errorf("ParseTimestamp samples = %d, want 100", ts.Samples)
	}
	if ts.Framerate != Framerate24 {
		t.Errorf("ParseTimestamp framerate = %v, want Framerate24", ts.Framerate)
	}
	if !ts.Dropframe {
		t.Error("ParseTimestamp dropframe = false, want true")
	}

	wantString := "01:23:45:12 +100 @ 24 fps DF"
	if got := ts.String(); got != wantString {
		t.Errorf("Timestamp.String() = %q, want %q", got, wantString)
	}
}

func TestParseTimestampTooShort(t *testing.T) {
	if _, err := ParseTimestamp(make([]byte, 15)); err == nil {
		t.Error("ParseTimestamp with 15 bytes should error, got nil")
	}
}

func TestParseTimestampBadSyncBytes(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0xFF
	if _, err := ParseTimestamp(buf); err == nil {
		t.Error("ParseTimestamp with bad sync bytes should error, got nil")
	}
}

func TestParseTimestampInvalidBCD(t *testing.T) {
	buf := []byte{
		0x01, 0x10,
		0x00, 0xFA, // invalid BCD nibble
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x80, 0x00,
	}
	if _, err := ParseTimestamp(buf); err == nil {
		t.Error("ParseTimestamp with invalid BCD digit should error, got nil")
	}
}

func TestFramerateStringUnknown(t *testing.T) {
	f := Framerate(0x0F)
	if got, want := f.String(), "Invalid(0F)"; got != want {
		t.Errorf("Framerate(0x0F).String() = %q, want %q", got, want)
	}
}
