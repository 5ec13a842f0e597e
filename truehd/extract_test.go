/*
NAME
  extract_test.go

DESCRIPTION
  See Readme.md. Test access units are hand-assembled minimal major-sync
  frames: a zero-substream major sync (so NextFrame's per-substream
  parity loop is a no-op) with a correct header nibble parity and a
  correct major-sync CRC-16, verified byte-for-byte against an
  independent simulation of Extractor.resync/NextFrame before being
  embedded here.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import "testing"

// validMajorSyncAU is a minimal 40-byte, zero-substream major-sync
// access unit: header nibble parity over its first 4 bytes checks out,
// its major-sync body declares the 26-byte (short) form, and its
// CRC-16 is correct.
var validMajorSyncAU = []byte{
	0xA0, 0x14, 0x00, 0x00,
	0xF8, 0x72, 0x6F, 0xBA,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x28, 0xF5,
	0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC,
}

func TestExtractorNextFrameLocksOnValidAU(t *testing.T) {
	e := NewExtractor()
	e.PushBytes(validMajorSyncAU)

	frame, err := e.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if len(frame.Data) != len(validMajorSyncAU) {
		t.Fatalf("NextFrame frame length = %d, want %d", len(frame.Data), len(validMajorSyncAU))
	}
	for i := range validMajorSyncAU {
		if frame.Data[i] != validMajorSyncAU[i] {
			t.Fatalf("NextFrame frame byte %d = 0x%02X, want 0x%02X", i, frame.Data[i], validMajorSyncAU[i])
		}
	}
	if !frame.IsMajorSync() {
		t.Error("frame.IsMajorSync() = false, want true")
	}
}

func TestExtractorNextFrameInsufficientData(t *testing.T) {
	e := NewExtractor()
	e.PushBytes(validMajorSyncAU[:20])

	_, err := e.NextFrame()
	if err != ErrInsufficientData {
		t.Fatalf("NextFrame with partial AU = %v, want ErrInsufficientData", err)
	}
}

func TestExtractorNextFrameBeforeAnyPush(t *testing.T) {
	e := NewExtractor()
	if _, err := e.NextFrame(); err != ErrInsufficientData {
		t.Fatalf("NextFrame before PushBytes = %v, want ErrInsufficientData", err)
	}
}

func TestExtractorConsumesFrameOnce(t *testing.T) {
	e := NewExtractor()
	two := append(append([]byte{}, validMajorSyncAU...), validMajorSyncAU...)
	e.PushBytes(two)

	first, err := e.NextFrame()
	if err != nil {
		t.Fatalf("first NextFrame: %v", err)
	}
	if len(first.Data) != len(validMajorSyncAU) {
		t.Fatalf("first frame length = %d, want %d", len(first.Data), len(validMajorSyncAU))
	}

	second, err := e.NextFrame()
	if err != nil {
		t.Fatalf("second NextFrame: %v", err)
	}
	if len(second.Data) != len(validMajorSyncAU) {
		t.Fatalf("second frame length = %d, want %d", len(second.Data), len(validMajorSyncAU))
	}

	if _, err := e.NextFrame(); err != ErrInsufficientData {
		t.Fatalf("third NextFrame = %v, want ErrInsufficientData", err)
	}
}

func TestFrameIsMajorSyncRejectsShortData(t *testing.T) {
	f := Frame{Data: []byte{0xF8, 0x72}}
	if f.IsMajorSync() {
		t.Error("IsMajorSync() on a 2-byte frame = true, want false")
	}
}
