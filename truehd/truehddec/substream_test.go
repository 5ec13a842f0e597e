/*
NAME
  substream_test.go

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehddec

import (
	"testing"

	"github.com/truehdd/truehdd/bits"
)

// validSubstreamDirectory: extra_substream_word=0, reserved=0,
// restart_nonexistent=0, crc_present=1, substream_end_ptr=0x123.
var validSubstreamDirectory = []byte{0x11, 0x23}

func TestReadSubstreamDirectoryMajorSync(t *testing.T) {
	state := NewParserState()
	state.IsMajorSync = true

	r := bits.NewReader(validSubstreamDirectory)
	d, err := ReadSubstreamDirectory(state, r)
	if err != nil {
		t.Fatalf("ReadSubstreamDirectory: %v", err)
	}
	if d.RestartNonexistent {
		t.Error("RestartNonexistent = true, want false on a major-sync AU")
	}
	if !d.CRCPresent {
		t.Error("CRCPresent = false, want true")
	}
	if d.SubstreamEndPtr != 0x123 {
		t.Errorf("SubstreamEndPtr = 0x%03X, want 0x123", d.SubstreamEndPtr)
	}
}

func TestReadSubstreamDirectoryMisalignedSync(t *testing.T) {
	// Flip restart_nonexistent to 1 while IsMajorSync is true: the format
	// requires the two to always differ.
	buf := append([]byte{}, validSubstreamDirectory...)
	buf[0] |= 0x20

	state := NewParserState()
	state.IsMajorSync = true

	r := bits.NewReader(buf)
	if _, err := ReadSubstreamDirectory(state, r); err == nil {
		t.Error("ReadSubstreamDirectory with restart_nonexistent=1 on major_sync AU should error, got nil")
	}
}

func TestReadSubstreamDirectoryNonMajorSync(t *testing.T) {
	// restart_nonexistent=1 is required (and valid) on a non-major-sync AU.
	buf := append([]byte{}, validSubstreamDirectory...)
	buf[0] |= 0x20

	state := NewParserState()
	state.IsMajorSync = false

	r := bits.NewReader(buf)
	if _, err := ReadSubstreamDirectory(state, r); err != nil {
		t.Fatalf("ReadSubstreamDirectory: %v", err)
	}
}

func TestReadSubstreamSegmentEmpty(t *testing.T) {
	state := NewParserState()
	ss := newParserSubstreamState()

	r := bits.NewReader(nil)
	seg, err := ReadSubstreamSegment(state, r, &ss, 0)
	if err != nil {
		t.Fatalf("ReadSubstreamSegment: %v", err)
	}
	if len(seg.Blocks) != 0 {
		t.Errorf("len(Blocks) = %d, want 0", len(seg.Blocks))
	}
	if seg.Terminator != nil {
		t.Error("Terminator != nil, want nil for an empty segment")
	}
}

func TestReadSubstreamSegmentRejectsUnalignedStart(t *testing.T) {
	state := NewParserState()
	ss := newParserSubstreamState()

	r := bits.NewReader([]byte{0x00, 0x00, 0x00})
	if _, err := r.ReadBits(3); err != nil {
		t.Fatalf("ReadBits: %v", err)
	}

	if _, err := ReadSubstreamSegment(state, r, &ss, 24); err == nil {
		t.Error("ReadSubstreamSegment starting off a 16-bit boundary should error, got nil")
	}
}
