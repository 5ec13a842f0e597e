/*
NAME
  restart_header_test.go

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

// validRestartHeader is a 21-byte restart header: sync word A (0x31EA),
// 3 matrix channels (max_matrix_chan=2) with a trivial identity
// ch_assign, no heavy DRC, and a correct CRC-8 trailer. Verified against
// an independent Python replica of RestartHeaderCRC8 before being
// embedded here.
var validRestartHeader = []byte{
	0xD5, 0xE0, 0xF5, 0x09, 0x1A, 0x01, 0x11, 0xE5, 0x43, 0x21,
	0x02, 0x54, 0x20, 0x77, 0x00, 0x00, 0x80, 0x00, 0x00, 0x42, 0xA2,
}

func TestReadRestartHeaderValid(t *testing.T) {
	r := bits.NewReader(validRestartHeader)
	h, err := ReadRestartHeader(NewParserState(), r)
	if err != nil {
		t.Fatalf("ReadRestartHeader: %v", err)
	}
	if h.RestartSyncWord != RestartSyncA {
		t.Errorf("RestartSyncWord = 0x%04X, want 0x%04X", h.RestartSyncWord, RestartSyncA)
	}
	if h.OutputTiming != 0x1234 {
		t.Errorf("OutputTiming = 0x%04X, want 0x1234", h.OutputTiming)
	}
	if h.MinChan != 0 || h.MaxChan != 2 || h.MaxMatrixChan != 2 {
		t.Errorf("chan range = %d/%d/%d, want 0/2/2", h.MinChan, h.MaxChan, h.MaxMatrixChan)
	}
	if h.ChAssign[0] != 0 || h.ChAssign[1] != 1 || h.ChAssign[2] != 2 {
		t.Errorf("ChAssign = %v, want [0 1 2 ...]", h.ChAssign[:3])
	}
	if h.LosslessCheck != 0x77 {
		t.Errorf("LosslessCheck = 0x%02X, want 0x77", h.LosslessCheck)
	}
	if h.HeavyDRCPresent {
		t.Error("HeavyDRCPresent = true, want false")
	}
	if h.RestartHeaderCRC != 0xA2 {
		t.Errorf("RestartHeaderCRC = 0x%02X, want 0xA2", h.RestartHeaderCRC)
	}
}

func TestReadRestartHeaderCRCMismatch(t *testing.T) {
	buf := append([]byte{}, validRestartHeader...)
	buf[len(buf)-1] ^= 0xFF // corrupt the trailing CRC byte.

	r := bits.NewReader(buf)
	if _, err := ReadRestartHeader(NewParserState(), r); err == nil {
		t.Error("ReadRestartHeader with corrupted CRC should error, got nil")
	}
}

func TestReadRestartHeaderDuplicateChAssign(t *testing.T) {
	buf := append([]byte{}, validRestartHeader...)
	// ch_assign[1]'s low 2 bits live in the top 2 bits of byte 19;
	// clearing them (its top 4 bits, in byte 18's low nibble, are
	// already zero) duplicates ch_assign[0] and must be rejected before
	// the CRC is even checked.
	buf[19] &^= 0xC0

	r := bits.NewReader(buf)
	if _, err := ReadRestartHeader(NewParserState(), r); err == nil {
		t.Error("ReadRestartHeader with duplicate ch_assign entries should error, got nil")
	}
}

func TestReadRestartSyncWordRejectsUnknown(t *testing.T) {
	// 12-bit field 0x000 | 0x3000 = 0x3000, not one of the three known variants.
	r := bits.NewReader([]byte{0x00, 0x00})
	if _, err := readRestartSyncWord(r); err == nil {
		t.Error("readRestartSyncWord with unknown sync word should error, got nil")
	}
}

func TestDefaultGuardsAllChanged(t *testing.T) {
	g := DefaultGuards()
	for f := GuardGuards; f <= GuardBlockSize; f++ {
		if !g.NeedChange(f) {
			t.Errorf("DefaultGuards().NeedChange(%d) = false, want true", f)
		}
	}
}

func TestGuardsNeedChange(t *testing.T) {
	g := Guards(1 << uint(GuardCoeffsA))
	if !g.NeedChange(GuardCoeffsA) {
		t.Error("NeedChange(GuardCoeffsA) = false, want true")
	}
	if g.NeedChange(GuardCoeffsB) {
		t.Error("NeedChange(GuardCoeffsB) = true, want false")
	}
}
