/*
NAME
  parser_test.go

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

import "testing"

func TestNewParserSubstreamStateDefaults(t *testing.T) {
	s := newParserSubstreamState()
	if s.BlockSize != 8 {
		t.Errorf("BlockSize = %d, want 8", s.BlockSize)
	}
	if s.Guards != DefaultGuards() {
		t.Errorf("Guards = 0x%02X, want 0x%02X", s.Guards, DefaultGuards())
	}
	for ch, v := range s.HuffLSBs {
		if v != 24 {
			t.Errorf("HuffLSBs[%d] = %d, want 24", ch, v)
		}
	}
}

func TestResetForAUPreservesCrossAUFields(t *testing.T) {
	s := newParserSubstreamState()
	s.CRCPresent = true
	s.SubstreamEndPtr = 0x123
	s.DRCActive = true
	s.DRCGainUpdate = 7
	s.DRCTimeUpdate = 3
	s.Latency = 42
	s.HistoryIndex = 5

	// Fields that must NOT survive resetForAU.
	s.BlockSize = 64
	s.Guards = Guards(0)
	s.CoeffA[0] = &FilterCoeffs{Order: 2}

	s.resetForAU()

	if !s.CRCPresent || s.SubstreamEndPtr != 0x123 {
		t.Errorf("CRCPresent/SubstreamEndPtr = %v/0x%03X, want true/0x123", s.CRCPresent, s.SubstreamEndPtr)
	}
	if !s.DRCActive || s.DRCGainUpdate != 7 || s.DRCTimeUpdate != 3 {
		t.Errorf("DRC fields not preserved: active=%v gain=%d time=%d", s.DRCActive, s.DRCGainUpdate, s.DRCTimeUpdate)
	}
	if s.Latency != 42 || s.HistoryIndex != 5 {
		t.Errorf("Latency/HistoryIndex = %d/%d, want 42/5", s.Latency, s.HistoryIndex)
	}
	if s.BlockSize != 8 {
		t.Errorf("BlockSize = %d, want reset to 8", s.BlockSize)
	}
	if s.Guards != DefaultGuards() {
		t.Errorf("Guards = 0x%02X, want reset to 0x%02X", s.Guards, DefaultGuards())
	}
	if s.CoeffA[0] != nil {
		t.Error("CoeffA[0] should be cleared by resetForAU")
	}
}

func TestCheckSubstream(t *testing.T) {
	state := NewParserState()
	if err := state.checkSubstream(0); err == nil {
		t.Error("checkSubstream with no Substreams set should error, got nil")
	}

	n := 2
	state.Substreams = &n
	if err := state.checkSubstream(1); err != nil {
		t.Errorf("checkSubstream(1) with 2 substreams: %v", err)
	}
	if err := state.checkSubstream(2); err == nil {
		t.Error("checkSubstream(2) with 2 substreams should error, got nil")
	}
}

func TestSubstreamStateReturnsCurrentIndex(t *testing.T) {
	state := NewParserState()
	n := 4
	state.Substreams = &n
	state.SubstreamIndex = 2

	ss, err := state.substreamState()
	if err != nil {
		t.Fatalf("substreamState: %v", err)
	}
	if ss != &state.SubstreamState[2] {
		t.Error("substreamState did not return a pointer to SubstreamState[SubstreamIndex]")
	}
}

func TestHasJump(t *testing.T) {
	state := NewParserState()
	if state.hasJump() {
		t.Error("hasJump = true on a fresh state, want false")
	}
	state.InputTimingJump = true
	if !state.hasJump() {
		t.Error("hasJump = false with InputTimingJump set, want true")
	}
}

func TestParserStateWarnOrErrGating(t *testing.T) {
	state := NewParserState() // default FailLevel=FailError.
	if err := state.warnOrErr(FailWarn, ErrTimingTooLong); err != nil {
		t.Errorf("warnOrErr(FailWarn, ...) below FailError threshold should be tolerated: %v", err)
	}

	state.FailLevel = FailWarn
	if err := state.warnOrErr(FailWarn, ErrTimingTooLong); err != ErrTimingTooLong {
		t.Errorf("warnOrErr(FailWarn, ...) at FailWarn threshold = %v, want ErrTimingTooLong", err)
	}
}

func TestHiresTimingStateUpdate(t *testing.T) {
	var h HiresTimingState

	if _, got := h.Update(0, 0, 50, true); got {
		t.Fatal("first Update with present=true should not yet produce a value")
	}
	if h.StateIndex != 1 {
		t.Fatalf("StateIndex = %d, want 1 after the initializing call", h.StateIndex)
	}

	var (
		computed int
		got      bool
	)
	for i := 0; i < 16; i++ {
		computed, got = h.Update(0, 0, 50, true)
	}
	if !got {
		t.Fatal("16th serial bit should produce a computed timing value")
	}
	if want := 0xFFFF << 16; computed != want {
		t.Errorf("computed = %d, want %d", computed, want)
	}
	if h.StateIndex != 0 {
		t.Errorf("StateIndex = %d, want reset to 0 after producing a value", h.StateIndex)
	}
}

func TestHiresTimingStateUpdateResetsOnGap(t *testing.T) {
	var h HiresTimingState
	h.Update(0, 0, 50, true)
	h.Update(0, 0, 50, true)
	if h.SerialCount == 0 {
		t.Fatal("SerialCount should have advanced past 0")
	}

	if _, got := h.Update(0, 0, 50, false); got {
		t.Error("Update with present=false should never itself produce a value")
	}
	if h.StateIndex != 0 || h.SerialCount != 0 {
		t.Errorf("StateIndex/SerialCount = %d/%d, want reset to 0/0 after a gap", h.StateIndex, h.SerialCount)
	}
}
