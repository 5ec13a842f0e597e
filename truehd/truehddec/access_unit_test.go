/*
NAME
  access_unit_test.go

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

func TestCheckFIFODisabled(t *testing.T) {
	state := NewParserState()
	state.CheckFIFO = false
	state.PeakDataRate = 1 // would otherwise drive FIFODuration.

	if err := checkFIFO(state); err != nil {
		t.Fatalf("checkFIFO with CheckFIFO=false: %v", err)
	}
	if state.FIFODuration != 0 {
		t.Errorf("FIFODuration = %d, want 0 (untouched)", state.FIFODuration)
	}
}

func TestCheckFIFOComputesDurationWithCeiling(t *testing.T) {
	state := NewParserState()
	state.PeakDataRate = 100
	state.AccessUnitLength = 3 // (3<<8)/100 = 7.68, ceiling to 8.
	state.HasParsedAU = false // skip the timing-interval checks entirely.

	if err := checkFIFO(state); err != nil {
		t.Fatalf("checkFIFO: %v", err)
	}
	if state.FIFODuration != 8 {
		t.Errorf("FIFODuration = %d, want 8", state.FIFODuration)
	}
}

func TestCheckFIFOTimingTooShortToleratedByDefault(t *testing.T) {
	state := NewParserState() // default FailLevel=FailError: Warn-level conditions tolerated.
	state.HasParsedAU = true
	state.IsMajorSync = false
	state.SamplesPerAU = 40
	state.InputTiming = 5
	state.PrevInputTiming = 0

	if err := checkFIFO(state); err != nil {
		t.Fatalf("checkFIFO should tolerate a short interval by default: %v", err)
	}
	if !state.InputTimingJump {
		t.Error("InputTimingJump = false, want true")
	}
}

func TestCheckFIFOTimingTooShortFatalAtFailWarn(t *testing.T) {
	state := NewParserState()
	state.FailLevel = FailWarn
	state.HasParsedAU = true
	state.IsMajorSync = false
	state.SamplesPerAU = 40 // SamplesPerAU>>2 = 10
	state.InputTiming = 5
	state.PrevInputTiming = 0 // interval = 5, below the 10-sample floor.

	if err := checkFIFO(state); err == nil {
		t.Error("checkFIFO with a too-short interval should error at FailWarn, got nil")
	}
}

func TestCheckFIFOSeamlessBranchToleratesShortInterval(t *testing.T) {
	state := NewParserState()
	state.FailLevel = FailWarn
	state.HasParsedAU = true
	state.AllowSeamlessBranch = true
	state.IsMajorSync = true // tolerant = AllowSeamlessBranch && IsMajorSync
	state.SamplesPerAU = 40
	state.InputTiming = 5
	state.PrevInputTiming = 0

	if err := checkFIFO(state); err != nil {
		t.Fatalf("checkFIFO should tolerate a short interval on a seamless-branch major sync: %v", err)
	}
	if !state.InputTimingJump {
		t.Error("InputTimingJump = false, want true even when tolerated")
	}
}
