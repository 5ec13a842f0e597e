/*
NAME
  decode_test.go

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

func TestApplyFiltersIdentityWhenNoCoeffs(t *testing.T) {
	var stateA, stateB [8]int32
	fs, err := applyFilters(&stateA, &stateB, 42, nil, nil, 0, RestartSyncA)
	if err != nil {
		t.Fatalf("applyFilters: %v", err)
	}
	if fs != 42 {
		t.Errorf("fir_state = %d, want 42 (passthrough with no filters)", fs)
	}
	if stateA[0] != 42 {
		t.Errorf("stateA[0] = %d, want 42", stateA[0])
	}
	if stateB[0] != 42 {
		t.Errorf("stateB[0] = %d, want 42 (iir_state = fir_state with pred=0)", stateB[0])
	}
}

func TestApplyFiltersFIRPrediction(t *testing.T) {
	var stateA, stateB [8]int32
	stateA[0] = 4

	coeffA := &FilterCoeffs{Order: 1, CoeffQ: 8, Coeff: [8]int32{256}}
	fs, err := applyFilters(&stateA, &stateB, 0, coeffA, nil, 0, RestartSyncA)
	if err != nil {
		t.Fatalf("applyFilters: %v", err)
	}
	// pred = (256*4)>>8 = 4; fir_state = residual(0) + pred = 4.
	if fs != 4 {
		t.Errorf("fir_state = %d, want 4", fs)
	}
	if stateA[0] != 4 || stateA[1] != 4 {
		t.Errorf("stateA = %v, want [4 4 ...] after shifting in the new fir_state", stateA)
	}
}

func TestApplyFiltersRejectsSaturation(t *testing.T) {
	var stateA, stateB [8]int32
	_, err := applyFilters(&stateA, &stateB, 1<<23, nil, nil, 0, RestartSyncA)
	if err == nil {
		t.Fatal("applyFilters with fir_state at the 24-bit boundary should error, got nil")
	}
}

func TestApplyMatrixUnityCoefficient(t *testing.T) {
	ss := &DecoderSubstreamState{MaxMatrixChan: 0}
	ss.Matrixing.PrimitiveMatrices = 1
	mx := &ss.Matrixing.Matrices[0]
	mx.CFMask = 1
	mx.MCoeff[0] = 1 << 18 // unity in the decoder's Q18 fixed-point format.
	mx.MatrixCh = 0

	var sample [MaxChannels]int32
	sample[0] = 5
	var qss [MaxChannels]uint32

	result := applyMatrix(ss, sample, 0, nil, qss)
	if result[0] != 5 {
		t.Errorf("result[0] = %d, want 5 (unity mix)", result[0])
	}
}

func TestInjectLegacyDitherWritesExtraChannels(t *testing.T) {
	ss := &DecoderSubstreamState{MaxMatrixChan: 0, DitherSeed: 0x123456, DitherShift: 2}
	var sample [MaxChannels]int32

	wantN1 := int32(int8(ss.DitherSeed>>15)) << ss.DitherShift
	shr7 := ss.DitherSeed >> 7
	wantN2 := int32(int8(shr7)) << ss.DitherShift
	wantSeed := (shr7 ^ (shr7 << 5) ^ (ss.DitherSeed << 16)) & 0x7FFFFF

	injectLegacyDither(ss, &sample)

	if sample[1] != wantN1 {
		t.Errorf("sample[MaxMatrixChan+1] = %d, want %d", sample[1], wantN1)
	}
	if sample[2] != wantN2 {
		t.Errorf("sample[MaxMatrixChan+2] = %d, want %d", sample[2], wantN2)
	}
	if ss.DitherSeed != wantSeed {
		t.Errorf("DitherSeed = 0x%X, want 0x%X", ss.DitherSeed, wantSeed)
	}
}

// newPassthroughBlock builds a one-sample, one-channel block with no
// filtering/matrixing/output-shift, so its decoded output equals its raw
// residual and its lossless-check contribution is exactly that residual.
func newPassthroughBlock(residual int32) *Block {
	b := &Block{}
	b.AudioData = [][MaxChannels]int32{{residual}}
	return b
}

func TestDecodeBlockSamplesAccumulatesLosslessCheck(t *testing.T) {
	ss := &DecoderSubstreamState{RestartSyncWord: RestartSyncA}

	out, err := decodeBlockSamples(ss, newPassthroughBlock(5), true)
	if err != nil {
		t.Fatalf("decodeBlockSamples: %v", err)
	}
	if len(out) != 1 || out[0][0] != 5 {
		t.Fatalf("out = %v, want [[5]]", out)
	}
	if ss.LosslessCheck != 5 {
		t.Errorf("LosslessCheck = %d, want 5", ss.LosslessCheck)
	}
}

// TestDecodeBlockSamplesBitFlipChangesLosslessCheck is this package's
// version of the "flip one residual bit and the lossless check must
// differ" property: two otherwise-identical blocks whose sole residual
// differs by one bit must accumulate different LosslessCheck values, so
// the mismatch a later restart header's comparison would catch is real.
func TestDecodeBlockSamplesBitFlipChangesLosslessCheck(t *testing.T) {
	ssA := &DecoderSubstreamState{RestartSyncWord: RestartSyncA}
	ssB := &DecoderSubstreamState{RestartSyncWord: RestartSyncA}

	if _, err := decodeBlockSamples(ssA, newPassthroughBlock(5), true); err != nil {
		t.Fatalf("decodeBlockSamples: %v", err)
	}
	if _, err := decodeBlockSamples(ssB, newPassthroughBlock(4), true); err != nil { // bit 0 flipped
		t.Fatalf("decodeBlockSamples: %v", err)
	}
	if ssA.LosslessCheck == ssB.LosslessCheck {
		t.Error("flipping one residual bit did not change the accumulated lossless check")
	}
}

func TestApplyRestartLosslessCheckMismatchIsFatalAtFailWarn(t *testing.T) {
	d := NewDecoder()
	d.SetFailLevel(FailWarn)

	ss := &DecoderSubstreamState{Valid: true, LosslessCheck: 1}
	rh := &RestartHeader{LosslessCheck: 2} // calculated fold of 1 is 1, not 2.

	err := d.applyRestart(0, 0, ss, rh)
	if err == nil {
		t.Fatal("applyRestart with mismatched lossless check should error at FailWarn, got nil")
	}
	mismatch, ok := err.(*LosslessCheckMismatchError)
	if !ok {
		t.Fatalf("err = %T, want *LosslessCheckMismatchError", err)
	}
	if mismatch.Calculated != 1 || mismatch.Read != 2 {
		t.Errorf("mismatch = %+v, want Calculated=1 Read=2", mismatch)
	}

	// The substream must still reset to the new restart header's
	// configuration regardless of the mismatch.
	if !ss.Valid || ss.LosslessCheck != 0 {
		t.Errorf("substream state after applyRestart = %+v, want Valid=true LosslessCheck=0", ss)
	}
}

func TestApplyRestartLosslessCheckMatchProducesNoError(t *testing.T) {
	d := NewDecoder()
	d.SetFailLevel(FailWarn)

	ss := &DecoderSubstreamState{Valid: true, LosslessCheck: 1}
	rh := &RestartHeader{LosslessCheck: 1}

	if err := d.applyRestart(0, 0, ss, rh); err != nil {
		t.Fatalf("applyRestart with matching lossless check should not error: %v", err)
	}
}

func TestApplyRestartLosslessCheckMismatchToleratedBelowFailWarn(t *testing.T) {
	d := NewDecoder() // default FailLevel is FailError: Warn-level conditions are tolerated.

	ss := &DecoderSubstreamState{Valid: true, LosslessCheck: 1}
	rh := &RestartHeader{LosslessCheck: 2}

	if err := d.applyRestart(0, 0, ss, rh); err != nil {
		t.Fatalf("applyRestart mismatch below FailWarn should be tolerated, got: %v", err)
	}
}
