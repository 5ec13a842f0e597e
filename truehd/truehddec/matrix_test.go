/*
NAME
  matrix_test.go

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

// legacyMatrixing is a 0x31EB (legacy) matrixing block: one primitive
// matrix targeting channel 0, frac_bits=2, one coefficient (channel 0,
// value 3), no LSB bypass, plus the sync-B-only trailing dither_scale=5.
// Verified bit-for-bit against an independent Python bit-packer.
var legacyMatrixing = []byte{0x10, 0x24, 0xC1, 0x40}

func TestReadMatrixingLegacy(t *testing.T) {
	r := bits.NewReader(legacyMatrixing)
	m, err := ReadMatrixing(r, RestartSyncB, 0, 0, 0, 48000)
	if err != nil {
		t.Fatalf("ReadMatrixing: %v", err)
	}
	if m.PrimitiveMatrices != 1 {
		t.Fatalf("PrimitiveMatrices = %d, want 1", m.PrimitiveMatrices)
	}
	mx := m.Matrices[0]
	if mx.MatrixCh != 0 || mx.FracBits != 2 {
		t.Errorf("MatrixCh/FracBits = %d/%d, want 0/2", mx.MatrixCh, mx.FracBits)
	}
	if mx.CFMask != 1 {
		t.Errorf("CFMask = 0x%04X, want 0x0001", mx.CFMask)
	}
	if mx.MCoeff[0] != 3 {
		t.Errorf("MCoeff[0] = %d, want 3", mx.MCoeff[0])
	}
	if mx.DitherScale != 5 {
		t.Errorf("DitherScale = %d, want 5", mx.DitherScale)
	}

	m.UpdateDecoderState(RestartSyncB)
	if want := int32(3) << 16; m.Matrices[0].MCoeff[0] != want {
		t.Errorf("MCoeff[0] after UpdateDecoderState = %d, want %d", m.Matrices[0].MCoeff[0], want)
	}
}

// objectAudioMatrixing is a 0x31EC matrixing block: new_matrix=1,
// new_matrix_config=1, one primitive matrix (matrix_ch=0, frac_bits=2,
// cf_shift_code raw=2 i.e. stored -1 => 1, dither_scale=0, cf_mask=0x0001,
// coefficient=1), interpolation_used=0, new_delta=0. Verified bit-for-bit
// against an independent Python bit-packer.
var objectAudioMatrixing = []byte{0xC4, 0x09, 0x00, 0x00, 0x00, 0x22, 0x00}

func TestReadMatrixingObjectAudio(t *testing.T) {
	r := bits.NewReader(objectAudioMatrixing)
	m, err := ReadMatrixing(r, RestartSyncC, 0, 0, 0, 48000)
	if err != nil {
		t.Fatalf("ReadMatrixing: %v", err)
	}
	if m.PrimitiveMatrices != 1 {
		t.Fatalf("PrimitiveMatrices = %d, want 1", m.PrimitiveMatrices)
	}
	mx := &m.Matrices[0]
	if mx.CFShiftCode != 1 {
		t.Errorf("CFShiftCode = %d, want 1", mx.CFShiftCode)
	}
	if mx.MCoeff[0] != 1 {
		t.Errorf("MCoeff[0] = %d, want 1", mx.MCoeff[0])
	}

	m.UpdateDecoderState(RestartSyncC)
	want := int32(1) << uint(18+1-2)
	if mx.MCoeff[0] != want {
		t.Errorf("MCoeff[0] after UpdateDecoderState = %d, want %d", mx.MCoeff[0], want)
	}
}

// matrixChanTooHighFixture is a legacy matrixing block with matrix_ch=1,
// frac_bits=0, no coefficients signalled and dither_scale=0, meant to be
// read with maxMatrixChan=0 so its matrix_ch exceeds the substream's
// declared channel ceiling.
var matrixChanTooHighFixture = []byte{0x11, 0x00, 0x00}

func TestReadMatrixingRejectsMatrixChanTooHigh(t *testing.T) {
	r := bits.NewReader(matrixChanTooHighFixture)
	if _, err := ReadMatrixing(r, RestartSyncB, 0, 0, 0, 48000); err == nil {
		t.Error("ReadMatrixing with matrix_ch exceeding max_matrix_chan should error, got nil")
	}
}
