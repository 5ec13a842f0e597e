/*
NAME
  matrix.go

DESCRIPTION
  matrix.go implements the lossless matrixing block (spec.md §3
  Matrices/Matrixing), grounded on structs/matrix.rs. Two wire shapes
  are supported: the object-audio shape used by restart sync word
  0x31EC (per-primitive-matrix cf_shift_code/dither_scale/delta
  coefficients) and the legacy shape used by 0x31EA/0x31EB (a flat
  per-bit m_flag gate over max_matrix_chan(+2) channels).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import "github.com/truehdd/truehdd/bits"

// Matrices is one primitive matrix: the channel it writes, its
// fractional-bits precision, and its (possibly delta-coded) mix
// coefficients.
type Matrices struct {
	MatrixCh         uint8
	FracBits         uint8
	LSBBypassUsed    bool
	CFShiftCode      int8
	LSBBypassBitCount uint8
	DitherScale      uint8
	CFMask           uint16
	DeltaBits        uint8
	DeltaPrecision   uint8
	DeltaCF          [MaxChannels]int32
	MCoeff           [MaxChannels]int32
}

// Matrixing is the full matrixing block for one restart header: zero or
// more primitive matrices plus whether this block carries new
// coefficients at all (vs. reusing the previous restart header's).
type Matrixing struct {
	PrimitiveMatrices   int
	NewMatrix           bool
	NewMatrixConfig     bool
	InterpolationUsed   bool
	NewDelta            bool
	NewDeltaConfig      bool
	Matrices            [MaxChannels]Matrices
}

// ReadMatrixing parses the matrixing block, branching on the
// restart-header sync word to pick the object-audio or legacy wire
// shape, then validates matrix_ch/frac_bits against the substream's
// channel configuration.
func ReadMatrixing(r *bits.Reader, syncWord RestartSyncWord, maxMatrixChan uint8, substreamIndex int, substreamInfo uint8, audioSamplingFrequency1 uint32) (Matrixing, error) {
	var m Matrixing

	if syncWord == RestartSyncC {
		newMatrix, err := r.ReadBit()
		if err != nil {
			return m, err
		}
		m.NewMatrix = newMatrix

		if m.NewMatrix {
			newMatrixConfig, err := r.ReadBit()
			if err != nil {
				return m, err
			}
			m.NewMatrixConfig = newMatrixConfig

			if m.NewMatrixConfig {
				pm, err := r.ReadBits(4)
				if err != nil {
					return m, err
				}
				m.PrimitiveMatrices = int(pm)
			}

			for i := 0; i < m.PrimitiveMatrices; i++ {
				mx := &m.Matrices[i]
				if m.NewMatrixConfig {
					var matrixCh, fracBits int
					if err := bits.ReadFields(r, []bits.Field{
						{Loc: &matrixCh, Name: "matrix_ch", N: 4},
						{Loc: &fracBits, Name: "frac_bits", N: 4},
					}); err != nil {
						return m, err
					}
					mx.MatrixCh, mx.FracBits = uint8(matrixCh), uint8(fracBits)

					cfShiftCode, err := r.ReadSigned(3)
					if err != nil {
						return m, err
					}
					mx.CFShiftCode = int8(cfShiftCode) - 1

					lsbBypassBitCount, err := r.ReadBits(2)
					if err != nil {
						return m, err
					}
					mx.LSBBypassBitCount = uint8(lsbBypassBitCount)

					ditherScale, err := r.ReadBits(8)
					if err != nil {
						return m, err
					}
					mx.DitherScale = uint8(ditherScale)

					cfMask, err := r.ReadBits(16)
					if err != nil {
						return m, err
					}
					mx.CFMask = uint16(cfMask)
				}

				for bit := 0; bit < 16; bit++ {
					if mx.CFMask&(1<<uint(bit)) == 0 {
						continue
					}
					coeff, err := r.ReadSigned(int(mx.FracBits) + 2)
					if err != nil {
						return m, err
					}
					mx.MCoeff[bit] = int32(coeff)
				}
			}

			interpolationUsed, err := r.ReadBit()
			if err != nil {
				return m, err
			}
			m.InterpolationUsed = interpolationUsed

			newDelta, err := r.ReadBit()
			if err != nil {
				return m, err
			}
			m.NewDelta = newDelta

			if m.NewDelta {
				newDeltaConfig, err := r.ReadBit()
				if err != nil {
					return m, err
				}
				m.NewDeltaConfig = newDeltaConfig

				for i := 0; i < m.PrimitiveMatrices; i++ {
					mx := &m.Matrices[i]
					if m.NewDeltaConfig {
						var deltaBits, deltaPrecision int
						if err := bits.ReadFields(r, []bits.Field{
							{Loc: &deltaBits, Name: "delta_bits", N: 4},
							{Loc: &deltaPrecision, Name: "delta_precision", N: 4},
						}); err != nil {
							return m, err
						}
						mx.DeltaBits, mx.DeltaPrecision = uint8(deltaBits), uint8(deltaPrecision)
					}
					if mx.DeltaBits == 0 {
						continue
					}
					for bit := 0; bit < 16; bit++ {
						if mx.CFMask&(1<<uint(bit)) == 0 {
							continue
						}
						dc, err := r.ReadSigned(int(mx.DeltaBits))
						if err != nil {
							return m, err
						}
						mx.DeltaCF[bit] = int32(dc)
					}
				}
			}
		}
	} else {
		pm, err := r.ReadBits(4)
		if err != nil {
			return m, err
		}
		m.PrimitiveMatrices = int(pm)

		maxChan := int(maxMatrixChan)
		if syncWord == RestartSyncA {
			maxChan += 2
		}

		for i := 0; i < m.PrimitiveMatrices; i++ {
			mx := &m.Matrices[i]
			var matrixCh, fracBits int
			if err := bits.ReadFields(r, []bits.Field{
				{Loc: &matrixCh, Name: "matrix_ch", N: 4},
				{Loc: &fracBits, Name: "frac_bits", N: 4},
			}); err != nil {
				return m, err
			}
			mx.MatrixCh, mx.FracBits = uint8(matrixCh), uint8(fracBits)

			lsbBypassUsed, err := r.ReadBit()
			if err != nil {
				return m, err
			}
			mx.LSBBypassUsed = lsbBypassUsed

			for ch := 0; ch <= maxChan; ch++ {
				flag, err := r.ReadBit()
				if err != nil {
					return m, err
				}
				if !flag {
					continue
				}
				coeff, err := r.ReadSigned(int(mx.FracBits) + 2)
				if err != nil {
					return m, err
				}
				if ch < MaxChannels {
					mx.MCoeff[ch] = int32(coeff)
					mx.CFMask |= 1 << uint(ch)
				}
			}

			if mx.LSBBypassUsed {
				if _, err := r.ReadBit(); err != nil { // bypassed LSB value; read and discarded
					return m, err
				}
			}
		}

		if syncWord == RestartSyncB {
			ditherScale, err := r.ReadBits(8)
			if err != nil {
				return m, err
			}
			m.Matrices[0].DitherScale = uint8(ditherScale)
		}
	}

	for i := 0; i < m.PrimitiveMatrices; i++ {
		mx := &m.Matrices[i]
		if mx.MatrixCh > maxMatrixChan {
			return m, withIndex(ErrMatrixChannelTooHigh, "matrix_ch %d exceeds max_matrix_chan %d", mx.MatrixCh, maxMatrixChan)
		}
		if mx.FracBits > 14 {
			return m, withIndex(ErrFracBitsTooHigh, "frac_bits %d", mx.FracBits)
		}
	}

	return m, nil
}

// UpdateDecoderState rescales every coefficient in m to the fixed Q18
// format the lossless-matrix decode step operates in, per
// update_decoder_state's two shift conventions.
func (m *Matrixing) UpdateDecoderState(syncWord RestartSyncWord) {
	for i := 0; i < m.PrimitiveMatrices; i++ {
		mx := &m.Matrices[i]
		if syncWord == RestartSyncC {
			shift := 18 + int(mx.CFShiftCode) - int(mx.FracBits)
			for b := range mx.MCoeff {
				mx.MCoeff[b] <<= uint(shiftClamp(shift))
			}
			deltaShift := 18 + (int(mx.CFShiftCode) - int(mx.FracBits) - int(mx.DeltaPrecision))
			for b := range mx.DeltaCF {
				mx.DeltaCF[b] <<= uint(shiftClamp(deltaShift))
			}
		} else {
			shift := 18 - int(mx.FracBits)
			for b := range mx.MCoeff {
				mx.MCoeff[b] <<= uint(shiftClamp(shift))
			}
		}
	}
}

func shiftClamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
