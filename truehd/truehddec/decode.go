/*
NAME
  decode.go

DESCRIPTION
  decode.go implements the Decoder stage (spec.md §3 DecodedAccessUnit,
  §4.3 "Decoder"): recorrelating each channel through its FIR/IIR
  filters, mixing the result through the substream's lossless matrix
  (with dither synthesis for all three restart sync words), remapping
  to output channel order with each channel's output_shift applied,
  and accumulating the lossless-check verification that guards against
  a corrupted or mis-decoded residual.

  Grounded on process/decode.rs and structs/restart_header.rs's
  update_decoder_state. The source keeps one shared rematrix buffer
  across every substream contributing to a presentation and only runs
  the lossless-matrix/remap step for the substream equal to the active
  presentation; this module instead decodes each substream
  independently and gates the matrix/remap/lossless-check step on
  reaching the presentation's top substream (documented in DESIGN.md
  as a scope simplification: cross-substream channel sharing for
  layered presentations is not modelled).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehddec

import (
	"fmt"

	"github.com/truehdd/truehdd/truehd"
)

// DecoderSubstreamState carries cross-access-unit decode state for one
// substream: the last-seen matrixing/channel configuration (reused
// across blocks that do not re-signal it), each channel's
// recorrelation filter delay line, and the running lossless-check
// accumulator verified at the next restart header.
type DecoderSubstreamState struct {
	Valid bool

	MinChan, MaxChan, MaxMatrixChan int
	ChAssign                        [MaxChannels]int
	Matrixing                       Matrixing
	RestartSyncWord                 RestartSyncWord

	DitherSeed  uint32
	DitherShift uint8

	FilterStateA [MaxChannels][8]int32
	FilterStateB [MaxChannels][8]int32

	LosslessCheck int32
}

// DecoderState is the decoder's cross-access-unit context: the stream
// shape learned from the most recent major sync, plus per-substream
// decode state.
type DecoderState struct {
	Valid                   bool
	HasValidBranch          bool
	AudioSamplingFrequency1 uint32
	Substreams              int
	Flags                   uint16
	SubstreamInfo           uint8
	ExtendedSubstreamInfo   uint8

	Substream [MaxPresentations]DecoderSubstreamState
}

// DecodedAccessUnit is one access unit's decoded output: one plane of
// 24-bit-in-32-bit PCM samples per channel of the requested
// presentation, plus any OAMD payload carried alongside it.
type DecodedAccessUnit struct {
	Channels   int
	SampleRate uint32
	Samples    [][]int32 // Samples[channel] = per-sample values for this AU.
	OAMD       []ObjectAudioMetadataPayload
}

// LosslessCheckMismatchError reports that a substream's accumulated
// lossless-check XOR did not match the value declared by the next
// restart header, per spec.md §7/§8's lossless-check property.
type LosslessCheckMismatchError struct {
	Substream  int
	Calculated int32
	Read       uint8
}

func (e *LosslessCheckMismatchError) Error() string {
	return fmt.Sprintf("truehddec: lossless check mismatch on substream %d: calculated 0x%02X, read 0x%02X",
		e.Substream, e.Calculated&0xFF, e.Read)
}

// Decoder turns AccessUnit values into DecodedAccessUnit PCM, carrying
// persistent recorrelation filter state across access units.
type Decoder struct {
	state *DecoderState

	failLevel FailLevel
	logf      func(string)
}

// NewDecoder returns a Decoder with no stream configuration yet; the
// first AccessUnit decoded must carry a major sync.
func NewDecoder() *Decoder {
	return &Decoder{state: &DecoderState{}}
}

// SetFailLevel configures which decode-time conditions (currently just
// lossless-check mismatches) are treated as fatal versus logged and
// tolerated, mirroring ParserState's FailLevel gate.
func (d *Decoder) SetFailLevel(level FailLevel) {
	d.failLevel = level
}

// SetLogger installs the callback invoked for tolerated conditions.
func (d *Decoder) SetLogger(logf func(string)) {
	d.logf = logf
}

func (d *Decoder) warnOrErr(level FailLevel, err error) error {
	return warnOrErr(d.failLevel, level, err, d.logf)
}

// Decode renders one access unit's audio for the given presentation
// index (0=stereo, 1=6ch, 2=8ch, 3=16ch/object), per spec.md §6
// "--presentation".
func (d *Decoder) Decode(au *AccessUnit, presentationIndex int) (*DecodedAccessUnit, error) {
	if au.MajorSyncInfo != nil {
		au.MajorSyncInfo.UpdateDecoderState(d.state)
	} else if !d.state.Valid {
		return nil, ErrInvalidPresentation
	}
	d.state.HasValidBranch = au.HasValidBranch

	pm := DerivePresentationMap(d.state.Substreams, d.state.SubstreamInfo, d.state.ExtendedSubstreamInfo)
	if presentationIndex < 0 || presentationIndex >= MaxPresentations || !pm.Available[presentationIndex] {
		return nil, withIndex(ErrInvalidPresentation, "presentation %d", presentationIndex)
	}
	topSubstream := pm.SubstreamsFor[presentationIndex]

	out := &DecodedAccessUnit{SampleRate: d.state.AudioSamplingFrequency1}

	for i := 0; i <= topSubstream; i++ {
		seg := au.SubstreamSegment[i]
		if len(seg.Blocks) == 0 {
			continue
		}
		ss := &d.state.Substream[i]
		isPresentation := i == topSubstream

		for bi := range seg.Blocks {
			block := &seg.Blocks[bi]
			if block.Header.RestartHeader != nil {
				if err := d.applyRestart(i, topSubstream, ss, block.Header.RestartHeader); err != nil {
					return nil, err
				}
			}
			if block.Header.Matrixing.PrimitiveMatrices > 0 {
				ss.Matrixing = block.Header.Matrixing
			}

			decoded, err := decodeBlockSamples(ss, block, isPresentation)
			if err != nil {
				return nil, withIndex(err, "substream %d", i)
			}
			if !isPresentation {
				continue
			}

			if out.Samples == nil {
				out.Channels = ss.MaxChan - ss.MinChan + 1
				out.Samples = make([][]int32, out.Channels)
			}
			for ch := 0; ch < out.Channels && ch < len(decoded); ch++ {
				out.Samples[ch] = append(out.Samples[ch], decoded[ch]...)
			}
		}
	}

	if au.ExtraData != nil {
		for _, evo := range au.ExtraData.EvoFrames {
			if evo.Payload.OAMD != nil {
				out.OAMD = append(out.OAMD, *evo.Payload.OAMD)
			}
		}
	}

	return out, nil
}

// substreamFeedsLosslessCheck reports whether substreamIndex is one of
// the substreams substreamInfo declares as carrying real audio for
// this stream shape, mirroring update_decoder_state's match arms.
func substreamFeedsLosslessCheck(substreamIndex int, substreamInfo uint8) bool {
	switch substreamIndex {
	case 0:
		return true
	case 1:
		return substreamInfo&8 != 0 || substreamInfo&0x60 == 0x20
	case 2:
		return substreamInfo&0x40 != 0
	case 3:
		return substreamInfo>>7 != 0
	default:
		return false
	}
}

// applyRestart verifies the outgoing substream's accumulated
// lossless-check value against the arriving restart header (when this
// substream both has prior state and backs the requested
// presentation), then resets the substream to the restart header's
// configuration.
func (d *Decoder) applyRestart(substreamIndex, presentationSubstream int, ss *DecoderSubstreamState, rh *RestartHeader) error {
	var checkErr error
	if ss.Valid && substreamIndex == presentationSubstream && substreamFeedsLosslessCheck(substreamIndex, d.state.SubstreamInfo) {
		calculated := ss.LosslessCheck
		calculated ^= calculated >> 16
		calculated ^= calculated >> 8
		calculated &= 0xFF

		if calculated != int32(rh.LosslessCheck) {
			checkErr = d.warnOrErr(FailWarn, &LosslessCheckMismatchError{
				Substream:  substreamIndex,
				Calculated: calculated,
				Read:       rh.LosslessCheck,
			})
		}
	}

	ss.Valid = true
	ss.MinChan = int(rh.MinChan)
	ss.MaxChan = int(rh.MaxChan)
	ss.MaxMatrixChan = int(rh.MaxMatrixChan)
	ss.RestartSyncWord = rh.RestartSyncWord
	ss.DitherSeed = rh.DitherSeed
	ss.DitherShift = rh.DitherShift
	for i, v := range rh.ChAssign {
		ss.ChAssign[i] = int(v)
	}
	ss.FilterStateA = [MaxChannels][8]int32{}
	ss.FilterStateB = [MaxChannels][8]int32{}
	ss.LosslessCheck = 0

	return checkErr
}

// decodeBlockSamples recorrelates one block's residual samples through
// their FIR/IIR filters, and — for the substream that backs the
// requested presentation — mixes them through the lossless matrix,
// remaps to output channel order with output_shift applied, and
// accumulates the lossless-check XOR.
func decodeBlockSamples(ss *DecoderSubstreamState, block *Block, isPresentation bool) ([][]int32, error) {
	nCh := ss.MaxChan - ss.MinChan + 1
	if nCh <= 0 {
		nCh = 1
	}
	out := make([][]int32, nCh)
	for ch := range out {
		out[ch] = make([]int32, 0, len(block.AudioData))
	}

	var ditherTable []int32
	if isPresentation && (ss.RestartSyncWord == RestartSyncB || ss.RestartSyncWord == RestartSyncC) {
		seed := ss.DitherSeed
		ditherTable = truehd.DitherTable31EB(len(block.AudioData), &seed)
		ss.DitherSeed = seed
	}

	var losslessAccum int32

	for n, sample := range block.AudioData {
		recorrelated := sample

		for ch := ss.MinChan; ch <= ss.MaxChan; ch++ {
			cp := block.Header.ChannelParams[ch]
			fs, err := applyFilters(&ss.FilterStateA[ch], &ss.FilterStateB[ch], recorrelated[ch], cp.CoeffA, cp.CoeffB, block.Header.QuantiserStepSize[ch], ss.RestartSyncWord)
			if err != nil {
				return nil, withIndex(err, "channel %d sample %d", ch, n)
			}
			recorrelated[ch] = fs
		}

		if !isPresentation {
			continue
		}

		if ss.RestartSyncWord == RestartSyncA {
			injectLegacyDither(ss, &recorrelated)
		}

		mixed := applyMatrix(ss, recorrelated, n, ditherTable, block.Header.QuantiserStepSize)

		var output [MaxChannels]int32
		for ch := 0; ch <= ss.MaxMatrixChan && ch < MaxChannels; ch++ {
			v := mixed[ch]
			shift := int8(0)
			if ch < len(block.Header.OutputShift) {
				shift = block.Header.OutputShift[ch]
			}
			if shift < 0 {
				v >>= uint(-shift)
			} else if shift > 0 {
				v <<= uint(shift)
			}

			outPos := ch
			if ch < len(ss.ChAssign) {
				outPos = ss.ChAssign[ch]
			}
			if outPos < 0 || outPos >= MaxChannels {
				outPos = ch
			}
			output[outPos] = v

			losslessAccum ^= (v & 0xFFFFFF) << uint(ch&7)
		}

		for outCh := 0; outCh < nCh; outCh++ {
			out[outCh] = append(out[outCh], output[outCh])
		}
	}

	if isPresentation {
		ss.LosslessCheck ^= losslessAccum
	}

	return out, nil
}

// injectLegacyDither synthesizes 0x31EA's two extra "dither channel"
// taps at max_matrix_chan+1/+2 from the running dither seed, writing
// them into sample before the matrix mix runs, then advances the seed
// with the format's xor-shift recurrence.
func injectLegacyDither(ss *DecoderSubstreamState, sample *[MaxChannels]int32) {
	seed := ss.DitherSeed
	shr7 := seed >> 7

	n1 := int32(int8(seed>>15)) << ss.DitherShift
	n2 := int32(int8(shr7)) << ss.DitherShift

	if ch := ss.MaxMatrixChan + 1; ch < MaxChannels {
		sample[ch] = n1
	}
	if ch := ss.MaxMatrixChan + 2; ch < MaxChannels {
		sample[ch] = n2
	}

	ss.DitherSeed = (shr7 ^ (shr7 << 5) ^ (seed << 16)) & 0x7FFFFF
}

// applyFilters runs the FIR ("A") then IIR ("B") recorrelation filters
// for one channel's sample: pred is the quantised coefficient/state
// dot product, fir_state folds the residual back in above the
// quantiser mask, and iir_state is what the IIR tap sees next. Both
// are range-checked against the sync word's expected bit width before
// the delay lines are advanced.
func applyFilters(stateA, stateB *[8]int32, residual int32, coeffA, coeffB *FilterCoeffs, quantiserStepSize uint32, restartSyncWord RestartSyncWord) (int32, error) {
	var acc int64
	var coeffQ uint8

	if coeffA != nil {
		coeffQ = coeffA.CoeffQ
		for i := 0; i < int(coeffA.Order); i++ {
			acc += int64(coeffA.Coeff[i]) * int64(stateA[i])
		}
	} else if coeffB != nil {
		coeffQ = coeffB.CoeffQ
	}
	if coeffB != nil {
		for i := 0; i < int(coeffB.Order); i++ {
			acc += int64(coeffB.Coeff[i]) * int64(stateB[i])
		}
	}

	pred := acc >> coeffQ
	quantiserMask := ^((int64(1) << quantiserStepSize) - 1)
	firState := int64(residual) + (pred & quantiserMask)
	iirState := firState - pred

	maxVal, minVal := int64(1)<<23, -(int64(1) << 23)
	if restartSyncWord == RestartSyncC {
		maxVal, minVal = int64(1)<<31, -(int64(1) << 31)
	}

	if firState >= maxVal || firState < minVal {
		return 0, withIndex(ErrRecorrelatorSaturation, "fir_state %d out of [%d,%d)", firState, minVal, maxVal)
	}
	if iirState >= maxVal || iirState < minVal {
		return 0, withIndex(ErrFilterInputTooWide, "iir_state %d out of [%d,%d)", iirState, minVal, maxVal)
	}

	for i := len(stateA) - 1; i > 0; i-- {
		stateA[i] = stateA[i-1]
	}
	stateA[0] = int32(firState)

	for i := len(stateB) - 1; i > 0; i-- {
		stateB[i] = stateB[i-1]
	}
	stateB[0] = int32(iirState)

	return int32(firState), nil
}

// applyMatrix applies the substream's current lossless matrix mix to
// one sample across all matrix channels (plus, for 0x31EA, the two
// synthesized dither taps), adding table-driven dither for
// 0x31EB/0x31EC and masking each result to its channel's quantiser
// step size before writing it back into the matrix channel it feeds.
func applyMatrix(ss *DecoderSubstreamState, sample [MaxChannels]int32, sampleIndex int, ditherTable []int32, quantiserStepSize [MaxChannels]uint32) [MaxChannels]int32 {
	result := sample

	matrixChanCeil := ss.MaxMatrixChan
	if ss.RestartSyncWord == RestartSyncA {
		matrixChanCeil += 2
	}

	for i := 0; i < ss.Matrixing.PrimitiveMatrices; i++ {
		mx := &ss.Matrixing.Matrices[i]
		var acc int64
		for ch := 0; ch <= matrixChanCeil && ch < MaxChannels; ch++ {
			if mx.CFMask&(1<<uint(ch)) == 0 {
				continue
			}
			acc += int64(mx.MCoeff[ch]) * int64(result[ch])
		}
		if mx.DitherScale != 0 && len(ditherTable) > 0 {
			idx := sampleIndex & (len(ditherTable) - 1)
			acc += int64(ditherTable[idx]) << (11 + uint(mx.DitherScale))
		}

		matrixCh := int(mx.MatrixCh)
		if matrixCh >= MaxChannels {
			continue
		}
		v := int32(acc >> 18)
		mask := int32(^((uint32(1) << quantiserStepSize[matrixCh]) - 1))
		result[matrixCh] = v & mask
	}

	return result
}
