/*
NAME
  access_unit.go

DESCRIPTION
  access_unit.go implements readAccessUnit, the top-level parse
  orchestration that turns one framed byte run into a structured
  AccessUnit (spec.md §3 AccessUnit, §4.2 "FIFO/timing/latency model").
  Grounded on structs/access_unit.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
)

// AccessUnit is one fully parsed access unit: its header fields, any
// major sync block, the substream directory, parsed substream
// segments, and optional trailing extra data.
type AccessUnit struct {
	CheckNibble       uint8
	AccessUnitLength  uint16
	InputTiming       uint16
	MajorSyncInfo     *MajorSyncInfo
	SubstreamDirectory [MaxPresentations]SubstreamDirectory
	SubstreamSegment   [MaxPresentations]SubstreamSegment
	ExtraData          *ExtraData
	HasValidBranch     bool
}

// readAccessUnit parses one access unit from r, threading per-stream
// context through state exactly as AccessUnit::read does.
func readAccessUnit(state *ParserState, r *bits.Reader) (*AccessUnit, error) {
	state.IsMajorSync = false

	if !state.HasValidBranch {
		state.PrevAccessUnitLength = state.AccessUnitLength
		state.PrevAdvance = state.Advance
		state.PrevFIFODuration = state.FIFODuration
		state.PrevInputTiming = state.InputTiming
		state.PrevUnwrappedInputTiming = state.UnwrappedInputTiming
		state.PrevPeakDataRate = state.PeakDataRate
	}

	state.InputTimingJump = false
	state.OutputTimingJump = false
	state.PeakDataRateJump = false
	state.HasSubstreamInfoChanged = false

	au := &AccessUnit{}

	var checkNibble, accessUnitLength, inputTiming int
	if err := bits.ReadFields(r, []bits.Field{
		{Loc: &checkNibble, Name: "check_nibble", N: 4},
		{Loc: &accessUnitLength, Name: "access_unit_length", N: 12},
		{Loc: &inputTiming, Name: "input_timing", N: 16},
	}); err != nil {
		return nil, err
	}
	au.CheckNibble = uint8(checkNibble)
	au.AccessUnitLength = uint16(accessUnitLength)
	au.InputTiming = uint16(inputTiming)

	state.InputTiming = int(au.InputTiming)
	if !state.HasParsedAU {
		state.FirstInputTiming = int(au.InputTiming)
	}

	unwrapped := (int(au.InputTiming) - state.OutputTimingDeviation) & 0xFFFF
	for state.PrevUnwrappedInputTiming > unwrapped {
		unwrapped += 0x10000
	}
	state.UnwrappedInputTiming = unwrapped
	if !state.HasParsedAU {
		state.FirstUnwrappedInputTiming = state.UnwrappedInputTiming
	}

	parity, err := r.ParityNibbleLastNBits(32)
	if err != nil {
		return nil, err
	}

	state.AccessUnitLength = int(au.AccessUnitLength)
	state.AUStartPos = int(r.Position()) - 32
	auEndBit := state.expectedAUEndPos()

	testWord, err := r.PeekBits(32)
	if err != nil {
		return nil, err
	}

	switch uint32(testWord) {
	case formatSyncFBA:
		if _, err := r.ReadBits(32); err != nil {
			return nil, err
		}
		msi, err := ReadMajorSyncInfo(state, r)
		if err != nil {
			return nil, err
		}
		au.MajorSyncInfo = &msi
		state.IsMajorSync = true
		state.FormatSync = msi.FormatSync
		state.Substreams = &msi.Substreams
		state.SubstreamInfo = msi.SubstreamInfo
		state.ExtendedSubstreamInfo = msi.ExtendedSubstreamInfo
		state.AudioSamplingFrequency1 = msi.FormatInfo.AudioSamplingFrequency1
		state.SamplesPerAU = msi.FormatInfo.SamplesPerAU()
		state.Flags = msi.Flags
		state.VariableRate = msi.VariableRate
		state.PeakDataRate = int(msi.PeakDataRate)

		pm := DerivePresentationMap(msi.Substreams, msi.SubstreamInfo, msi.ExtendedSubstreamInfo)
		state.PresentationMap = &pm
		state.SubstreamMask = pm.SubstreamMaskByRequired(state.RequiredPresentations)

		state.LastMajorSyncIndex = state.AUCounter
	case formatSyncFBB:
		return nil, withIndex(ErrInvalidFormatSync, "FBB major sync not supported")
	default:
		if !state.HasParsedAU {
			return nil, ErrMissingInitialSync
		}
	}

	majorSyncInterval := state.AUCounter - state.LastMajorSyncIndex
	if state.FormatSync == formatSyncFBA && majorSyncInterval > 128 {
		if err := state.warnOrErr(FailWarn, withIndex(ErrMajorSyncIntervalTooLong, "interval %d exceeds 128", majorSyncInterval)); err != nil {
			return nil, err
		}
	}

	if err := checkFIFO(state); err != nil {
		return nil, err
	}

	minorStart := r.Position()

	if state.Substreams == nil {
		return nil, ErrNoSubstream
	}
	substreams := *state.Substreams

	for i := 0; i < substreams; i++ {
		state.SubstreamIndex = i
		d, err := ReadSubstreamDirectory(state, r)
		if err != nil {
			return nil, err
		}
		au.SubstreamDirectory[i] = d
		state.SubstreamState[i].SubstreamEndPtr = d.SubstreamEndPtr
		state.SubstreamState[i].CRCPresent = d.CRCPresent
		if d.ExtraSubstreamWord {
			state.SubstreamState[i].DRCGainUpdate = d.DRCGainUpdate
			state.SubstreamState[i].DRCTimeUpdate = d.DRCTimeUpdate
			state.SubstreamState[i].DRCActive = true
		}
	}

	state.HasValidBranch = false

	if r.Position()%8 != 0 {
		return nil, ErrMisalignedSync
	}
	minorEnd := r.Position()

	trailingParity, err := r.ParityNibbleLastNBits(minorEnd - minorStart)
	if err != nil {
		return nil, err
	}
	parity ^= trailingParity
	if parity != 0xF {
		return nil, withIndex(ErrNibbleParity, "parity nibble 0x%X", parity)
	}

	state.SubstreamSegmentStartPos = r.Position()
	state.HasParsedSubstream = false

	for i := 0; i < substreams; i++ {
		state.SubstreamIndex = i
		ss := &state.SubstreamState[i]

		segEndBit := state.SubstreamSegmentStartPos + uint64(ss.SubstreamEndPtr)<<4

		if state.SubstreamMask>>uint(i)&1 == 0 {
			if segEndBit > r.Position() {
				if err := r.SkipBits(segEndBit - r.Position()); err != nil {
					return nil, err
				}
			}
			continue
		}

		seg, err := ReadSubstreamSegment(state, r, ss, segEndBit)
		if err != nil {
			return nil, err
		}
		au.SubstreamSegment[i] = seg
		state.HasParsedSubstream = true
	}

	if auEndBit > int(r.Position())+16 {
		extra, err := ReadExtraData(state, r, auEndBit)
		if err != nil {
			return nil, err
		}
		au.ExtraData = &extra
	}

	state.HasParsedAU = true

	if int(r.Position()) <= auEndBit {
		state.TotalAccessUnitLength += int(au.AccessUnitLength)
	} else {
		if err := state.warnOrErr(FailError, withIndex(ErrAccessUnitTooLong, "ended at bit %d, expected %d", r.Position(), auEndBit)); err != nil {
			return nil, err
		}
	}

	state.AUCounter++
	au.HasValidBranch = state.HasValidBranch || state.HasSubstreamInfoChanged

	return au, nil
}

// checkFIFO validates the access unit's input-timing interval against
// the stream's declared peak data rate and sample rate, mirroring
// AccessUnit::check_fifo. The source's seamless-branch allowances are
// folded into a single tolerance check rather than branch-by-branch
// c1-c4 conditions (documented in DESIGN.md).
func checkFIFO(state *ParserState) error {
	if !state.CheckFIFO {
		return nil
	}

	if state.PeakDataRate != 0 {
		state.FIFODuration = (state.AccessUnitLength << 8) / state.PeakDataRate
		if (state.AccessUnitLength<<8)%state.PeakDataRate != 0 {
			state.FIFODuration++
		}
	} else {
		state.FIFODuration = 0
	}

	maxDataRate := 153600000
	if state.FormatSync == formatSyncFBA {
		maxDataRate = 288000000
	}
	if state.PeakDataRate*int(state.AudioSamplingFrequency1) > maxDataRate {
		state.Logf2("peak data rate exceeds maximum allowed")
	}

	if !state.HasParsedAU {
		return nil
	}

	var inputTimingInterval int
	if state.HasValidBranch {
		inputTimingInterval = state.UnwrappedInputTiming - state.PrevUnwrappedInputTiming
	} else {
		inputTimingInterval = (state.InputTiming - state.PrevInputTiming) & 0xFFFF
	}

	samplesPer75ms := (int(state.AudioSamplingFrequency1) * 3) / 40
	if (int(state.AudioSamplingFrequency1)*3)%40 != 0 {
		samplesPer75ms++
	}

	tolerant := state.AllowSeamlessBranch && state.IsMajorSync

	if inputTimingInterval < state.SamplesPerAU>>2 {
		if !tolerant {
			if err := state.warnOrErr(FailWarn, withIndex(ErrTimingTooShort, "interval %d below %d", inputTimingInterval, state.SamplesPerAU>>2)); err != nil {
				return err
			}
		}
		state.InputTimingJump = true
	}

	if inputTimingInterval < state.PrevFIFODuration {
		if !tolerant {
			if err := state.warnOrErr(FailWarn, ErrTimingShorterThanPrevious); err != nil {
				return err
			}
		}
		state.InputTimingJump = true
	}

	if state.VariableRate && state.PrevAccessUnitLength<<8 > inputTimingInterval*state.PeakDataRate {
		if !tolerant {
			if err := state.warnOrErr(FailWarn, ErrDataRateExceeded); err != nil {
				return err
			}
		}
		state.InputTimingJump = true
	}

	if inputTimingInterval > samplesPer75ms {
		if !tolerant {
			if err := state.warnOrErr(FailWarn, ErrTimingTooLong); err != nil {
				return err
			}
		}
		state.InputTimingJump = true
	}

	if !state.InputTimingJump && inputTimingInterval > 0 {
		dataRate := (int(state.AudioSamplingFrequency1) * (state.PrevAccessUnitLength << 4)) / inputTimingInterval
		if dataRate > state.MaxDataRate {
			state.MaxDataRate = dataRate
			state.MaxDataRateAUIndex = state.AUCounter - 1
		}
	}

	return nil
}
