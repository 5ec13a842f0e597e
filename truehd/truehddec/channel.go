/*
NAME
  channel.go

DESCRIPTION
  channel.go implements channel-assignment and channel-meaning metadata
  (spec.md §3 ChannelMeaning, ChannelParams), grounded on
  structs/channel.rs. ChannelLabel's 16-channel table is kept as a
  straightforward slice lookup rather than the source's bit-pattern
  match, which reads more naturally in Go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import "github.com/truehdd/truehdd/bits"

// ChannelLabel names a single decoded audio channel position.
type ChannelLabel int

const (
	ChLabelL ChannelLabel = iota
	ChLabelR
	ChLabelC
	ChLabelLFE
	ChLabelLs
	ChLabelRs
	ChLabelTfl
	ChLabelTfr
	ChLabelTsl
	ChLabelTsr
	ChLabelTbl
	ChLabelTbr
	ChLabelLsc
	ChLabelRsc
	ChLabelLb
	ChLabelRb
	ChLabelCb
	ChLabelTc
	ChLabelLsd
	ChLabelRsd
	ChLabelLw
	ChLabelRw
	ChLabelTfc
	ChLabelLFE2
)

func (c ChannelLabel) String() string {
	names := [...]string{
		"L", "R", "C", "LFE", "Ls", "Rs", "Tfl", "Tfr", "Tsl", "Tsr",
		"Tbl", "Tbr", "Lsc", "Rsc", "Lb", "Rb", "Cb", "Tc", "Lsd", "Rsd",
		"Lw", "Rw", "Tfc", "LFE2",
	}
	if int(c) < 0 || int(c) >= len(names) {
		return "Unknown"
	}
	return names[c]
}

// sixchChannelTable maps the 6-channel decoder_channel_assignment bit
// pattern's set bits, in order, to channel labels.
var sixchChannelTable = []ChannelLabel{ChLabelC, ChLabelLFE, ChLabelLs, ChLabelRs, ChLabelTfl, ChLabelTfr}

// ChannelLabelsFromSixchAssignment expands a 6-channel assignment
// bitmask into its ordered L/R-implicit channel labels (L, R are always
// present and are not part of the bitmask).
func ChannelLabelsFromSixchAssignment(assignment uint16) ([]ChannelLabel, error) {
	labels := []ChannelLabel{ChLabelL, ChLabelR}
	for i, lbl := range sixchChannelTable {
		if assignment&(1<<uint(i)) != 0 {
			labels = append(labels, lbl)
		}
	}
	return labels, nil
}

var eightchChannelTableNarrow = []ChannelLabel{ChLabelTsl, ChLabelTsr, ChLabelTbl, ChLabelTbr, ChLabelCb, ChLabelTc, ChLabelLsd, ChLabelRsd}
var eightchChannelTableWide = []ChannelLabel{ChLabelLsc, ChLabelRsc, ChLabelLb, ChLabelRb, ChLabelCb, ChLabelTc, ChLabelLw, ChLabelRw}

// ChannelLabelsFromEightchAssignment expands an 8-channel assignment
// bitmask, choosing the narrow or wide channel table depending on bit
// 0x800 of the major sync flags (mirroring from_eightch_channel's two
// branches).
func ChannelLabelsFromEightchAssignment(assignment uint16, flags uint16) ([]ChannelLabel, error) {
	table := eightchChannelTableNarrow
	if flags&0x800 != 0 {
		table = eightchChannelTableWide
	}
	var labels []ChannelLabel
	for i, lbl := range table {
		if assignment&(1<<uint(i)) != 0 {
			labels = append(labels, lbl)
		}
	}
	return labels, nil
}

var sixteenchChannelTable = []ChannelLabel{
	ChLabelTfc, ChLabelLFE2,
}

// ChannelLabelsFromSixteenchAssignment expands the extra (9th-16th)
// channel assignment bitmask used by the 16-channel/object-audio
// presentation.
func ChannelLabelsFromSixteenchAssignment(assignment uint16) ([]ChannelLabel, error) {
	var labels []ChannelLabel
	for i, lbl := range sixteenchChannelTable {
		if assignment&(1<<uint(i)) != 0 {
			labels = append(labels, lbl)
		}
	}
	return labels, nil
}

// ChannelGroup names the stereo-downmix convention a presentation uses.
type ChannelGroup int

const (
	GroupStereo ChannelGroup = iota
	GroupLtRt
	GroupLbinRbin
	GroupMono
)

func (g ChannelGroup) String() string {
	switch g {
	case GroupStereo:
		return "stereo"
	case GroupLtRt:
		return "Lt/Rt"
	case GroupLbinRbin:
		return "Lbin/Rbin"
	case GroupMono:
		return "mono"
	default:
		return "unknown"
	}
}

// ChannelGroupFromModifier maps a 2-bit decoder_channel_modifier field
// to its channel group.
func ChannelGroupFromModifier(modifier uint8) ChannelGroup {
	switch modifier & 3 {
	case 0:
		return GroupStereo
	case 1:
		return GroupLtRt
	case 2:
		return GroupLbinRbin
	default:
		return GroupMono
	}
}

// ExtraChannelMeaning carries the 16-channel presentation's extended
// program description: bed/LFE presence and the extra channel
// assignment bitmask.
type ExtraChannelMeaning struct {
	Present bool

	ContentDescriptionPresent  bool
	DynObjectOnly              bool
	LFEPresent                 bool
	LFEOnly                    bool
	SixteenchChannelAssignment uint16
}

// ReadExtraChannelMeaning parses the 16-channel extension fields, gated
// on the major sync's substream_info top bit being set.
func ReadExtraChannelMeaning(r *bits.Reader, substreamInfo uint8) (ExtraChannelMeaning, error) {
	var e ExtraChannelMeaning
	if substreamInfo>>7 == 0 {
		return e, nil
	}
	e.Present = true

	v, err := r.ReadBits(16)
	if err != nil {
		return e, err
	}
	e.ContentDescriptionPresent = v&0x8000 != 0
	e.DynObjectOnly = v&0x4000 != 0
	e.LFEPresent = v&0x2000 != 0
	e.LFEOnly = v&0x1000 != 0
	e.SixteenchChannelAssignment = uint16(v) & 0x0FFF

	return e, nil
}

// ChannelMeaning carries the presentation-level dialogue normalisation,
// DRC startup gain, and mix metadata parsed from the major sync block.
type ChannelMeaning struct {
	HeavyDRCStartUpGain int8
	TwochControlEnabled bool
	SixchControlEnabled bool
	EightchControlEnabled bool
	DRCStartUpGain      int8

	TwochDialogueNorm int8
	TwochMixLevel     uint8
	TwochSourceFormat uint8

	SixchDialogueNorm int8
	SixchMixLevel     uint8
	SixchSourceFormat uint8

	EightchDialogueNorm int8
	EightchMixLevel     uint8
	EightchSourceFormat uint8

	ExtraChannelMeaning ExtraChannelMeaning
}

// ReadChannelMeaning parses the channel-meaning block that follows the
// substream directory information in a major sync, per structs/channel.rs.
func ReadChannelMeaning(r *bits.Reader, substreamInfo uint8) (ChannelMeaning, error) {
	var c ChannelMeaning

	v, err := r.ReadSigned(8)
	if err != nil {
		return c, err
	}
	c.HeavyDRCStartUpGain = int8(v)

	if err := bits.ReadFlags(r, []bits.Flag{
		{Loc: &c.TwochControlEnabled, Name: "twoch_control_enabled"},
		{Loc: &c.SixchControlEnabled, Name: "sixch_control_enabled"},
		{Loc: &c.EightchControlEnabled, Name: "eightch_control_enabled"},
	}); err != nil {
		return c, err
	}

	v, err = r.ReadSigned(8)
	if err != nil {
		return c, err
	}
	c.DRCStartUpGain = int8(v)

	var fields = []bits.Field{}
	var twochDN, twochML, twochSF int
	fields = append(fields,
		bits.Field{Loc: &twochDN, Name: "twoch_dialogue_norm", N: 7},
		bits.Field{Loc: &twochML, Name: "twoch_mix_level", N: 6},
		bits.Field{Loc: &twochSF, Name: "twoch_source_format", N: 5},
	)
	var sixchDN, sixchML, sixchSF int
	fields = append(fields,
		bits.Field{Loc: &sixchDN, Name: "sixch_dialogue_norm", N: 7},
		bits.Field{Loc: &sixchML, Name: "sixch_mix_level", N: 6},
		bits.Field{Loc: &sixchSF, Name: "sixch_source_format", N: 5},
	)
	var eightchDN, eightchML, eightchSF int
	fields = append(fields,
		bits.Field{Loc: &eightchDN, Name: "eightch_dialogue_norm", N: 7},
		bits.Field{Loc: &eightchML, Name: "eightch_mix_level", N: 6},
		bits.Field{Loc: &eightchSF, Name: "eightch_source_format", N: 5},
	)
	if err := bits.ReadFields(r, fields); err != nil {
		return c, err
	}
	// Dialogue norms are 7-bit two's-complement values; sign-extend them.
	c.TwochDialogueNorm, c.TwochMixLevel, c.TwochSourceFormat = int8(twochDN<<1)>>1, uint8(twochML), uint8(twochSF)
	c.SixchDialogueNorm, c.SixchMixLevel, c.SixchSourceFormat = int8(sixchDN<<1)>>1, uint8(sixchML), uint8(sixchSF)
	c.EightchDialogueNorm, c.EightchMixLevel, c.EightchSourceFormat = int8(eightchDN<<1)>>1, uint8(eightchML), uint8(eightchSF)

	ext, err := ReadExtraChannelMeaning(r, substreamInfo)
	if err != nil {
		return c, err
	}
	c.ExtraChannelMeaning = ext

	return c, nil
}

// ChannelParams holds one channel's recorrelator filters and Huffman
// residual-coding parameters, read once per restart header per channel.
type ChannelParams struct {
	CoeffA     *FilterCoeffs
	CoeffB     *FilterCoeffs
	HuffOffset int32
	HuffType   int
	HuffLSBs   uint32
}

// ReadChannelParams parses one channel's filter and Huffman block,
// gated by the restart header's Guards bitmask (only fields flagged as
// changed are actually re-read).
func ReadChannelParams(r *bits.Reader, g Guards, restartSyncWord uint16, prev ChannelParams) (ChannelParams, error) {
	cp := prev

	if g.NeedChange(GuardCoeffsA) {
		present, err := r.ReadBit()
		if err != nil {
			return cp, err
		}
		if present {
			f, err := ReadFilterCoeffs(r, CoeffA)
			if err != nil {
				return cp, err
			}
			cp.CoeffA = &f
		} else {
			cp.CoeffA = nil
		}
	}

	if g.NeedChange(GuardCoeffsB) {
		present, err := r.ReadBit()
		if err != nil {
			return cp, err
		}
		if present {
			f, err := ReadFilterCoeffs(r, CoeffB)
			if err != nil {
				return cp, err
			}
			cp.CoeffB = &f
		} else {
			cp.CoeffB = nil
		}
	}

	if cp.CoeffA != nil && cp.CoeffB != nil && int(cp.CoeffA.Order)+int(cp.CoeffB.Order) > 8 {
		return cp, ErrFilterOrderTooHigh
	}

	if g.NeedChange(GuardHuffOffset) {
		v, err := r.ReadSigned(15)
		if err != nil {
			return cp, err
		}
		cp.HuffOffset = int32(v)
	}

	huffType, err := r.ReadBits(2)
	if err != nil {
		return cp, err
	}
	cp.HuffType = int(huffType)

	huffLsbs, err := r.ReadBits(5)
	if err != nil {
		return cp, err
	}
	cp.HuffLSBs = uint32(huffLsbs)

	maxHuffLsbs := uint32(24)
	if restartSyncWord == 0x31EC {
		maxHuffLsbs = 31
	}
	if cp.HuffLSBs > maxHuffLsbs {
		return cp, withIndex(ErrHuffLsbsTooLarge, "huff_lsbs %d exceeds %d", cp.HuffLSBs, maxHuffLsbs)
	}

	return cp, nil
}
