/*
NAME
  channel_test.go

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

	"github.com/google/go-cmp/cmp"

	"github.com/truehdd/truehdd/bits"
)

func TestChannelLabelString(t *testing.T) {
	tests := []struct {
		label ChannelLabel
		want  string
	}{
		{ChLabelL, "L"},
		{ChLabelR, "R"},
		{ChLabelLFE2, "LFE2"},
		{ChannelLabel(-1), "Unknown"},
		{ChannelLabel(100), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.label.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestChannelLabelsFromSixchAssignment(t *testing.T) {
	// bits set: C (0x01) and Ls (0x04).
	got, err := ChannelLabelsFromSixchAssignment(0x05)
	if err != nil {
		t.Fatalf("ChannelLabelsFromSixchAssignment: %v", err)
	}
	want := []ChannelLabel{ChLabelL, ChLabelR, ChLabelC, ChLabelLs}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChannelLabelsFromSixchAssignment(0x05) mismatch (-want +got):\n%s", diff)
	}
}

func TestChannelLabelsFromEightchAssignment(t *testing.T) {
	tests := []struct {
		name       string
		assignment uint16
		flags      uint16
		want       []ChannelLabel
	}{
		{"narrow", 0x03, 0x000, []ChannelLabel{ChLabelTsl, ChLabelTsr}},
		{"wide", 0x03, 0x800, []ChannelLabel{ChLabelLsc, ChLabelRsc}},
	}
	for _, tc := range tests {
		got, err := ChannelLabelsFromEightchAssignment(tc.assignment, tc.flags)
		if err != nil {
			t.Fatalf("%s: ChannelLabelsFromEightchAssignment: %v", tc.name, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: ChannelLabelsFromEightchAssignment mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestChannelLabelsFromSixteenchAssignment(t *testing.T) {
	got, err := ChannelLabelsFromSixteenchAssignment(0x3)
	if err != nil {
		t.Fatalf("ChannelLabelsFromSixteenchAssignment: %v", err)
	}
	want := []ChannelLabel{ChLabelTfc, ChLabelLFE2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChannelLabelsFromSixteenchAssignment(0x3) mismatch (-want +got):\n%s", diff)
	}
}

func TestChannelGroupFromModifier(t *testing.T) {
	tests := []struct {
		modifier uint8
		want     ChannelGroup
	}{
		{0, GroupStereo},
		{1, GroupLtRt},
		{2, GroupLbinRbin},
		{3, GroupMono},
		{7, GroupMono}, // only the low 2 bits matter.
	}
	for _, tc := range tests {
		if got := ChannelGroupFromModifier(tc.modifier); got != tc.want {
			t.Errorf("ChannelGroupFromModifier(%d) = %v, want %v", tc.modifier, got, tc.want)
		}
	}
	if got, want := GroupLtRt.String(), "Lt/Rt"; got != want {
		t.Errorf("GroupLtRt.String() = %q, want %q", got, want)
	}
}

func TestReadExtraChannelMeaningAbsent(t *testing.T) {
	r := bits.NewReader([]byte{0x00})
	e, err := ReadExtraChannelMeaning(r, 0x00)
	if err != nil {
		t.Fatalf("ReadExtraChannelMeaning: %v", err)
	}
	if e.Present {
		t.Error("Present = true, want false when substream_info top bit is clear")
	}
	if r.Position() != 0 {
		t.Errorf("reader consumed %d bits, want 0", r.Position())
	}
}

func TestReadExtraChannelMeaningPresent(t *testing.T) {
	// v = 0xF123: top nibble sets all four flags, low 12 bits = 0x123.
	r := bits.NewReader([]byte{0xF1, 0x23})
	e, err := ReadExtraChannelMeaning(r, 0x80)
	if err != nil {
		t.Fatalf("ReadExtraChannelMeaning: %v", err)
	}
	want := ExtraChannelMeaning{
		Present:                    true,
		ContentDescriptionPresent:  true,
		DynObjectOnly:              true,
		LFEPresent:                 true,
		LFEOnly:                    true,
		SixteenchChannelAssignment: 0x123,
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("ReadExtraChannelMeaning mismatch (-want +got):\n%s", diff)
	}
	if r.Position() != 16 {
		t.Errorf("reader consumed %d bits, want 16", r.Position())
	}
}

func TestReadChannelMeaning(t *testing.T) {
	buf := []byte{0xFB, 0xA1, 0x5B, 0x1E, 0x2F, 0x6A, 0x15, 0x8B, 0x2A, 0x68, 0x55, 0x80}
	r := bits.NewReader(buf)

	c, err := ReadChannelMeaning(r, 0x80)
	if err != nil {
		t.Fatalf("ReadChannelMeaning: %v", err)
	}

	want := ChannelMeaning{
		HeavyDRCStartUpGain:   -5,
		TwochControlEnabled:   true,
		SixchControlEnabled:   false,
		EightchControlEnabled: true,
		DRCStartUpGain:        10,

		TwochDialogueNorm: -20,
		TwochMixLevel:     30,
		TwochSourceFormat: 5,

		SixchDialogueNorm: -10,
		SixchMixLevel:     40,
		SixchSourceFormat: 10,

		EightchDialogueNorm: -30,
		EightchMixLevel:     50,
		EightchSourceFormat: 20,

		ExtraChannelMeaning: ExtraChannelMeaning{
			Present:                    true,
			ContentDescriptionPresent:  true,
			DynObjectOnly:              true,
			LFEPresent:                 false,
			LFEOnly:                    true,
			SixteenchChannelAssignment: 0x0AB,
		},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("ReadChannelMeaning mismatch (-want +got):\n%s", diff)
	}
}
