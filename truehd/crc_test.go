/*
NAME
  crc_test.go

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import "testing"

func TestRestartHeaderCRC8(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"abc", []byte("abc"), 0x6B},
		{"digits", []byte("123456789"), 0x37},
		{"zeros", make([]byte, 4), 0x00},
		{"allOnes", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0x2D},
		{"sequence", seqBytes(16), 0x42},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RestartHeaderCRC8(tc.body); got != tc.want {
				t.Errorf("RestartHeaderCRC8(%v) = 0x%02X, want 0x%02X", tc.body, got, tc.want)
			}
		})
	}
}

func TestSubstreamCRC8(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want byte
	}{
		{"empty", nil, 0xA2},
		{"abc", []byte("abc"), 0x03},
		{"digits", []byte("123456789"), 0x03},
		{"zeros", make([]byte, 4), 0xB2},
		{"allOnes", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0x6A},
		{"sequence", seqBytes(16), 0xF9},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SubstreamCRC8(tc.body); got != tc.want {
				t.Errorf("SubstreamCRC8(%v) = 0x%02X, want 0x%02X", tc.body, got, tc.want)
			}
		})
	}
}

func TestMajorSyncCRC16(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want uint16
	}{
		{"empty", nil, 0x0000},
		{"abc", []byte("abc"), 0x6CAE},
		{"digits", []byte("123456789"), 0xC59E},
		{"zeros", make([]byte, 4), 0x0000},
		{"allOnes", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0xFC2B},
		{"sequence", seqBytes(16), 0x704A},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MajorSyncCRC16(tc.body); got != tc.want {
				t.Errorf("MajorSyncCRC16(%v) = 0x%04X, want 0x%04X", tc.body, got, tc.want)
			}
		})
	}
}

func seqBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
