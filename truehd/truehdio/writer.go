/*
NAME
  writer.go

DESCRIPTION
  writer.go defines the collaborator-facing sample writer interface used
  by cmd/truehdd's decode subcommand (§6 "Output PCM layout"). The core
  decoder package (truehd/truehddec) never writes to disk; truehdio is
  the external collaborator that turns a stream of DecodedAccessUnits
  into a PCM/CAF/W64 file, matching spec.md §1's framing of container
  writers as out-of-core collaborators.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package truehdio implements the output-side collaborators named in the
// core's external-interfaces contract: PCM/WAV/W64/CAF sample writers and
// a DAMF-style Atmos metadata sidecar writer.
package truehdio

import (
	"fmt"
	"io"
)

// Format names the supported sample-container output formats.
type Format string

const (
	FormatPCM Format = "pcm"
	FormatWAV Format = "w64"
	FormatCAF Format = "caf"
)

// SampleWriter accepts successive blocks of sample-major PCM and a
// channel count, and finalises any container header/footer on Close.
type SampleWriter interface {
	// WriteSamples writes n samples across channels from
	// samples[0:n][0:channels]. Samples are 24-bit signed values held in
	// a 32-bit container, interleaved from the per-channel planes of the
	// core's DecodedAccessUnit.Samples.
	WriteSamples(samples [][16]int32, n, channels int) error
	Close() error
}

// New constructs a SampleWriter for the named format, writing to w at the
// given sample rate and channel count.
func New(format Format, w io.WriteSeeker, sampleRate, channels int) (SampleWriter, error) {
	switch format {
	case FormatPCM:
		return NewPCMWriter(w, channels), nil
	case FormatWAV:
		return NewW64Writer(w, sampleRate, channels)
	case FormatCAF:
		return NewCAFWriter(w, sampleRate, channels)
	default:
		return nil, fmt.Errorf("truehdio: unsupported output format %q", format)
	}
}
