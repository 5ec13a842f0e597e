/*
NAME
  pcm.go

DESCRIPTION
  pcm.go writes raw interleaved 24-bit little-endian PCM with no
  container header, for the `--format pcm` CLI option.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehdio

import "io"

// PCMWriter writes raw interleaved 24-bit little-endian samples.
type PCMWriter struct {
	w        io.Writer
	channels int
	buf      []byte
}

// NewPCMWriter returns a PCMWriter writing interleaved samples for the
// given channel count.
func NewPCMWriter(w io.Writer, channels int) *PCMWriter {
	return &PCMWriter{w: w, channels: channels}
}

// WriteSamples writes n samples across channels, each truncated to its
// low 24 bits and emitted little-endian.
func (p *PCMWriter) WriteSamples(samples [][16]int32, n, channels int) error {
	need := n * channels * 3
	if cap(p.buf) < need {
		p.buf = make([]byte, need)
	}
	buf := p.buf[:need]
	i := 0
	for s := 0; s < n; s++ {
		for c := 0; c < channels; c++ {
			v := uint32(samples[s][c]) & 0xFFFFFF
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
			buf[i+2] = byte(v >> 16)
			i += 3
		}
	}
	_, err := p.w.Write(buf)
	return err
}

// Close is a no-op for raw PCM: there is no header or footer to finalise.
func (p *PCMWriter) Close() error { return nil }
