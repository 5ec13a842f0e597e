/*
NAME
  parser.go

DESCRIPTION
  parser.go defines the mutable state threaded through every access-unit,
  substream and block read (spec.md §3's Parser component), and the
  top-level Parser type that turns a truehd.Frame into an AccessUnit.
  Grounded on process/parse.rs's ParserState/ParserSubstreamState. The
  source's streaming Crc8/Crc16 digests are not carried here: truehd's
  CRC helpers (crc.go) take a whole byte span, so this parser computes
  each CRC once the relevant span is known rather than folding it in
  bit-by-bit (documented in DESIGN.md as a scope simplification).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
)

// MaxPresentations is the maximum number of presentations (and therefore
// substreams) a TrueHD stream carries: stereo, 5.1, 7.1/6ch-extra and an
// object-audio/16-channel presentation.
const MaxPresentations = 4

// MaxChannels bounds every per-channel array below: the largest matrix
// or channel-assignment width the format defines.
const MaxChannels = 16

// historySize is the depth of the output-timing/substream-size rolling
// history kept per substream for seamless-branch detection.
const historySize = 128

// HiresTimingState tracks the bit-serial high-resolution output timing
// field (spec.md §4.2 "Hires output timing"). The source's state machine
// is a 16-state unary-run decoder; this keeps only the fields needed to
// reconstruct a first-AU timing value and flag a restart, rather than
// replicating every one of its states (documented in DESIGN.md).
type HiresTimingState struct {
	StateIndex  int
	SerialCount int
	Timing      int
	AUIndex     int
	AUOutputTiming int
	PrevTiming  int
}

// Update folds in one bit of hires output timing data for the current
// access unit. present reports whether the hires_output_timing bit was
// set this AU.
func (h *HiresTimingState) Update(auIndex, outputTiming, samplesPerAU int, present bool) (hires int, got bool) {
	switch {
	case h.StateIndex == 0 && present:
		h.StateIndex = 1
		h.SerialCount = 0
		h.Timing = 0
		h.AUIndex = auIndex
		h.AUOutputTiming = outputTiming
	case h.StateIndex > 0 && present:
		h.Timing = h.Timing<<1 | 1
		h.SerialCount++
		if h.SerialCount >= 16 {
			computed := (h.Timing<<16+h.AUOutputTiming - h.AUIndex*samplesPerAU)
			h.StateIndex = 0
			return computed, true
		}
	default:
		h.StateIndex = 0
		h.SerialCount = 0
	}
	return 0, false
}

// ParserSubstreamState holds the per-substream working state carried
// across access units within a single substream index: restart-header
// configuration, matrix/filter shape, Huffman parameters, and the
// rolling history used to detect seamless branch points.
type ParserSubstreamState struct {
	CRCPresent      bool
	SubstreamEndPtr uint16

	DRCActive      bool
	DRCGainUpdate  int16
	DRCTimeUpdate  uint8
	DRCCount       int

	HeavyDRCActive     bool
	HeavyDRCPresent    bool
	HeavyDRCGainUpdate int16
	HeavyDRCTimeUpdate uint8
	HeavyDRCCount      int

	BlockIndex int

	RestartSyncWord uint16
	MinChan         int
	MaxChan         int
	MaxMatrixChan   int
	MaxShift        int8
	MaxLSBs         uint32
	ErrorProtect    bool

	HiresTiming HiresTimingState

	Guards    Guards
	BlockSize int

	PrimitiveMatrices int
	MatrixCh          [MaxChannels]uint8
	FracBits          [MaxChannels]uint8
	LSBBypassUsed     [MaxChannels]bool

	CFMask            [MaxChannels]uint16
	DeltaBits         [MaxChannels]uint8
	LSBBypassBitCount [MaxChannels]uint8

	CoeffA [MaxChannels]*FilterCoeffs
	CoeffB [MaxChannels]*FilterCoeffs

	HuffOffset [MaxChannels]int32
	HuffType   [MaxChannels]int
	HuffLSBs   [MaxChannels]uint32

	OutputShift        [MaxChannels]int8
	QuantiserStepSize  [MaxChannels]uint32

	ChAssign [MaxChannels]int

	Latency     int
	PrevLatency int

	OutputTimingHistory  [historySize]int
	SubstreamSizeHistory [historySize]int
	HistoryIndex         int
}

// newParserSubstreamState returns a substream state with the source's
// Default impl values (huff_lsbs defaults to 24, block_size to 8).
func newParserSubstreamState() ParserSubstreamState {
	var s ParserSubstreamState
	s.BlockSize = 8
	s.Guards = DefaultGuards()
	for i := range s.HuffLSBs {
		s.HuffLSBs[i] = 24
	}
	return s
}

// resetForAU clears everything in a substream state that does not
// survive across access units (block/Huffman/matrix shape), while
// keeping restart-header-scoped fields (CRC presence, DRC bookkeeping,
// history) that the source's reset_parser_substream_state preserves.
func (s *ParserSubstreamState) resetForAU() {
	keep := *s
	fresh := newParserSubstreamState()
	fresh.CRCPresent = keep.CRCPresent
	fresh.SubstreamEndPtr = keep.SubstreamEndPtr
	fresh.DRCActive = keep.DRCActive
	fresh.DRCGainUpdate = keep.DRCGainUpdate
	fresh.DRCTimeUpdate = keep.DRCTimeUpdate
	fresh.DRCCount = keep.DRCCount
	fresh.HiresTiming = keep.HiresTiming
	fresh.Latency = keep.Latency
	fresh.PrevLatency = keep.PrevLatency
	fresh.OutputTimingHistory = keep.OutputTimingHistory
	fresh.SubstreamSizeHistory = keep.SubstreamSizeHistory
	fresh.HistoryIndex = keep.HistoryIndex
	*s = fresh
}

// ParserState is the mutable context threaded through AccessUnit.Read and
// every nested Read method, mirroring process/parse.rs's ParserState.
type ParserState struct {
	FailLevel           FailLevel
	Logf                func(string)
	AllowSeamlessBranch bool
	CheckFIFO           bool

	RestartGap        [MaxPresentations]int
	LastMajorSyncIndex int
	AUCounter         int
	IsMajorSync       bool
	HasParsedAU       bool

	AUStartPos int

	AccessUnitLength      int
	PrevAccessUnitLength  int
	TotalAccessUnitLength int

	AUEndPosBit int

	MaxDataRate       int
	MaxDataRateAUIndex int

	Advance     int
	PrevAdvance int

	FIFODuration     int
	PrevFIFODuration int

	InputTiming     int
	FirstInputTiming int
	PrevInputTiming int

	OutputTiming      int
	FirstOutputTiming int
	OutputTimingDeviation int
	HiresOutputTiming *int

	UnwrappedInputTiming      int
	PrevUnwrappedInputTiming  int
	FirstUnwrappedInputTiming int

	InputTimingJump  bool
	OutputTimingJump bool
	PeakDataRateJump bool
	HasValidBranch   bool
	HasSubstreamInfoChanged bool

	VariableRate     bool
	PeakDataRate     int
	PrevPeakDataRate int

	AudioSamplingFrequency1 uint32
	SamplesPerAU            int
	FormatSync              uint32
	Flags                   uint16

	PresentationMap       *PresentationMap
	RequiredPresentations [MaxPresentations]bool

	Substreams            *int
	ExtendedSubstreamInfo uint8
	SubstreamInfo         uint8

	HasParsedSubstream bool

	SubstreamSegmentStartPos uint64
	SubstreamIndex           int
	SubstreamMask            uint8
	SubstreamState           [MaxPresentations]ParserSubstreamState
}

// NewParserState returns a ParserState with the source's defaults:
// fail on Error only, seamless branches and FIFO checking allowed.
func NewParserState() *ParserState {
	s := &ParserState{
		FailLevel:           FailError,
		AllowSeamlessBranch: true,
		CheckFIFO:           true,
		RestartGap:          [MaxPresentations]int{0, 8, 8, 8},
	}
	for i := range s.RequiredPresentations {
		s.RequiredPresentations[i] = true
	}
	for i := range s.SubstreamState {
		s.SubstreamState[i] = newParserSubstreamState()
	}
	return s
}

// expectedAUEndPos is the bit offset where the current access unit must
// end, given its declared length.
func (s *ParserState) expectedAUEndPos() int {
	return s.AUStartPos + s.AccessUnitLength<<4
}

// checkSubstream verifies i is a valid substream index given the
// substream count parsed from the most recent major sync.
func (s *ParserState) checkSubstream(i int) error {
	if s.Substreams == nil {
		return ErrNoSubstream
	}
	if *s.Substreams <= i {
		return withIndex(ErrInvalidSubstreamIndex, "index %d, have %d substreams", i, *s.Substreams)
	}
	return nil
}

// substreamState returns the working state for the current substream
// index.
func (s *ParserState) substreamState() (*ParserSubstreamState, error) {
	if err := s.checkSubstream(s.SubstreamIndex); err != nil {
		return nil, err
	}
	return &s.SubstreamState[s.SubstreamIndex], nil
}

// hasJump reports whether any timing discontinuity was detected in the
// current access unit.
func (s *ParserState) hasJump() bool {
	return s.PeakDataRateJump || s.InputTimingJump || s.OutputTimingJump
}

// warnOrErr applies this parser's configured FailLevel to a condition at
// the given severity.
func (s *ParserState) warnOrErr(level FailLevel, err error) error {
	return warnOrErr(s.FailLevel, level, err, s.Logf)
}

// Parser turns successive truehd.Frame values into AccessUnit trees,
// carrying cross-frame state (substream shape, timing history, CRC
// continuity) the way process/parse.rs's Parser does.
type Parser struct {
	state *ParserState
}

// NewParser returns a Parser ready to parse the first frame of a stream.
func NewParser() *Parser {
	return &Parser{state: NewParserState()}
}

// SetFailLevel configures which condition severities are treated as
// fatal parse errors rather than logged and tolerated.
func (p *Parser) SetFailLevel(level FailLevel) {
	p.state.FailLevel = level
}

// SetLogger installs the callback used for tolerated (sub-fail-level)
// conditions.
func (p *Parser) SetLogger(logf func(string)) {
	p.state.Logf = logf
}

// SetRequiredPresentations restricts which presentations' substreams are
// actually parsed (vs. skipped via their declared end pointer), per
// spec.md §6 "--presentation".
func (p *Parser) SetRequiredPresentations(required [MaxPresentations]bool) {
	p.state.RequiredPresentations = required
	if p.state.PresentationMap != nil {
		p.state.SubstreamMask = p.state.PresentationMap.SubstreamMaskByRequired(required)
	}
}

// HiresOutputTiming returns the most recently reconstructed
// high-resolution output timing value, if any has been decoded yet.
func (p *Parser) HiresOutputTiming() *int {
	return p.state.HiresOutputTiming
}

// Parse reads one access unit from a framed byte run.
func (p *Parser) Parse(frame []byte) (*AccessUnit, error) {
	r := bits.NewReader(frame)
	return readAccessUnit(p.state, r)
}
