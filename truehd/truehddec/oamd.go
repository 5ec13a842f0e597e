/*
NAME
  oamd.go

DESCRIPTION
  oamd.go implements a deliberately partial Object Audio Metadata
  payload parser, at the depth spec.md §9 sanctions: "implementers
  should treat the OAMD body as an opaque payload" beyond the program
  assignment (bed/ISF/object counts), the 9x5 trim table, and per-object
  presence flags. Deeper per-object render detail is kept as an opaque
  remainder rather than fully decoded.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import "github.com/truehdd/truehdd/bits"

// trimTableRows/trimTableCols size the OAMD program's 9x5 trim table
// (9 loudspeaker configurations x 5 trim bands).
const (
	trimTableRows = 9
	trimTableCols = 5
)

// ProgramAssignment describes an OAMD program's bed/object layout:
// how many bed channels, independently-steerable objects and
// dynamic/generic objects it carries.
type ProgramAssignment struct {
	BedChannelCount          uint8
	ISFObjectCount           uint8
	IntermediateSpatialFormat bool
	DynamicObjectCount       uint16
}

// ReadProgramAssignment parses the bed/object-count header that starts
// an OAMD payload's program configuration.
func ReadProgramAssignment(r *bits.Reader) (ProgramAssignment, error) {
	var p ProgramAssignment

	isf, err := r.ReadBit()
	if err != nil {
		return p, err
	}
	p.IntermediateSpatialFormat = isf

	if p.IntermediateSpatialFormat {
		isfCount, err := r.ReadBits(3)
		if err != nil {
			return p, err
		}
		p.ISFObjectCount = uint8(isfCount)
	} else {
		bedCount, err := r.ReadBits(4)
		if err != nil {
			return p, err
		}
		p.BedChannelCount = uint8(bedCount)
	}

	objCount, err := r.ReadBits(11)
	if err != nil {
		return p, err
	}
	p.DynamicObjectCount = uint16(objCount)

	return p, nil
}

// ObjectAudioMetadataPayload is the program-level OAMD metadata block
// carried in an Evolution frame: program assignment, the trim table,
// and per-object presence flags. Deeper per-object render/extended
// metadata is retained as an opaque payload.
type ObjectAudioMetadataPayload struct {
	Program ProgramAssignment
	Trim    [trimTableRows][trimTableCols]int8

	ObjectCount   int
	ObjectBasicInfoPresent    []bool
	ObjectRenderInfoPresent   []bool
	ObjectExtendedInfoPresent []bool

	Remainder []byte
}

// ReadObjectAudioMetadataPayload parses one OAMD payload up to
// endBit, at the depth spec.md §9 invites.
func ReadObjectAudioMetadataPayload(r *bits.Reader, endBit uint64) (ObjectAudioMetadataPayload, error) {
	var o ObjectAudioMetadataPayload

	prog, err := ReadProgramAssignment(r)
	if err != nil {
		return o, err
	}
	o.Program = prog

	trimPresent, err := r.ReadBit()
	if err != nil {
		return o, err
	}
	if trimPresent {
		for i := 0; i < trimTableRows; i++ {
			for j := 0; j < trimTableCols; j++ {
				v, err := r.ReadSigned(8)
				if err != nil {
					return o, err
				}
				o.Trim[i][j] = int8(v)
			}
		}
	}

	o.ObjectCount = int(prog.DynamicObjectCount) + int(prog.ISFObjectCount)
	if o.ObjectCount > 0 && r.Remaining() >= uint64(o.ObjectCount)*3 {
		o.ObjectBasicInfoPresent = make([]bool, o.ObjectCount)
		o.ObjectRenderInfoPresent = make([]bool, o.ObjectCount)
		o.ObjectExtendedInfoPresent = make([]bool, o.ObjectCount)
		for i := 0; i < o.ObjectCount; i++ {
			if r.Position()+3 > endBit {
				break
			}
			basic, err := r.ReadBit()
			if err != nil {
				return o, err
			}
			render, err := r.ReadBit()
			if err != nil {
				return o, err
			}
			ext, err := r.ReadBit()
			if err != nil {
				return o, err
			}
			o.ObjectBasicInfoPresent[i] = basic
			o.ObjectRenderInfoPresent[i] = render
			o.ObjectExtendedInfoPresent[i] = ext
		}
	}

	remainingBits := int64(endBit) - int64(r.Position())
	if remainingBits > 0 {
		remainder := make([]byte, 0, remainingBits/8+1)
		for r.Position() < endBit {
			n := 8
			if r.Position()+uint64(n) > endBit {
				n = int(endBit - r.Position())
			}
			v, err := r.ReadBits(n)
			if err != nil {
				return o, err
			}
			remainder = append(remainder, byte(v<<uint(8-n)))
		}
		o.Remainder = remainder
	}

	return o, nil
}
